// Package ical decodes calendar text into raw event records.
//
// It understands the practical subset of the VEVENT syntax the importers need:
// folded lines, SUMMARY/DTSTART/DTEND/LOCATION/DESCRIPTION/RRULE/CATEGORIES
// and weekly recurrence with an optional UNTIL date.
package ical

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// maxLineSize bounds a single physical line of input.
const maxLineSize = 1 << 20

// RawEvent is one concrete calendar entry produced by the parser.
type RawEvent struct {
	Title       string      `json:"title"`
	Date        civil.Date  `json:"date"`
	Start       *civil.Time `json:"start,omitempty"`
	End         *civil.Time `json:"end,omitempty"`
	Location    string      `json:"location,omitempty"`
	Description string      `json:"description,omitempty"`
	Categories  []string    `json:"categories,omitempty"`
}

// AllDay reports whether the entry carries neither a start nor an end time.
func (e RawEvent) AllDay() bool {
	return e.Start == nil && e.End == nil
}

// DurationMinutes returns end - start in minutes when both are known and the
// difference is positive.
func (e RawEvent) DurationMinutes() (int, bool) {
	if e.Start == nil || e.End == nil {
		return 0, false
	}
	d := minutesOf(*e.End) - minutesOf(*e.Start)
	if d <= 0 {
		return 0, false
	}
	return d, true
}

func minutesOf(t civil.Time) int {
	return t.Hour*60 + t.Minute
}

// Parser parses calendar feeds.
type Parser struct {
	httpClient *http.Client
}

// NewParser creates a new parser. timeout bounds remote fetches; zero selects
// a 30 second default.
func NewParser(timeout time.Duration) *Parser {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Parser{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch opens a remote calendar feed. The caller closes the returned body.
func (p *Parser) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching calendar: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("calendar returned status %d", resp.StatusCode)
	}

	return resp.Body, nil
}

// FetchAndParse downloads and parses a calendar feed from a URL.
func (p *Parser) FetchAndParse(ctx context.Context, url string) ([]RawEvent, error) {
	body, err := p.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	return p.Parse(body)
}

// Unfold turns physical lines into logical property lines. A line starting
// with a space or tab continues the previous logical line; its leading
// whitespace is dropped. Every other line is right-trimmed.
//
// On a read error the lines decoded so far are returned with the error.
func Unfold(r io.Reader) ([]string, error) {
	var lines []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			cont := strings.TrimLeft(line, " \t")
			if len(lines) == 0 {
				lines = append(lines, cont)
				continue
			}
			lines[len(lines)-1] += cont
			continue
		}

		lines = append(lines, strings.TrimRight(line, " \t\r"))
	}

	if err := scanner.Err(); err != nil {
		return lines, fmt.Errorf("reading calendar: %w", err)
	}

	return lines, nil
}

// Parse reads calendar text and returns every complete VEVENT, with weekly
// recurrences expanded. Malformed records are dropped individually. If the
// reader fails midway, the events completed before the failure are returned
// together with the error.
func (p *Parser) Parse(r io.Reader) ([]RawEvent, error) {
	lines, err := Unfold(r)
	events := ParseLines(lines)
	if err != nil {
		return events, err
	}
	return events, nil
}

// recordBuilder accumulates the properties of the VEVENT being read.
type recordBuilder struct {
	event    RawEvent
	hasStart bool
	rrule    string
}

func (b *recordBuilder) finish() []RawEvent {
	if strings.TrimSpace(b.event.Title) == "" || !b.hasStart {
		return nil
	}
	return Expand(b.event, b.rrule)
}

// ParseLines parses already unfolded property lines.
func ParseLines(lines []string) []RawEvent {
	var events []RawEvent
	var current *recordBuilder

	for _, line := range lines {
		field, value, ok := splitProperty(line)
		if !ok {
			continue
		}

		switch field {
		case "BEGIN":
			if strings.EqualFold(strings.TrimSpace(value), "VEVENT") {
				current = &recordBuilder{}
			}
		case "END":
			if strings.EqualFold(strings.TrimSpace(value), "VEVENT") && current != nil {
				events = append(events, current.finish()...)
				current = nil
			}
		}

		if current == nil {
			continue
		}

		switch field {
		case "SUMMARY":
			current.event.Title = strings.TrimSpace(unescape(value))
		case "LOCATION":
			current.event.Location = strings.TrimSpace(unescape(value))
		case "DESCRIPTION":
			current.event.Description = strings.TrimSpace(unescape(value))
		case "RRULE":
			current.rrule = strings.TrimSpace(value)
		case "CATEGORIES":
			if c := strings.TrimSpace(unescape(value)); c != "" {
				current.event.Categories = append(current.event.Categories, c)
			}
		case "DTSTART":
			date, clock, ok := ParseDateTime(value)
			if !ok {
				continue
			}
			current.event.Date = date
			current.event.Start = clock
			current.hasStart = true
		case "DTEND":
			if _, clock, ok := ParseDateTime(value); ok {
				current.event.End = clock
			}
		}
	}

	return events
}

// splitProperty splits "NAME;PARAM=x:value" into its upper-cased name and
// value. Colons inside quoted parameter values do not end the name.
func splitProperty(line string) (string, string, bool) {
	quoted := false
	colonIdx := -1
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			quoted = !quoted
		case ':':
			if !quoted {
				colonIdx = i
			}
		}
		if colonIdx != -1 {
			break
		}
	}
	if colonIdx <= 0 {
		return "", "", false
	}

	field := line[:colonIdx]
	if semicolonIdx := strings.Index(field, ";"); semicolonIdx != -1 {
		field = field[:semicolonIdx]
	}

	return strings.ToUpper(strings.TrimSpace(field)), line[colonIdx+1:], true
}

var textUnescaper = strings.NewReplacer(
	`\\`, `\`,
	`\n`, "\n",
	`\N`, "\n",
	`\,`, ",",
	`\;`, ";",
)

// unescape resolves the text escape sequences in one left-to-right pass.
func unescape(value string) string {
	return textUnescaper.Replace(value)
}

// ParseDateTime decodes the basic YYYYMMDD[THHMM[SS]] form. The date is
// required; a malformed time part yields a nil time rather than a failure.
// Seconds and a trailing zone designator are ignored.
func ParseDateTime(value string) (civil.Date, *civil.Time, bool) {
	v := strings.TrimSpace(value)
	if len(v) < 8 || !allDigits(v[:8]) {
		return civil.Date{}, nil, false
	}

	year, _ := strconv.Atoi(v[0:4])
	month, _ := strconv.Atoi(v[4:6])
	day, _ := strconv.Atoi(v[6:8])
	date := civil.Date{Year: year, Month: time.Month(month), Day: day}
	if !date.IsValid() {
		return civil.Date{}, nil, false
	}

	rest := v[8:]
	if len(rest) < 5 || (rest[0] != 'T' && rest[0] != 't') || !allDigits(rest[1:5]) {
		return date, nil, true
	}

	hour, _ := strconv.Atoi(rest[1:3])
	minute, _ := strconv.Atoi(rest[3:5])
	clock := civil.Time{Hour: hour, Minute: minute}
	if !clock.IsValid() {
		return date, nil, true
	}

	return date, &clock, true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
