package ical

import (
	"errors"
	"io"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseString(t *testing.T, text string) []RawEvent {
	t.Helper()
	events, err := NewParser(0).Parse(strings.NewReader(text))
	require.NoError(t, err)
	return events
}

func TestUnfoldJoinsContinuationLines(t *testing.T) {
	lines, err := Unfold(strings.NewReader("DESCRIPTION:Prof.\r\n Smith\r\nSUMMARY:Algebra   \r\n\tII\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"DESCRIPTION:Prof.Smith", "SUMMARY:AlgebraII"}, lines)
}

func TestUnfoldLeadingContinuationStartsLine(t *testing.T) {
	lines, err := Unfold(strings.NewReader("  orphan\nSUMMARY:x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"orphan", "SUMMARY:x"}, lines)
}

func TestParseFoldedDescription(t *testing.T) {
	events := parseString(t, strings.Join([]string{
		"BEGIN:VCALENDAR",
		"BEGIN:VEVENT",
		"SUMMARY:Office hours",
		"DTSTART:20241203",
		"DESCRIPTION:Prof.",
		" Smith",
		"END:VEVENT",
		"END:VCALENDAR",
	}, "\n"))

	require.Len(t, events, 1)
	assert.Equal(t, "Prof.Smith", events[0].Description)
	assert.True(t, events[0].AllDay())
}

func TestTextEscapes(t *testing.T) {
	for in, want := range map[string]string{
		`C:\\new`:         `C:\new`,
		`a\\\nb`:          "a\\\nb",
		`Room 4\, Hall B`: "Room 4, Hall B",
		`x\;y\Nz`:         "x;y\nz",
		`plain`:           "plain",
	} {
		assert.Equal(t, want, unescape(in), in)
	}

	events := parseString(t, strings.Join([]string{
		"BEGIN:VCALENDAR",
		"BEGIN:VEVENT",
		`SUMMARY:Paths C:\\new\, C:\\tmp`,
		"DTSTART:20241203",
		"END:VEVENT",
		"END:VCALENDAR",
	}, "\n"))
	require.Len(t, events, 1)
	assert.Equal(t, `Paths C:\new, C:\tmp`, events[0].Title)
}

func TestParseMathLectureScenario(t *testing.T) {
	events := parseString(t, strings.Join([]string{
		"BEGIN:VEVENT",
		"DTSTART:20241201T101500",
		"DTEND:20241201T121500",
		"SUMMARY:Math Lecture",
		"CATEGORIES:cours",
		"END:VEVENT",
	}, "\r\n"))

	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "Math Lecture", ev.Title)
	assert.Equal(t, civil.Date{Year: 2024, Month: 12, Day: 1}, ev.Date)
	require.NotNil(t, ev.Start)
	require.NotNil(t, ev.End)
	assert.Equal(t, civil.Time{Hour: 10, Minute: 15}, *ev.Start)
	assert.Equal(t, civil.Time{Hour: 12, Minute: 15}, *ev.End)
	assert.Equal(t, []string{"cours"}, ev.Categories)

	minutes, ok := ev.DurationMinutes()
	require.True(t, ok)
	assert.Equal(t, 120, minutes)
}

func TestParseDiscardsIncompleteRecords(t *testing.T) {
	events := parseString(t, strings.Join([]string{
		"BEGIN:VEVENT",
		"DTSTART:20241201",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"SUMMARY:No start",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"SUMMARY:Bad date",
		"DTSTART:2024XX01",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"SUMMARY:Kept",
		"DTSTART:20241202",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"SUMMARY:Unterminated",
		"DTSTART:20241203",
	}, "\n"))

	require.Len(t, events, 1)
	assert.Equal(t, "Kept", events[0].Title)
}

func TestBeginResetsInProgressRecord(t *testing.T) {
	events := parseString(t, strings.Join([]string{
		"BEGIN:VEVENT",
		"SUMMARY:Lost",
		"LOCATION:Room A",
		"CATEGORIES:exam",
		"BEGIN:VEVENT",
		"SUMMARY:Fresh",
		"DTSTART:20241204",
		"END:VEVENT",
	}, "\n"))

	require.Len(t, events, 1)
	assert.Equal(t, "Fresh", events[0].Title)
	assert.Empty(t, events[0].Location)
	assert.Empty(t, events[0].Categories)
}

func TestCategoriesAccumulateAndSkipBlanks(t *testing.T) {
	events := parseString(t, strings.Join([]string{
		"BEGIN:VEVENT",
		"SUMMARY:Analysis",
		"DTSTART;TZID=Europe/Zurich:20250110T080000",
		"CATEGORIES:Exam",
		"CATEGORIES:   ",
		"CATEGORIES;LANGUAGE=en:Written",
		"END:VEVENT",
	}, "\n"))

	require.Len(t, events, 1)
	assert.Equal(t, []string{"Exam", "Written"}, events[0].Categories)
	require.NotNil(t, events[0].Start)
	assert.Equal(t, 8, events[0].Start.Hour)
}

func TestMalformedTimeFallsBackToNoTime(t *testing.T) {
	date, clock, ok := ParseDateTime("20241201T1x")
	require.True(t, ok)
	assert.Nil(t, clock)
	assert.Equal(t, civil.Date{Year: 2024, Month: 12, Day: 1}, date)

	_, clock, ok = ParseDateTime("20241201T2590")
	require.True(t, ok)
	assert.Nil(t, clock)

	_, clock, ok = ParseDateTime("20241201T0930Z")
	require.True(t, ok)
	require.NotNil(t, clock)
	assert.Equal(t, civil.Time{Hour: 9, Minute: 30}, *clock)

	_, _, ok = ParseDateTime("202412")
	assert.False(t, ok)
	_, _, ok = ParseDateTime("20241340")
	assert.False(t, ok)
}

func TestWeeklyRecurrenceWithUntil(t *testing.T) {
	events := parseString(t, strings.Join([]string{
		"BEGIN:VEVENT",
		"SUMMARY:Physics",
		"DTSTART:20241202T081500",
		"DTEND:20241202T100000",
		"RRULE:FREQ=WEEKLY;UNTIL=20241216",
		"END:VEVENT",
	}, "\n"))

	require.Len(t, events, 3)
	base := civil.Date{Year: 2024, Month: 12, Day: 2}
	for i, ev := range events {
		assert.Equal(t, base.AddDays(7*i), ev.Date)
		assert.Equal(t, "Physics", ev.Title)
		require.NotNil(t, ev.Start)
		assert.Equal(t, civil.Time{Hour: 8, Minute: 15}, *ev.Start)
	}
}

func TestWeeklyRecurrenceWithoutUntil(t *testing.T) {
	base := RawEvent{Title: "Seminar", Date: civil.Date{Year: 2025, Month: 3, Day: 3}, Categories: []string{"cours"}}
	events := Expand(base, "FREQ=WEEKLY")

	require.Len(t, events, DefaultWeeklyOccurrences)
	for i := 1; i < len(events); i++ {
		assert.Equal(t, 7, events[i].Date.DaysSince(events[i-1].Date))
	}

	events[1].Categories[0] = "changed"
	assert.Equal(t, "cours", events[0].Categories[0])
}

func TestNonWeeklyRulesYieldBaseOnly(t *testing.T) {
	base := RawEvent{Title: "Daily", Date: civil.Date{Year: 2025, Month: 3, Day: 3}}

	for _, rule := range []string{"", "FREQ=DAILY;COUNT=5", "FREQ=MONTHLY", "garbage", "FREQ=WEEKLY;UNTIL=20250101"} {
		events := Expand(base, rule)
		require.Len(t, events, 1, rule)
		assert.Equal(t, base.Date, events[0].Date, rule)
	}
}

type failingReader struct {
	r io.Reader
}

func (f *failingReader) Read(p []byte) (int, error) {
	n, err := f.r.Read(p)
	if errors.Is(err, io.EOF) {
		return n, errors.New("connection reset")
	}
	return n, err
}

func TestParseTruncatedStreamKeepsCompletedEvents(t *testing.T) {
	text := "BEGIN:VEVENT\nSUMMARY:First\nDTSTART:20241201\nEND:VEVENT\nBEGIN:VEVENT\nSUMMARY:Second\n"
	events, err := NewParser(0).Parse(&failingReader{r: strings.NewReader(text)})

	require.Error(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "First", events[0].Title)
}
