// Package keywords classifies free text and category tags by looking them up
// in localized keyword tables.
package keywords

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Category names a keyword list.
type Category string

// Categories used by the importers and mappers.
const (
	CategoryExam       Category = "exam"
	CategoryHoliday    Category = "holiday"
	CategoryExercise   Category = "exercise"
	CategoryLab        Category = "lab"
	CategoryProject    Category = "project"
	CategoryLecture    Category = "lecture"
	CategoryMidterm    Category = "midterm"
	CategoryFinal      Category = "final"
	CategoryExamWord   Category = "exam_word"
	CategoryFinalExam  Category = "final_exam"
	CategoryWritten    Category = "written"
	CategoryMilestone  Category = "milestone"
	CategoryWeekly     Category = "weekly"
	CategorySubmission Category = "submission"
	CategorySport      Category = "sport"
)

// Table maps a category to its keywords.
type Table map[Category][]string

// Strings holds the localized words used to build display text.
type Strings struct {
	At                string            `yaml:"at"`
	With              string            `yaml:"with"`
	UnknownInstructor string            `yaml:"unknown_instructor"`
	ClassTypes        map[string]string `yaml:"class_types"`
}

// Locale is the resource bundle of one language.
type Locale struct {
	Keywords Table   `yaml:"keywords"`
	Strings  Strings `yaml:"strings"`
}

// Resources is the full set of locales loaded from a resource file.
type Resources struct {
	Locales map[string]Locale `yaml:"locales"`
}

//go:embed default.yaml
var defaultResources []byte

// ParseResources decodes a YAML resource file.
func ParseResources(data []byte) (*Resources, error) {
	var res Resources
	if err := yaml.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("parsing keyword resources: %w", err)
	}
	if len(res.Locales) == 0 {
		return nil, errors.New("keyword resources define no locales")
	}
	return &res, nil
}

// LoadResources reads resources from path, or returns the embedded defaults
// when path is empty.
func LoadResources(path string) (*Resources, error) {
	if path == "" {
		return ParseResources(defaultResources)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading keyword resources: %w", err)
	}
	return ParseResources(data)
}

// Classifier answers category questions by case-insensitive substring
// matching. It is immutable and safe for concurrent use.
type Classifier struct {
	table   Table
	strings Strings
}

// New merges the keyword lists of the given locales. Display strings come
// from the first locale, with English fallbacks for anything it leaves out.
func New(res *Resources, locales ...string) (*Classifier, error) {
	if res == nil {
		return nil, errors.New("keyword resources are nil")
	}
	if len(locales) == 0 {
		return nil, errors.New("at least one locale is required")
	}

	c := &Classifier{table: make(Table)}
	for i, name := range locales {
		loc, ok := res.Locales[name]
		if !ok {
			return nil, fmt.Errorf("unknown locale %q", name)
		}
		for cat, words := range loc.Keywords {
			for _, w := range words {
				w = strings.ToLower(strings.TrimSpace(w))
				if w != "" {
					c.table[cat] = append(c.table[cat], w)
				}
			}
		}
		if i == 0 {
			c.strings = loc.Strings
		}
	}
	c.strings = withFallbacks(c.strings)

	return c, nil
}

func withFallbacks(s Strings) Strings {
	if s.At == "" {
		s.At = "at"
	}
	if s.With == "" {
		s.With = "with"
	}
	if s.UnknownInstructor == "" {
		s.UnknownInstructor = "Unknown instructor"
	}
	types := map[string]string{
		"lecture":  "Lecture",
		"exercise": "Exercise",
		"lab":      "Lab",
		"project":  "Project",
	}
	for k, v := range s.ClassTypes {
		if v != "" {
			types[k] = v
		}
	}
	s.ClassTypes = types
	return s
}

var (
	defaultOnce       sync.Once
	defaultClassifier *Classifier
)

// Default returns a classifier over the embedded English and French tables.
func Default() *Classifier {
	defaultOnce.Do(func() {
		res, err := ParseResources(defaultResources)
		if err != nil {
			panic(err)
		}
		c, err := New(res, "en", "fr")
		if err != nil {
			panic(err)
		}
		defaultClassifier = c
	})
	return defaultClassifier
}

// Names returns the locale names in sorted order.
func (r *Resources) Names() []string {
	names := make([]string, 0, len(r.Locales))
	for name := range r.Locales {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load builds a classifier from a resource file, or the embedded tables
// when path is empty. No locales selects all of them.
func Load(path string, locales []string) (*Classifier, error) {
	if path == "" && len(locales) == 0 {
		return Default(), nil
	}
	res, err := LoadResources(path)
	if err != nil {
		return nil, err
	}
	if len(locales) == 0 {
		locales = res.Names()
	}
	return New(res, locales...)
}

// Strings returns the display strings of the primary locale.
func (c *Classifier) Strings() Strings {
	return c.strings
}

// Keywords returns the merged keyword list of a category.
func (c *Classifier) Keywords(cat Category) []string {
	return append([]string(nil), c.table[cat]...)
}

// Match reports whether text contains any keyword of cat.
func (c *Classifier) Match(cat Category, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range c.table[cat] {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// MatchAny reports whether any tag contains any keyword of cat.
func (c *Classifier) MatchAny(cat Category, tags []string) bool {
	for _, tag := range tags {
		if c.Match(cat, tag) {
			return true
		}
	}
	return false
}

// IsExam reports whether text matches an exam keyword.
func (c *Classifier) IsExam(text string) bool { return c.Match(CategoryExam, text) }

// IsHoliday reports whether text matches a holiday keyword.
func (c *Classifier) IsHoliday(text string) bool { return c.Match(CategoryHoliday, text) }

// IsExercise reports whether text matches an exercise-session keyword.
func (c *Classifier) IsExercise(text string) bool { return c.Match(CategoryExercise, text) }

// IsLab reports whether text matches a lab keyword.
func (c *Classifier) IsLab(text string) bool { return c.Match(CategoryLab, text) }

// IsProject reports whether text matches a project keyword.
func (c *Classifier) IsProject(text string) bool { return c.Match(CategoryProject, text) }

// IsLecture reports whether text matches a lecture keyword.
func (c *Classifier) IsLecture(text string) bool { return c.Match(CategoryLecture, text) }

// IsExamTags reports whether any tag matches an exam keyword.
func (c *Classifier) IsExamTags(tags []string) bool { return c.MatchAny(CategoryExam, tags) }

// IsHolidayTags reports whether any tag is a holiday keyword match.
func (c *Classifier) IsHolidayTags(tags []string) bool {
	return c.MatchAny(CategoryHoliday, tags)
}
