// Package segment classifies the lines of an AI generated plan and cleans
// their Markdown decoration. Both the block renderer and the PDF exporter
// consume its output so that the same text reaches the screen, the speech
// synthesizer and the printed page.
package segment

import (
	"strings"
)

// Category identifies which of the three plans a text belongs to.
type Category string

const (
	Workout    Category = "workout"
	Diet       Category = "diet"
	Motivation Category = "motivation"
)

// Categories lists the plan categories in display order.
var Categories = []Category{Workout, Diet, Motivation}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case Workout, Diet, Motivation:
		return true
	}
	return false
}

// Kind is the inferred type of a line.
type Kind string

const (
	KindBlank       Kind = "blank"
	KindHeading     Kind = "heading"
	KindDayHeader   Kind = "day-header"
	KindMealHeader  Kind = "meal-header"
	KindItem        Kind = "item"
	KindPlainItem   Kind = "plain-item"
	KindDescription Kind = "description"
	KindNumbered    Kind = "numbered"
	KindBullet      Kind = "bullet"
	KindQuote       Kind = "quote"
	KindParagraph   Kind = "paragraph"
)

// Record is one classified line of a plan.
type Record struct {
	Index   int
	Raw     string
	Trimmed string
	Kind    Kind

	// Text is the cleaned display text of the whole line.
	Text string

	Level  int    // heading level, 1 to 3
	Name   string // item name
	Detail string // item detail, description body
	Label  string // "Description" or "Note"
	Number string // numbered prefix such as "1."

	// DayBoundary marks a line that opens a new logical day; Day is the
	// running day counter after this line (0 before the first day).
	DayBoundary bool
	Day         int
	Subtitle    string
}

// IsDayCandidate reports whether the record looks like a day header,
// regardless of whether it opened a new day.
func (r Record) IsDayCandidate() bool {
	switch r.Kind {
	case KindDayHeader:
		return true
	case KindHeading:
		return matchesDay(r.Text)
	}
	return false
}

// Segment classifies every newline separated line of text. The result has
// exactly one record per line, blank lines included.
func Segment(text string, category Category) []Record {
	lines := strings.Split(text, "\n")
	rules := Rules(category)
	records := make([]Record, 0, len(lines))

	var days dayTracker
	for i, raw := range lines {
		line := Line{Index: i, Raw: raw, Trimmed: strings.TrimSpace(raw), Category: category}
		rec := Classify(line, rules)
		days.observe(&rec)
		records = append(records, rec)
	}
	return records
}

// Classify applies rules in order and returns the record built by the first
// matching rule. The final paragraph rule matches everything.
func Classify(line Line, rules []Rule) Record {
	for _, rule := range rules {
		if rule.Match(line) {
			return rule.Build(line)
		}
	}
	return paragraphRule.Build(line)
}

// DayCount returns the number of logical days in records.
func DayCount(records []Record) int {
	count := 0
	for _, r := range records {
		if r.DayBoundary {
			count++
		}
	}
	return count
}
