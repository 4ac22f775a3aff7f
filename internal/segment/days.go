package segment

import "strings"

// maxDayContent bounds the spoken text of one day. The limit is checked
// after a line is appended, so the result may exceed it by that line.
const maxDayContent = 1000

// Day describes one logical day of a plan.
type Day struct {
	Number  int
	Index   int // record index of the day header
	Title   string
	Content string
}

type dayTracker struct {
	explicitSeen bool
	count        int
}

func (d *dayTracker) observe(r *Record) {
	if IsDayBoundary(*r, d.explicitSeen) {
		if dayNumberPattern.MatchString(r.Text) {
			d.explicitSeen = true
		}
		d.count++
		r.DayBoundary = true
		r.Subtitle = subtitle(r.Text)
	}
	r.Day = d.count
}

// IsDayBoundary reports whether r opens a new day. Lines carrying an
// explicit "day N" token always do. Weekday-only lines do so only while no
// explicit day has been seen in the plan, so "Day 1 - Monday" followed by a
// "Monday" sub-header still counts as a single day.
func IsDayBoundary(r Record, explicitSeen bool) bool {
	if !r.IsDayCandidate() {
		return false
	}
	if dayNumberPattern.MatchString(r.Text) {
		return true
	}
	return !explicitSeen
}

func subtitle(text string) string {
	m := subtitlePattern.FindStringSubmatch(text)
	if m == nil {
		if i := strings.Index(text, ":"); i >= 0 {
			return strings.TrimSpace(text[i+1:])
		}
		return ""
	}
	return strings.TrimSpace(m[1])
}

// DayContent returns the spoken content for the day opened at records[i]:
// the header subtitle followed by every non-blank line up to the next day
// boundary, joined with ". ".
func DayContent(records []Record, i int) string {
	if i < 0 || i >= len(records) {
		return ""
	}

	var b strings.Builder
	appendPart := func(s string) {
		if s == "" {
			return
		}
		b.WriteString(s)
		b.WriteString(". ")
	}

	appendPart(SpeechText(records[i].Subtitle))
	for _, r := range records[i+1:] {
		if r.DayBoundary || b.Len() > maxDayContent {
			break
		}
		if r.Kind == KindBlank {
			continue
		}
		appendPart(SpeechText(r.Text))
	}
	return strings.TrimSpace(b.String())
}

// Days lists the logical days of records in order.
func Days(records []Record) []Day {
	var days []Day
	for i, r := range records {
		if !r.DayBoundary {
			continue
		}
		days = append(days, Day{
			Number:  r.Day,
			Index:   i,
			Title:   r.Text,
			Content: DayContent(records, i),
		})
	}
	return days
}
