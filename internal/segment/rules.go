package segment

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Line is the input to a classification rule.
type Line struct {
	Index    int
	Raw      string
	Trimmed  string
	Category Category
}

// Rule pairs a predicate with the constructor of the record it produces.
type Rule struct {
	Name  string
	Match func(Line) bool
	Build func(Line) Record
}

const weekdays = `monday|tuesday|wednesday|thursday|friday|saturday|sunday`

var (
	headingPattern     = regexp.MustCompile(`^(#{1,3})\s+`)
	dayNumberPattern   = regexp.MustCompile(`(?i)\bday\s+\d+\b`)
	weekdayPattern     = regexp.MustCompile(`(?i)\b(` + weekdays + `)\b`)
	bareDayPattern     = regexp.MustCompile(`(?i)^(day\s+\d+\b|\*\*\s*(day\s+\d+\b|(` + weekdays + `)\b)|(` + weekdays + `)\s*(:.*)?$)`)
	itemPrefixPattern  = regexp.MustCompile(`^-\s+\*\*`)
	itemPattern        = regexp.MustCompile(`^-\s+\*\*(.+?):\*\*(.+)`)
	descriptionPattern = regexp.MustCompile(`(?i)^\*\*?(description|note):\*\*?\s`)
	numberedPattern    = regexp.MustCompile(`^(\d+[.)])\s*`)
	bulletPattern      = regexp.MustCompile(`^[-•*]\s`)
	mealPattern        = regexp.MustCompile(`(?i)^(breakfast|lunch|dinner|snacks?|meal)\b`)
	quotePattern       = regexp.MustCompile(`(?i)quote`)
	subtitlePattern    = regexp.MustCompile(`(?i)^(?:day\s+\d+|` + weekdays + `)\b\s*[:\-–]?\s*(.*)$`)
)

var blankRule = Rule{
	Name:  "blank",
	Match: func(l Line) bool { return l.Trimmed == "" },
	Build: func(l Line) Record { return base(l, KindBlank, "") },
}

var headingRule = Rule{
	Name:  "heading",
	Match: func(l Line) bool { return headingPattern.MatchString(l.Trimmed) },
	Build: func(l Line) Record {
		m := headingPattern.FindStringSubmatch(l.Trimmed)
		rec := base(l, KindHeading, Clean(l.Trimmed))
		rec.Level = len(m[1])
		return rec
	},
}

var dayHeaderRule = Rule{
	Name:  "day-header",
	Match: func(l Line) bool { return bareDayPattern.MatchString(l.Trimmed) },
	Build: func(l Line) Record { return base(l, KindDayHeader, Clean(l.Trimmed)) },
}

var mealHeaderRule = Rule{
	Name: "meal-header",
	Match: func(l Line) bool {
		if l.Category != Diet || strings.HasPrefix(l.Trimmed, "-") || bulletPattern.MatchString(l.Trimmed) {
			return false
		}
		return mealPattern.MatchString(Clean(l.Trimmed))
	},
	Build: func(l Line) Record { return base(l, KindMealHeader, Clean(l.Trimmed)) },
}

var itemRule = Rule{
	Name:  "item",
	Match: func(l Line) bool { return itemPrefixPattern.MatchString(l.Trimmed) },
	Build: func(l Line) Record {
		m := itemPattern.FindStringSubmatch(l.Trimmed)
		if m == nil {
			return base(l, KindPlainItem, Clean(l.Trimmed))
		}
		rec := base(l, KindItem, "")
		rec.Name = Clean(m[1])
		rec.Detail = Clean(m[2])
		rec.Text = rec.Name + ": " + rec.Detail
		return rec
	},
}

var descriptionRule = Rule{
	Name:  "description",
	Match: func(l Line) bool { return descriptionPattern.MatchString(l.Trimmed) },
	Build: func(l Line) Record {
		m := descriptionPattern.FindStringSubmatch(l.Trimmed)
		rec := base(l, KindDescription, Clean(l.Trimmed))
		rec.Label = strings.ToUpper(m[1][:1]) + strings.ToLower(m[1][1:])
		rec.Detail = Clean(l.Trimmed[len(m[0]):])
		return rec
	},
}

var numberedRule = Rule{
	Name:  "numbered",
	Match: func(l Line) bool { return numberedPattern.MatchString(l.Trimmed) },
	Build: func(l Line) Record {
		m := numberedPattern.FindStringSubmatch(l.Trimmed)
		rec := base(l, KindNumbered, Clean(l.Trimmed[len(m[0]):]))
		rec.Number = m[1]
		return rec
	},
}

var bulletRule = Rule{
	Name:  "bullet",
	Match: func(l Line) bool { return bulletPattern.MatchString(l.Trimmed) },
	Build: func(l Line) Record {
		_, size := utf8.DecodeRuneInString(l.Trimmed)
		return base(l, KindBullet, Clean(l.Trimmed[size:]))
	},
}

var quoteRule = Rule{
	Name: "quote",
	Match: func(l Line) bool {
		if l.Category != Motivation {
			return false
		}
		if strings.HasPrefix(l.Trimmed, `"`) || strings.HasPrefix(l.Trimmed, "'") || strings.HasPrefix(l.Trimmed, "“") {
			return true
		}
		return quotePattern.MatchString(l.Trimmed) && len(l.Trimmed) < 150
	},
	Build: func(l Line) Record { return base(l, KindQuote, Clean(l.Trimmed)) },
}

var paragraphRule = Rule{
	Name:  "paragraph",
	Match: func(Line) bool { return true },
	Build: func(l Line) Record { return base(l, KindParagraph, Clean(l.Trimmed)) },
}

// Rules returns the ordered classification rules for a category.
func Rules(category Category) []Rule {
	rules := []Rule{blankRule, headingRule, dayHeaderRule}
	if category == Diet {
		rules = append(rules, mealHeaderRule)
	}
	rules = append(rules, itemRule, descriptionRule, numberedRule, bulletRule)
	if category == Motivation {
		rules = append(rules, quoteRule)
	}
	return append(rules, paragraphRule)
}

func base(l Line, kind Kind, text string) Record {
	return Record{Index: l.Index, Raw: l.Raw, Trimmed: l.Trimmed, Kind: kind, Text: text}
}

func matchesDay(text string) bool {
	return dayNumberPattern.MatchString(text) || weekdayPattern.MatchString(text)
}
