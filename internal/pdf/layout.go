// Package pdf lays out the three plans of a bundle on A4 pages.
package pdf

import (
	"regexp"
	"strings"

	"ai-fitness-planner/internal/segment"
)

const (
	Filename = "trainify-ai-plan.pdf"
	Title    = "Trainify AI - Your Personalized Plan"
)

// Page geometry in millimetres.
const (
	PageWidth  = 210.0
	PageHeight = 297.0
	Margin     = 20.0
	MaxWidth   = PageWidth - 2*Margin
	LineHeight = 7.0

	// y beyond which a new page is started before drawing a line.
	breakAt = PageHeight - Margin - 20
)

// Style is a font style understood by the canvas.
type Style string

const (
	Regular Style = ""
	Bold    Style = "B"
	Italic  Style = "I"
)

// Canvas is the drawing surface the layout runs against.
type Canvas interface {
	AddPage()
	SetFont(style Style, size float64)
	Text(x, y float64, s string)
	StringWidth(s string) float64
}

// Plans holds the raw text of the three plans.
type Plans struct {
	Workout    string
	Diet       string
	Motivation string
}

type section struct {
	title    string
	category segment.Category
	text     string
}

func (p Plans) sections() []section {
	return []section{
		{title: "Workout Plan", category: segment.Workout, text: p.Workout},
		{title: "Diet Plan", category: segment.Diet, text: p.Diet},
		{title: "Motivation & Tips", category: segment.Motivation, text: p.Motivation},
	}
}

// Layout draws plans onto c, each category starting on a new page, and
// returns the number of pages used.
func Layout(c Canvas, plans Plans) int {
	p := &paginator{c: c}
	p.newPage()

	c.SetFont(Bold, 22)
	c.Text(PageWidth/2-c.StringWidth(Title)/2, p.y, Title)
	p.y += 15

	for i, s := range plans.sections() {
		if i > 0 {
			p.newPage()
		}
		c.SetFont(Bold, 18)
		c.Text(Margin, p.y, s.title)
		p.y += 12
		p.plan(s.text, s.category)
	}
	return p.pages
}

type paginator struct {
	c     Canvas
	y     float64
	pages int
}

func (p *paginator) newPage() {
	p.c.AddPage()
	p.pages++
	p.y = Margin
}

var paragraphStrip = regexp.MustCompile(`[^\w\s.,;:!?()\-]`)

func (p *paginator) plan(text string, category segment.Category) {
	for _, rec := range segment.Segment(text, category) {
		if rec.Kind == segment.KindBlank {
			p.y += LineHeight * 0.5
			continue
		}
		if p.y > breakAt {
			p.newPage()
		}
		p.record(rec)
	}
}

func (p *paginator) record(rec segment.Record) {
	c := p.c
	switch rec.Kind {
	case segment.KindHeading:
		p.y += LineHeight * 1.5
		c.SetFont(Bold, headingSize(rec.Level))
		c.Text(Margin, p.y, rec.Text)
		p.y += LineHeight * 1.2

	case segment.KindDayHeader:
		p.y += LineHeight * 1.5
		c.SetFont(Bold, 16)
		c.Text(Margin, p.y, rec.Text)
		p.y += LineHeight * 1.2

	case segment.KindMealHeader:
		p.y += LineHeight
		c.SetFont(Bold, 12)
		c.Text(Margin, p.y, rec.Text)
		p.y += LineHeight * 0.5

	case segment.KindItem:
		p.y += LineHeight
		c.SetFont(Bold, 11)
		c.Text(Margin, p.y, "•")
		c.Text(Margin+8, p.y, rec.Name)
		if rec.Detail != "" {
			p.y += LineHeight * 0.8
			c.SetFont(Regular, 10)
			p.wrapped(rec.Detail, Margin+15, MaxWidth-30, LineHeight*0.8)
		}

	case segment.KindDescription:
		p.y += LineHeight * 0.8
		c.SetFont(Italic, 9)
		p.wrapped(rec.Text, Margin+20, MaxWidth-35, LineHeight*0.8)

	case segment.KindNumbered:
		p.y += LineHeight
		c.SetFont(Bold, 10)
		c.Text(Margin, p.y, rec.Number)
		p.wrapped(rec.Text, Margin+15, MaxWidth-30, LineHeight)

	case segment.KindPlainItem, segment.KindBullet:
		p.y += LineHeight
		c.SetFont(Regular, 10)
		c.Text(Margin, p.y, "•")
		p.wrapped(rec.Text, Margin+8, MaxWidth-25, LineHeight)

	default:
		text := strings.TrimSpace(paragraphStrip.ReplaceAllString(rec.Text, ""))
		if text == "" {
			return
		}
		c.SetFont(Regular, 10)
		p.y += LineHeight
		p.wrapped(text, Margin, MaxWidth-15, LineHeight)
	}
}

// wrapped draws text wrapped to width starting at the current y, breaking
// the page whenever a line would fall past breakAt. The cursor ends on the
// last drawn line.
func (p *paginator) wrapped(text string, x, width, advance float64) {
	for i, line := range Wrap(p.c, text, width) {
		if i > 0 {
			p.y += advance
		}
		if p.y > breakAt {
			p.newPage()
		}
		p.c.Text(x, p.y, line)
	}
}

func headingSize(level int) float64 {
	switch level {
	case 1:
		return 18
	case 2:
		return 16
	default:
		return 14
	}
}

// Wrap splits text into lines no wider than width using the canvas font
// metrics. A single word wider than width gets a line of its own.
func Wrap(c Canvas, text string, width float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, w := range words[1:] {
		candidate := current + " " + w
		if c.StringWidth(candidate) > width {
			lines = append(lines, current)
			current = w
			continue
		}
		current = candidate
	}
	return append(lines, current)
}
