package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

type drawnText struct {
	page  int
	x, y  float64
	text  string
	style Style
	size  float64
}

// recordingCanvas records draw calls. Every rune is 2mm wide.
type recordingCanvas struct {
	pages int
	style Style
	size  float64
	texts []drawnText
}

func (c *recordingCanvas) AddPage() { c.pages++ }

func (c *recordingCanvas) SetFont(style Style, size float64) {
	c.style, c.size = style, size
}

func (c *recordingCanvas) Text(x, y float64, s string) {
	c.texts = append(c.texts, drawnText{page: c.pages, x: x, y: y, text: s, style: c.style, size: c.size})
}

func (c *recordingCanvas) StringWidth(s string) float64 {
	return float64(len([]rune(s))) * 2
}

func (c *recordingCanvas) find(text string) (drawnText, bool) {
	for _, d := range c.texts {
		if d.text == text {
			return d, true
		}
	}
	return drawnText{}, false
}

func TestLayoutStructure(t *testing.T) {
	c := &recordingCanvas{}
	pages := Layout(c, Plans{
		Workout:    "## Day 1: Legs\n- **Squats:** 3x10 (60s)\n*Note:* keep your back straight",
		Diet:       "1. **Oatmeal** with `berries`",
		Motivation: "You can do it!",
	})

	if pages != 3 || c.pages != 3 {
		t.Fatalf("Expected 3 pages, got %d (canvas %d)", pages, c.pages)
	}

	title, ok := c.find(Title)
	if !ok || title.size != 22 || title.style != Bold || title.y != Margin {
		t.Errorf("Unexpected title %+v", title)
	}
	if want := PageWidth/2 - float64(len(Title)); title.x != want {
		t.Errorf("Expected centered title at %.1f, got %.1f", want, title.x)
	}

	for i, name := range []string{"Workout Plan", "Diet Plan", "Motivation & Tips"} {
		d, ok := c.find(name)
		if !ok {
			t.Fatalf("Missing section title %q", name)
		}
		if d.page != i+1 || d.size != 18 || d.style != Bold {
			t.Errorf("Unexpected section title %+v", d)
		}
	}

	heading, _ := c.find("Day 1: Legs")
	if heading.size != 16 || heading.y != Margin+15+12+LineHeight*1.5 {
		t.Errorf("Unexpected heading %+v", heading)
	}
	if _, ok := c.find("Squats"); !ok {
		t.Error("Expected bold item name")
	}
	note, _ := c.find("Note: keep your back straight")
	if note.style != Italic || note.size != 9 || note.x != Margin+20 {
		t.Errorf("Unexpected note %+v", note)
	}
	if _, ok := c.find("Oatmeal with berries"); !ok {
		t.Error("Expected numbered content without Markdown decoration")
	}
}

func TestLayoutEmptyPlans(t *testing.T) {
	c := &recordingCanvas{}
	if pages := Layout(c, Plans{}); pages != 3 {
		t.Fatalf("Expected 3 pages for empty plans, got %d", pages)
	}
	for _, name := range []string{Title, "Workout Plan", "Diet Plan", "Motivation & Tips"} {
		if _, ok := c.find(name); !ok {
			t.Errorf("Expected %q to be drawn", name)
		}
	}
	if len(c.texts) != 4 {
		t.Errorf("Expected only titles, got %d texts", len(c.texts))
	}
}

func TestLayoutParagraphSanitized(t *testing.T) {
	c := &recordingCanvas{}
	Layout(c, Plans{Motivation: "Believe in yourself ✨ & stay #1 ~always~"})
	if _, ok := c.find("Believe in yourself stay 1 always"); !ok {
		t.Errorf("Expected sanitized paragraph, got %+v", c.texts)
	}

	c = &recordingCanvas{}
	Layout(c, Plans{Diet: "Stay __consistent__ and _hydrated_ every day"})
	if _, ok := c.find("Stay consistent and hydrated every day"); !ok {
		t.Errorf("Expected underscores removed, got %+v", c.texts)
	}
}

func TestLayoutLongParagraphStaysOnPage(t *testing.T) {
	words := make([]string, 3000)
	for i := range words {
		words[i] = "squat"
	}
	c := &recordingCanvas{}
	pages := Layout(c, Plans{Workout: strings.Join(words, " ")})

	if pages <= 4 {
		t.Errorf("Expected the paragraph to spill onto extra pages, got %d pages", pages)
	}
	for _, d := range c.texts {
		if d.y > PageHeight-Margin {
			t.Fatalf("Text %q drawn at y=%.1f, past the bottom margin", d.text, d.y)
		}
	}
}

func workoutOfDays(days int) string {
	var b strings.Builder
	for d := 1; d <= days; d++ {
		fmt.Fprintf(&b, "## Day %d: Full body\n", d)
		for i := 0; i < 3; i++ {
			fmt.Fprintf(&b, "- **Exercise %d:** 3 sets of 12 reps with 60 seconds of rest between sets\n", i)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func TestLayoutPagination(t *testing.T) {
	c := &recordingCanvas{}
	pages := Layout(c, Plans{Workout: workoutOfDays(14)})
	if pages <= 3 {
		t.Fatalf("Expected a page break inside the workout section, got %d pages", pages)
	}
	for _, d := range c.texts {
		if d.y > PageHeight-Margin {
			t.Errorf("Text %q drawn below the bottom margin at %.1f", d.text, d.y)
		}
	}

	previous := 0
	for days := 0; days <= 20; days++ {
		got := Layout(&recordingCanvas{}, Plans{Workout: workoutOfDays(days)})
		if got < previous {
			t.Fatalf("Page count decreased from %d to %d at %d days", previous, got, days)
		}
		previous = got
	}
}

func TestWrap(t *testing.T) {
	c := &recordingCanvas{}
	lines := Wrap(c, "one two three four", 16)
	if len(lines) != 3 || lines[0] != "one two" || lines[2] != "four" {
		t.Errorf("Unexpected wrap %q", lines)
	}
	if Wrap(c, "   ", 10) != nil {
		t.Error("Expected no lines for blank text")
	}
}

func TestExport(t *testing.T) {
	data, err := Export(Plans{
		Workout:    "## Day 1\n- **Squats:** 3x10",
		Diet:       "- **Breakfast:** Oats – 50g “rolled”",
		Motivation: "Keep going 💪",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Errorf("Expected a PDF document, got %q", data[:min(len(data), 8)])
	}
}
