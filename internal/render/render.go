// Package render turns classified plan lines into display blocks and owns
// the image and audio side-channel state attached to them.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"ai-fitness-planner/internal/segment"
)

// Key identifies a block that can trigger a side channel.
type Key string

// ItemKey returns the key of an item block.
func ItemKey(category segment.Category, index int) Key {
	return Key(fmt.Sprintf("%s-%d", category, index))
}

// DayKey returns the key of a workout day block.
func DayKey(day int) Key {
	return Key(fmt.Sprintf("day-%d", day))
}

// ParseKey splits a key into its category and line index, or its day
// number for day keys.
func ParseKey(key Key) (category segment.Category, n int, err error) {
	prefix, num, ok := strings.Cut(string(key), "-")
	if !ok {
		return "", 0, fmt.Errorf("invalid action key %q", key)
	}
	n, err = strconv.Atoi(num)
	if err != nil || n < 0 {
		return "", 0, fmt.Errorf("invalid action key %q", key)
	}
	if prefix == "day" {
		return segment.Workout, n, nil
	}
	category = segment.Category(prefix)
	if !category.Valid() {
		return "", 0, fmt.Errorf("invalid action key %q", key)
	}
	return category, n, nil
}

// IsDayKey reports whether key names a day block.
func IsDayKey(key Key) bool {
	return strings.HasPrefix(string(key), "day-")
}

type Accent string

const (
	AccentOrange Accent = "orange"
	AccentGreen  Accent = "green"
	AccentPurple Accent = "purple"
)

// AccentFor returns the accent color of a category.
func AccentFor(category segment.Category) Accent {
	switch category {
	case segment.Diet:
		return AccentGreen
	case segment.Motivation:
		return AccentPurple
	default:
		return AccentOrange
	}
}

type ImageType string

const (
	ImageExercise ImageType = "exercise"
	ImageMeal     ImageType = "meal"
)

type Action string

const (
	ActionImage  Action = "image"
	ActionListen Action = "listen"
	ActionStop   Action = "stop"
)

// Block is one rendered line.
type Block struct {
	Kind     segment.Kind     `json:"kind"`
	Category segment.Category `json:"category"`
	Key      Key              `json:"key,omitempty"`
	Text     string           `json:"text,omitempty"`
	Name     string           `json:"name,omitempty"`
	Detail   string           `json:"detail,omitempty"`
	Label    string           `json:"label,omitempty"`
	Number   string           `json:"number,omitempty"`
	Level    int              `json:"level,omitempty"`
	Day      int              `json:"day,omitempty"`
	Accent   Accent           `json:"accent"`

	SpokenContent string    `json:"spokenContent,omitempty"`
	ImagePrompt   string    `json:"imagePrompt,omitempty"`
	ImageType     ImageType `json:"imageType,omitempty"`
	Actions       []Action  `json:"actions,omitempty"`

	Image      string `json:"image,omitempty"`
	Generating bool   `json:"generating,omitempty"`
	ImageError string `json:"imageError,omitempty"`
	Playing    bool   `json:"playing,omitempty"`
}

// Render builds the blocks of a plan. It has no side effects; image and
// audio status come from state.
func Render(plan string, category segment.Category, state State) []Block {
	records := segment.Segment(plan, category)
	blocks := make([]Block, 0, len(records))
	for _, rec := range records {
		blocks = append(blocks, renderRecord(records, rec, category, state))
	}
	return blocks
}

// Lookup renders plan and returns the block carrying key.
func Lookup(plan string, category segment.Category, key Key) (Block, bool) {
	for _, b := range Render(plan, category, NewState()) {
		if b.Key == key {
			return b, true
		}
	}
	return Block{}, false
}

func renderRecord(records []segment.Record, rec segment.Record, category segment.Category, state State) Block {
	b := Block{
		Kind:     rec.Kind,
		Category: category,
		Text:     rec.Text,
		Name:     rec.Name,
		Detail:   rec.Detail,
		Label:    rec.Label,
		Number:   rec.Number,
		Level:    rec.Level,
		Day:      rec.Day,
		Accent:   AccentFor(category),
	}

	switch {
	case rec.DayBoundary && category == segment.Workout:
		b.Key = DayKey(rec.Day)
		b.SpokenContent = segment.DayContent(records, rec.Index)
		b.Playing = state.Playing(b.Key)
		if b.Playing {
			b.Actions = []Action{ActionStop}
		} else {
			b.Actions = []Action{ActionListen}
		}
	case isImageItem(rec.Kind) && category != segment.Motivation:
		b.Key = ItemKey(category, rec.Index)
		b.ImagePrompt = segment.ImagePrompt(rec)
		b.ImageType = ImageExercise
		if category == segment.Diet {
			b.ImageType = ImageMeal
		}

		img := state.Image(b.Key)
		b.Generating = img.Status == ImageGenerating
		b.Image = img.URL
		b.ImageError = img.Reason
		if !b.Generating {
			b.Actions = []Action{ActionImage}
		}
	}
	return b
}

func isImageItem(kind segment.Kind) bool {
	return kind == segment.KindItem || kind == segment.KindPlainItem
}
