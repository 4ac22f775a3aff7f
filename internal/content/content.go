// Package content holds the static catalog shown around the plans: quotes,
// suggested reads, loading facts and the default plans used when generation
// fails.
package content

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var catalogYAML []byte

type Quote struct {
	Emoji string `yaml:"emoji" json:"emoji"`
	Text  string `yaml:"text" json:"text"`
}

type Read struct {
	Title       string `yaml:"title" json:"title"`
	URL         string `yaml:"url" json:"url"`
	Category    string `yaml:"category" json:"category"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Defaults are the built-in plans returned when the model output cannot be
// used.
type Defaults struct {
	Workout    string `yaml:"workout"`
	Diet       string `yaml:"diet"`
	Motivation string `yaml:"motivation"`
}

type Catalog struct {
	QuoteInterval time.Duration `yaml:"quote_interval"`
	FactInterval  time.Duration `yaml:"fact_interval"`
	Quotes        []Quote       `yaml:"quotes"`
	Reads         []Read        `yaml:"reads"`
	Facts         []string      `yaml:"facts"`
	Defaults      Defaults      `yaml:"defaults"`
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(catalogYAML)
}

// Parse decodes a catalog document and checks it is complete.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse content catalog: %w", err)
	}
	if len(c.Quotes) == 0 || len(c.Facts) == 0 {
		return nil, fmt.Errorf("content catalog needs quotes and facts")
	}
	if c.Defaults.Workout == "" || c.Defaults.Diet == "" || c.Defaults.Motivation == "" {
		return nil, fmt.Errorf("content catalog is missing default plans")
	}
	if c.QuoteInterval <= 0 {
		c.QuoteInterval = 5 * time.Second
	}
	if c.FactInterval <= 0 {
		c.FactInterval = 5 * time.Second
	}
	return &c, nil
}

// QuoteAt returns the quote shown at now for a rotation started at start.
func (c *Catalog) QuoteAt(start, now time.Time) (int, Quote) {
	i := rotationIndex(start, now, c.QuoteInterval, len(c.Quotes))
	return i, c.Quotes[i]
}

// QuoteTexts returns the quotes as "<emoji> <text>" lines.
func (c *Catalog) QuoteTexts() []string {
	out := make([]string, len(c.Quotes))
	for i, q := range c.Quotes {
		out[i] = q.Emoji + " " + q.Text
	}
	return out
}

func rotationIndex(start, now time.Time, interval time.Duration, n int) int {
	if n == 0 || interval <= 0 || now.Before(start) {
		return 0
	}
	return int(now.Sub(start)/interval) % n
}
