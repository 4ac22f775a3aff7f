package content

import (
	"context"
	"time"
)

// Carousel cycles through items on a fixed interval.
type Carousel struct {
	items    []string
	interval time.Duration
	tick     func(time.Duration) (<-chan time.Time, func())
}

func NewCarousel(items []string, interval time.Duration) *Carousel {
	return &Carousel{
		items:    items,
		interval: interval,
		tick: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// Run calls show with the first item immediately and with the next item on
// every tick until ctx is done.
func (c *Carousel) Run(ctx context.Context, show func(index int, item string)) {
	if len(c.items) == 0 {
		<-ctx.Done()
		return
	}

	ticks, stop := c.tick(c.interval)
	defer stop()

	i := 0
	show(i, c.items[i])
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			i = (i + 1) % len(c.items)
			show(i, c.items[i])
		}
	}
}
