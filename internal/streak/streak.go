// Package streak tracks the days a user completed a workout.
package streak

import (
	"sort"
	"time"

	"ai-fitness-planner/internal/database"
)

// CalendarDays is the default calendar window.
const CalendarDays = 14

// Record maps YYYY-MM-DD dates to completion. Dates are only ever set.
type Record map[string]bool

// Key returns the record key of t's calendar date.
func Key(t time.Time) string {
	return t.Format(database.DayLayout)
}

func (r Record) Mark(day time.Time) {
	r[Key(day)] = true
}

func (r Record) Done(day time.Time) bool {
	return r[Key(day)]
}

// Current counts consecutive completed days ending today, or ending
// yesterday when today is not completed yet.
func (r Record) Current(today time.Time) int {
	day := civil(today)
	if !r.Done(day) {
		day = day.AddDate(0, 0, -1)
	}
	count := 0
	for r.Done(day) {
		count++
		day = day.AddDate(0, 0, -1)
	}
	return count
}

// Longest returns the longest run of consecutive completed dates.
func (r Record) Longest() int {
	dates := r.dates()
	if len(dates) == 0 {
		return 0
	}
	longest, run := 1, 1
	for i := 1; i < len(dates); i++ {
		if dates[i-1].AddDate(0, 0, 1).Equal(dates[i]) {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}
	return longest
}

// CalendarDay is one cell of the streak calendar.
type CalendarDay struct {
	Date      string `json:"date"`
	DayName   string `json:"dayName"`
	DayNum    int    `json:"dayNum"`
	IsToday   bool   `json:"isToday"`
	Completed bool   `json:"completed"`
}

// Calendar returns the last n days ending today, oldest first.
func (r Record) Calendar(today time.Time, n int) []CalendarDay {
	if n <= 0 {
		n = CalendarDays
	}
	today = civil(today)
	days := make([]CalendarDay, 0, n)
	for i := n - 1; i >= 0; i-- {
		d := today.AddDate(0, 0, -i)
		days = append(days, CalendarDay{
			Date:      Key(d),
			DayName:   d.Format("Mon"),
			DayNum:    d.Day(),
			IsToday:   i == 0,
			Completed: r.Done(d),
		})
	}
	return days
}

// Summary is the streak state reported to clients.
type Summary struct {
	Current  int           `json:"current"`
	Longest  int           `json:"longest"`
	Calendar []CalendarDay `json:"calendar"`
}

func (r Record) Summary(today time.Time) Summary {
	return Summary{
		Current:  r.Current(today),
		Longest:  r.Longest(),
		Calendar: r.Calendar(today, CalendarDays),
	}
}

func (r Record) dates() []time.Time {
	dates := make([]time.Time, 0, len(r))
	for k, done := range r {
		if !done {
			continue
		}
		d, err := time.Parse(database.DayLayout, k)
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// civil drops the clock part of t, keeping its calendar date.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
