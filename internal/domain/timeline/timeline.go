// Package timeline groups jobs into a dense range of UTC calendar days for a
// stacked bar chart and maps chart coordinates back to the job drawn there.
//
// Placement and Resolve are inverses: a job placed at day index i and stack
// index k occupies x = i and y in [k, k+1). Changing one requires changing
// the other.
package timeline

import (
	"math"
	"time"

	"jobtracker/internal/domain/entity"
)

type Day struct {
	Date time.Time
	Jobs []entity.Job
}

// Label is the short axis label for the day.
func (d Day) Label() string {
	return d.Date.Format("01/02")
}

type Timeline struct {
	Days []Day
}

// Build buckets jobs from the day of the oldest job through the day of now,
// inclusive. Every day in the range is present, empty or not. Within a day
// jobs keep their order in the input slice. Jobs dated after now's day are
// not placed.
func Build(jobs []entity.Job, now time.Time) Timeline {
	today := entity.TruncateToDay(now)
	earliest := today
	for _, j := range jobs {
		if d := j.Day(); d.Before(earliest) {
			earliest = d
		}
	}

	var days []Day
	index := make(map[time.Time]int)
	for d := earliest; !d.After(today); d = d.AddDate(0, 0, 1) {
		index[d] = len(days)
		days = append(days, Day{Date: d})
	}

	for _, j := range jobs {
		i, ok := index[j.Day()]
		if !ok {
			continue
		}
		days[i].Jobs = append(days[i].Jobs, j)
	}

	return Timeline{Days: days}
}

// Placement is one unit-height segment of the stacked chart.
type Placement struct {
	DayIndex   int
	StackIndex int
	Job        entity.Job
}

func (p Placement) X() float64 {
	return float64(p.DayIndex)
}

// Span is the vertical extent [bottom, top) of the segment.
func (p Placement) Span() (bottom, top float64) {
	return float64(p.StackIndex), float64(p.StackIndex + 1)
}

func (p Placement) Center() (x, y float64) {
	return p.X(), float64(p.StackIndex) + 0.5
}

func (t Timeline) Placements() []Placement {
	var out []Placement
	for i, d := range t.Days {
		for k, j := range d.Jobs {
			out = append(out, Placement{DayIndex: i, StackIndex: k, Job: j})
		}
	}
	return out
}

// Labels returns the label of every n-th day keyed by day index.
func (t Timeline) Labels(every int) map[int]string {
	if every <= 0 {
		every = 1
	}
	out := make(map[int]string)
	for i := 0; i < len(t.Days); i += every {
		out[i] = t.Days[i].Label()
	}
	return out
}

// Resolve returns the job whose segment contains (x, y): the day is x rounded
// to the nearest index, the stack position is y floored.
func (t Timeline) Resolve(x, y float64) (entity.Job, bool) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return entity.Job{}, false
	}

	dx := math.Round(x)
	if dx < 0 || dx >= float64(len(t.Days)) {
		return entity.Job{}, false
	}
	jobs := t.Days[int(dx)].Jobs

	sy := math.Floor(y)
	if sy < 0 || sy >= float64(len(jobs)) {
		return entity.Job{}, false
	}
	return jobs[int(sy)], true
}
