// Package layout positions a day's events on a vertical timeline so that
// overlapping events sit side by side and everything else uses the full width.
//
// The pass is pure: it never mutates its input, never fails, and gives the same
// output for the same input (including the order of events with equal starts).
package layout

import (
	"sort"
	"time"

	"daygrid/internal/model"
)

const (
	MinutesInDay = 24 * 60

	// DefaultHourHeight matches the day view's default row scale.
	DefaultHourHeight    = 64.0
	DefaultMinimumHeight = 20.0

	// Events shorter than this are drawn as if they lasted this long.
	minDisplayMinutes = 5.0
)

type Options struct {
	// HourHeight is pixels (or rows) per hour. Non-positive values fall back to DefaultHourHeight.
	HourHeight float64
	// MinimumHeight floors the rendered height. Zero means DefaultMinimumHeight;
	// negative disables the floor.
	MinimumHeight float64
	// DayStart anchors minute zero. Zero means the start of day of the first input event.
	DayStart time.Time
}

// Positioned is an Event plus its geometry for one layout pass.
type Positioned struct {
	model.Event

	Top         float64 `json:"top"`
	Height      float64 `json:"height"`
	Column      int     `json:"column"`
	ColumnSpan  int     `json:"columnSpan"`
	Width       float64 `json:"width"`
	ColumnCount int     `json:"columnCount"`
	ZIndex      int     `json:"zIndex"`
}

// Left returns the fractional horizontal offset of p within its cluster.
func (p Positioned) Left() float64 {
	if p.ColumnCount <= 0 {
		return 0
	}
	return float64(p.Column) / float64(p.ColumnCount)
}

type placement struct {
	column int
	span   int
	total  int
	ok     bool
}

// LayoutDay lays out events for a single day. The result is ordered by start
// time; ties keep input order.
func LayoutDay(events []model.Event, opts Options) []Positioned {
	if len(events) == 0 {
		return []Positioned{}
	}
	opts = opts.withDefaults(events[0])
	minuteHeight := opts.HourHeight / 60

	sorted := SortByStart(events)
	meta := make([]placement, len(sorted))

	for _, c := range BuildClusters(sorted, opts.DayStart) {
		a := AssignColumns(sorted, c)
		a.Widen(sorted)
		total := len(a.Columns)
		for k, idx := range c.Members {
			meta[idx] = placement{column: a.Column[k], span: a.Span[k], total: total, ok: true}
		}
	}

	out := make([]Positioned, 0, len(sorted))
	for i, ev := range sorted {
		startMin := clampMinutes(minutesSince(opts.DayStart, ev.Start))
		endMin := clampMinutes(minutesSince(opts.DayStart, ev.End))
		duration := endMin - startMin
		if duration < minDisplayMinutes {
			duration = minDisplayMinutes
		}
		height := duration * minuteHeight
		if height < opts.MinimumHeight {
			height = opts.MinimumHeight
		}

		p := Positioned{
			Event:  ev,
			Top:    startMin * minuteHeight,
			Height: height,
		}

		m := meta[i]
		if !m.ok {
			p.Column = 0
			p.ColumnSpan = 1
			p.Width = 1
			p.ColumnCount = 1
			p.ZIndex = 1
			out = append(out, p)
			continue
		}

		p.Column = m.column
		p.ColumnSpan = m.span
		p.ColumnCount = m.total
		p.Width = 1
		if m.total > 0 {
			p.Width = float64(m.span) / float64(m.total)
			if p.Width < 0 {
				p.Width = 0
			}
		}
		p.ZIndex = m.column + 1
		out = append(out, p)
	}
	return out
}

func (o Options) withDefaults(first model.Event) Options {
	if !(o.HourHeight > 0) {
		o.HourHeight = DefaultHourHeight
	}
	if o.MinimumHeight == 0 {
		o.MinimumHeight = DefaultMinimumHeight
	}
	if o.MinimumHeight < 0 {
		o.MinimumHeight = 0
	}
	if o.DayStart.IsZero() {
		o.DayStart = StartOfDay(first.Start)
	}
	return o
}

// SortByStart returns a copy of events ordered by start time. Equal starts keep
// their input order.
func SortByStart(events []model.Event) []model.Event {
	sorted := make([]model.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})
	return sorted
}

// Cluster is a maximal run of sorted events connected through overlaps.
type Cluster struct {
	// Members are indices into the sorted slice, in start order.
	Members []int
	// End is the largest clamped end minute seen in the cluster.
	End float64
}

// BuildClusters walks sorted events and groups them into clusters. An event
// opens a new cluster only when it starts at or after the running cluster end,
// so chains of overlaps merge transitively.
func BuildClusters(sorted []model.Event, dayStart time.Time) []Cluster {
	var clusters []Cluster
	var cur Cluster

	for i, ev := range sorted {
		startMin := clampMinutes(minutesSince(dayStart, ev.Start))
		endMin := clampMinutes(minutesSince(dayStart, ev.End))

		if len(cur.Members) == 0 {
			cur = Cluster{Members: []int{i}, End: endMin}
			continue
		}
		if startMin < cur.End {
			cur.Members = append(cur.Members, i)
			if endMin > cur.End {
				cur.End = endMin
			}
			continue
		}
		clusters = append(clusters, cur)
		cur = Cluster{Members: []int{i}, End: endMin}
	}
	if len(cur.Members) > 0 {
		clusters = append(clusters, cur)
	}
	return clusters
}

// ColumnAssignment holds the column packing for one cluster.
//
// Columns is an arena of lanes; each lane lists sorted-slice indices in the
// order they were placed. Members, Column and Span are parallel slices.
type ColumnAssignment struct {
	Members []int
	Columns [][]int
	Column  []int
	Span    []int
}

// AssignColumns places each member into the first lane whose last event ends at
// or before the member starts, opening a new lane when none fits. Earlier
// placements are never revisited.
func AssignColumns(sorted []model.Event, c Cluster) ColumnAssignment {
	a := ColumnAssignment{
		Members: c.Members,
		Column:  make([]int, len(c.Members)),
		Span:    make([]int, len(c.Members)),
	}
	for k, idx := range c.Members {
		ev := sorted[idx]
		placed := false
		for col, lane := range a.Columns {
			last := sorted[lane[len(lane)-1]]
			if !last.End.After(ev.Start) {
				a.Columns[col] = append(lane, idx)
				a.Column[k] = col
				placed = true
				break
			}
		}
		if !placed {
			a.Columns = append(a.Columns, []int{idx})
			a.Column[k] = len(a.Columns) - 1
		}
		a.Span[k] = 1
	}
	return a
}

// Widen extends each member rightwards across lanes holding nothing that
// overlaps it, stopping at the first blocked lane. There is no backtracking.
func (a *ColumnAssignment) Widen(sorted []model.Event) {
	for k, idx := range a.Members {
		ev := sorted[idx]
		span := 1
		for next := a.Column[k] + 1; next < len(a.Columns); next++ {
			if laneOverlaps(sorted, a.Columns[next], ev) {
				break
			}
			span++
		}
		a.Span[k] = span
	}
}

func laneOverlaps(sorted []model.Event, lane []int, ev model.Event) bool {
	for _, idx := range lane {
		if sorted[idx].Overlaps(ev) {
			return true
		}
	}
	return false
}

func minutesSince(anchor, t time.Time) float64 {
	m := t.Sub(anchor).Minutes()
	if m < 0 {
		return 0
	}
	return m
}

func clampMinutes(m float64) float64 {
	if m < 0 {
		return 0
	}
	if m > MinutesInDay {
		return MinutesInDay
	}
	return m
}
