package store

import (
	"sort"
	"time"

	"github.com/rdleal/intervalst/interval"

	"daygrid/internal/model"
)

type span struct {
	start, end int64
}

// bucket holds every event id sharing one exact interval; the tree keys on
// (start, end) so duplicates share a node.
type bucket struct {
	ids []string
}

// Index answers "which events overlap this window" with an interval search tree.
type Index struct {
	tree    *interval.SearchTree[*bucket, time.Time]
	buckets map[span]*bucket
	events  map[string]model.Event
}

func NewIndex(events []model.Event) *Index {
	x := &Index{
		tree:    interval.NewSearchTree[*bucket](func(a, b time.Time) int { return a.Compare(b) }),
		buckets: map[span]*bucket{},
		events:  map[string]model.Event{},
	}
	for _, ev := range events {
		x.Add(ev)
	}
	return x
}

// treeSpan widens empty or inverted intervals to one nanosecond so they are
// still findable at their start.
func treeSpan(ev model.Event) (time.Time, time.Time) {
	end := ev.End
	if !end.After(ev.Start) {
		end = ev.Start.Add(time.Nanosecond)
	}
	return ev.Start, end
}

func (x *Index) Add(ev model.Event) {
	if _, ok := x.events[ev.ID]; ok {
		x.Remove(ev.ID)
	}
	start, end := treeSpan(ev)
	key := span{start.UnixNano(), end.UnixNano()}
	b, ok := x.buckets[key]
	if !ok {
		b = &bucket{}
		if err := x.tree.Insert(start, end, b); err != nil {
			return
		}
		x.buckets[key] = b
	}
	b.ids = append(b.ids, ev.ID)
	x.events[ev.ID] = ev
}

func (x *Index) Remove(id string) {
	ev, ok := x.events[id]
	if !ok {
		return
	}
	delete(x.events, id)
	start, end := treeSpan(ev)
	key := span{start.UnixNano(), end.UnixNano()}
	b, ok := x.buckets[key]
	if !ok {
		return
	}
	for i, other := range b.ids {
		if other == id {
			b.ids = append(b.ids[:i], b.ids[i+1:]...)
			break
		}
	}
	if len(b.ids) == 0 {
		_ = x.tree.Delete(start, end)
		delete(x.buckets, key)
	}
}

func (x *Index) Len() int { return len(x.events) }

// Between returns events overlapping the half-open window [from, to), ordered
// by start then id.
func (x *Index) Between(from, to time.Time) []model.Event {
	out := []model.Event{}
	if !to.After(from) {
		return out
	}
	hits, ok := x.tree.AllIntersections(from, to)
	if !ok {
		return out
	}
	for _, b := range hits {
		for _, id := range b.ids {
			ev := x.events[id]
			start, end := treeSpan(ev)
			// The tree matches closed intervals; keep only half-open overlaps.
			if start.Before(to) && end.After(from) {
				out = append(out, ev)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
