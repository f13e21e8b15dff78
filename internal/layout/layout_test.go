package layout

import (
	"fmt"
	"math"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"daygrid/internal/model"
)

var testDay = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return testDay.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func ev(id string, sh, sm, eh, em int) model.Event {
	return model.Event{ID: id, Start: at(sh, sm), End: at(eh, em)}
}

func byID(t *testing.T, got []Positioned) map[string]Positioned {
	t.Helper()
	out := map[string]Positioned{}
	for _, p := range got {
		if _, dup := out[p.ID]; dup {
			t.Fatalf("duplicate id %q in output", p.ID)
		}
		out[p.ID] = p
	}
	return out
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestLayoutDay_EmptyInput(t *testing.T) {
	t.Parallel()
	got := LayoutDay(nil, Options{HourHeight: 60})
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestLayoutDay_TwoOverlappingAndOneSolo(t *testing.T) {
	t.Parallel()
	events := []model.Event{
		ev("c", 11, 0, 12, 0),
		ev("a", 9, 0, 10, 0),
		ev("b", 9, 30, 10, 30),
	}
	got := LayoutDay(events, Options{HourHeight: 60})
	if len(got) != 3 {
		t.Fatalf("expected 3 positioned events, got %d", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" || got[2].ID != "c" {
		t.Fatalf("expected start order a,b,c; got %s,%s,%s", got[0].ID, got[1].ID, got[2].ID)
	}

	m := byID(t, got)
	if m["a"].Column != 0 || m["b"].Column != 1 {
		t.Fatalf("expected a=col0 b=col1, got a=%d b=%d", m["a"].Column, m["b"].Column)
	}
	for _, id := range []string{"a", "b"} {
		if m[id].ColumnCount != 2 || !approx(m[id].Width, 0.5) {
			t.Fatalf("%s: expected 2 columns at width 0.5, got count=%d width=%v", id, m[id].ColumnCount, m[id].Width)
		}
	}
	c := m["c"]
	if c.Column != 0 || c.ColumnSpan != 1 || c.ColumnCount != 1 || !approx(c.Width, 1) {
		t.Fatalf("expected c full width, got %+v", c)
	}
	if !approx(m["a"].Top, 540) || !approx(m["a"].Height, 60) {
		t.Fatalf("expected a top=540 height=60, got top=%v height=%v", m["a"].Top, m["a"].Height)
	}
	if m["b"].ZIndex != 2 || m["a"].ZIndex != 1 {
		t.Fatalf("expected zIndex column+1, got a=%d b=%d", m["a"].ZIndex, m["b"].ZIndex)
	}
}

func TestLayoutDay_NestedEventDoesNotWiden(t *testing.T) {
	t.Parallel()
	got := byID(t, LayoutDay([]model.Event{
		ev("a", 9, 0, 10, 0),
		ev("b", 9, 15, 9, 45),
	}, Options{HourHeight: 60}))

	if got["a"].Column != 0 || got["b"].Column != 1 {
		t.Fatalf("expected a=col0 b=col1, got a=%d b=%d", got["a"].Column, got["b"].Column)
	}
	if got["b"].ColumnCount != 2 || got["b"].ColumnSpan != 1 {
		t.Fatalf("expected b in a 2-column cluster with span 1, got %+v", got["b"])
	}
	if got["a"].ColumnSpan != 1 {
		t.Fatalf("expected a blocked by b, got span %d", got["a"].ColumnSpan)
	}
}

func TestLayoutDay_WidensAcrossFreeColumns(t *testing.T) {
	t.Parallel()
	got := byID(t, LayoutDay([]model.Event{
		ev("long", 9, 0, 12, 0),
		ev("early", 9, 0, 10, 0),
		ev("short", 9, 0, 9, 30),
		ev("late", 10, 0, 11, 0),
	}, Options{HourHeight: 60}))

	late := got["late"]
	if late.Column != 1 {
		t.Fatalf("expected late to reuse column 1, got %d", late.Column)
	}
	if late.ColumnSpan != 2 || !approx(late.Width, 2.0/3.0) {
		t.Fatalf("expected late to widen into column 2, got span=%d width=%v", late.ColumnSpan, late.Width)
	}
	if got["short"].Column != 2 || got["short"].ColumnSpan != 1 {
		t.Fatalf("expected short in last column, got %+v", got["short"])
	}
}

func TestLayoutDay_ChainedOverlapsShareCluster(t *testing.T) {
	t.Parallel()
	// b bridges a and c even though a and c never touch.
	got := byID(t, LayoutDay([]model.Event{
		ev("a", 9, 0, 10, 0),
		ev("b", 9, 45, 11, 0),
		ev("c", 10, 30, 11, 30),
	}, Options{HourHeight: 60}))

	for _, id := range []string{"a", "b", "c"} {
		if got[id].ColumnCount != 2 {
			t.Fatalf("%s: expected shared 2-column cluster, got %d", id, got[id].ColumnCount)
		}
	}
	if got["c"].Column != 0 {
		t.Fatalf("expected c to reuse column 0 after a ends, got %d", got["c"].Column)
	}
}

func TestLayoutDay_BackToBackEventsAreFullWidth(t *testing.T) {
	t.Parallel()
	got := LayoutDay([]model.Event{
		ev("a", 9, 0, 10, 0),
		ev("b", 10, 0, 11, 0),
		ev("c", 13, 0, 13, 30),
	}, Options{HourHeight: 60})
	for _, p := range got {
		if p.Column != 0 || p.ColumnSpan != 1 || !approx(p.Width, 1) || p.ColumnCount != 1 {
			t.Fatalf("expected full width for %s, got %+v", p.ID, p)
		}
	}
}

func TestLayoutDay_ExactDuplicatesSplit(t *testing.T) {
	t.Parallel()
	got := LayoutDay([]model.Event{
		ev("x", 14, 0, 15, 0),
		ev("y", 14, 0, 15, 0),
	}, Options{HourHeight: 60})
	if got[0].ID != "x" || got[1].ID != "y" {
		t.Fatalf("expected ties to keep input order, got %s,%s", got[0].ID, got[1].ID)
	}
	if got[0].Column == got[1].Column {
		t.Fatalf("expected duplicates in different columns")
	}
}

func TestLayoutDay_MinimumHeightFloor(t *testing.T) {
	t.Parallel()
	got := LayoutDay([]model.Event{ev("tiny", 8, 0, 8, 1)}, Options{HourHeight: 60})
	if got[0].Height < DefaultMinimumHeight {
		t.Fatalf("expected height >= %v, got %v", DefaultMinimumHeight, got[0].Height)
	}

	got = LayoutDay([]model.Event{ev("tiny", 8, 0, 8, 1)}, Options{HourHeight: 60, MinimumHeight: -1})
	if !approx(got[0].Height, 5) {
		t.Fatalf("expected 5-minute display floor without height floor, got %v", got[0].Height)
	}
}

func TestLayoutDay_ClampsToVisibleDay(t *testing.T) {
	t.Parallel()
	lateNight := model.Event{ID: "late", Start: at(23, 0), End: at(25, 0)}
	earlyMorning := model.Event{ID: "early", Start: at(-2, 0), End: at(1, 0)}

	got := byID(t, LayoutDay([]model.Event{lateNight, earlyMorning}, Options{HourHeight: 60, DayStart: testDay}))
	if !approx(got["late"].Top, 23*60) || !approx(got["late"].Height, 60) {
		t.Fatalf("expected late truncated at midnight, got top=%v height=%v", got["late"].Top, got["late"].Height)
	}
	if !approx(got["early"].Top, 0) || !approx(got["early"].Height, 60) {
		t.Fatalf("expected early clamped to 00:00, got top=%v height=%v", got["early"].Top, got["early"].Height)
	}
	if !got["late"].End.Equal(at(25, 0)) {
		t.Fatalf("stored interval must pass through untouched")
	}
}

func TestLayoutDay_InvertedIntervalDoesNotPanic(t *testing.T) {
	t.Parallel()
	got := LayoutDay([]model.Event{{ID: "bad", Start: at(10, 0), End: at(9, 0)}}, Options{HourHeight: 60})
	if len(got) != 1 || got[0].Height < 5 {
		t.Fatalf("expected a rendered event, got %+v", got)
	}
}

func TestLayoutDay_DefaultsDayStartToFirstEvent(t *testing.T) {
	t.Parallel()
	got := LayoutDay([]model.Event{ev("a", 6, 0, 7, 0)}, Options{})
	if !approx(got[0].Top, 6*DefaultHourHeight) {
		t.Fatalf("expected top at 06:00 with default hour height, got %v", got[0].Top)
	}
}

func TestLayoutDay_DoesNotMutateInput(t *testing.T) {
	t.Parallel()
	events := []model.Event{ev("b", 10, 0, 11, 0), ev("a", 9, 0, 10, 30)}
	before := append([]model.Event(nil), events...)
	_ = LayoutDay(events, Options{HourHeight: 60})
	if !reflect.DeepEqual(events, before) {
		t.Fatalf("input slice was reordered or modified")
	}
}

func randomEvents(r *rand.Rand, n int) []model.Event {
	events := make([]model.Event, 0, n)
	for i := 0; i < n; i++ {
		start := r.Intn(MinutesInDay - 30)
		length := 5 + r.Intn(180)
		events = append(events, model.Event{
			ID:    fmt.Sprintf("e%d", i),
			Start: testDay.Add(time.Duration(start) * time.Minute),
			End:   testDay.Add(time.Duration(start+length) * time.Minute),
		})
	}
	return events
}

func TestLayoutDay_OverlappingEventsNeverShareColumns(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		got := LayoutDay(randomEvents(r, 25), Options{HourHeight: 60, DayStart: testDay})
		for i := range got {
			a := got[i]
			if a.Column+a.ColumnSpan > a.ColumnCount {
				t.Fatalf("round %d: %s spans past its cluster: %+v", round, a.ID, a)
			}
			for j := range got {
				if i == j || !a.Overlaps(got[j].Event) {
					continue
				}
				b := got[j]
				if a.Column == b.Column {
					t.Fatalf("round %d: overlapping %s and %s share column %d", round, a.ID, b.ID, a.Column)
				}
				if b.Column >= a.Column && b.Column < a.Column+a.ColumnSpan {
					t.Fatalf("round %d: %s span [%d,%d) covers overlapping %s in column %d",
						round, a.ID, a.Column, a.Column+a.ColumnSpan, b.ID, b.Column)
				}
			}
		}
	}
}

func TestLayoutDay_Deterministic(t *testing.T) {
	t.Parallel()
	events := randomEvents(rand.New(rand.NewSource(7)), 40)
	first := LayoutDay(events, Options{HourHeight: 48})
	second := LayoutDay(events, Options{HourHeight: 48})
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("layout differs between identical runs")
	}
}

func TestLayoutDay_GeometryScalesWithHourHeight(t *testing.T) {
	t.Parallel()
	events := randomEvents(rand.New(rand.NewSource(3)), 20)
	base := LayoutDay(events, Options{HourHeight: 40, MinimumHeight: -1, DayStart: testDay})
	double := LayoutDay(events, Options{HourHeight: 80, MinimumHeight: -1, DayStart: testDay})
	for i := range base {
		if !approx(double[i].Top, 2*base[i].Top) || !approx(double[i].Height, 2*base[i].Height) {
			t.Fatalf("%s: expected doubled geometry, got %v/%v vs %v/%v",
				base[i].ID, base[i].Top, base[i].Height, double[i].Top, double[i].Height)
		}
	}
}

func TestAssignColumns_GreedyFirstFit(t *testing.T) {
	t.Parallel()
	sorted := SortByStart([]model.Event{
		ev("a", 9, 0, 10, 0),
		ev("b", 9, 0, 9, 30),
		ev("c", 9, 30, 10, 0),
	})
	clusters := BuildClusters(sorted, testDay)
	if len(clusters) != 1 || len(clusters[0].Members) != 3 {
		t.Fatalf("expected one cluster of three, got %+v", clusters)
	}
	a := AssignColumns(sorted, clusters[0])
	if len(a.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(a.Columns))
	}
	if a.Column[2] != 1 {
		t.Fatalf("expected c to follow b in column 1, got %d", a.Column[2])
	}
	a.Widen(sorted)
	for k, span := range a.Span {
		if span != 1 {
			t.Fatalf("member %d: expected span 1, got %d", k, span)
		}
	}
}
