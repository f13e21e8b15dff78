package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "daygrid/internal/log"
)

const defaultMaxOccurrencesPerEvent = 5000

// Occurrence is one concrete instance of a (possibly recurring) VEVENT.
type Occurrence struct {
	SourceID string `json:"sourceId"`
	UID      string `json:"uid"`
	// InstanceKey identifies the instance within its series: the original
	// (pre-override) start in UTC, RFC3339.
	InstanceKey string `json:"instanceKey"`

	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	AllDay      bool      `json:"allDay"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

type ExpandConfig struct {
	// DisplayLocation is where occurrences are normalized to; nil means time.Local.
	DisplayLocation *time.Location
	// Occurrences overlapping [RangeStart, RangeEnd) are kept.
	RangeStart time.Time
	RangeEnd   time.Time
	// MaxOccurrencesPerEvent caps runaway rules; zero means 5000.
	MaxOccurrencesPerEvent int
}

type ExpandResult struct {
	Occurrences []Occurrence
	// Truncated lists UIDs whose series hit the cap.
	Truncated []string
}

// ExpandOccurrences turns parsed VEVENTs into concrete occurrences within the
// configured window, applying RRULE, EXDATE and RECURRENCE-ID overrides. The
// result is sorted by start, then UID.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var res ExpandResult
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return res, errors.New("expand: range end before range start")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	type series struct {
		base      []ParsedEvent
		overrides []ParsedEvent
	}
	byUID := map[string]*series{}
	order := []string{}
	for _, ev := range events {
		key := ev.Source.ID + "\x00" + ev.UID
		s, ok := byUID[key]
		if !ok {
			s = &series{}
			byUID[key] = s
			order = append(order, key)
		}
		if ev.IsOverride() {
			s.overrides = append(s.overrides, ev)
		} else {
			s.base = append(s.base, ev)
		}
	}

	res.Occurrences = make([]Occurrence, 0)
	for _, key := range order {
		s := byUID[key]
		used := map[int]bool{}
		for _, base := range s.base {
			occ, capped := expandSeries(base, s.overrides, used, cfg)
			res.Occurrences = append(res.Occurrences, occ...)
			if capped {
				res.Truncated = append(res.Truncated, base.UID)
				appLog.Error("ics: occurrence cap reached", errors.New("too many occurrences"),
					"uid", base.UID, "cap", cfg.MaxOccurrencesPerEvent)
			}
		}
		// Overrides whose instance the rule no longer generates (or that have
		// no base at all) still stand on their own.
		for i, ov := range s.overrides {
			if used[i] || !overlaps(ov.Start, ov.End, cfg.RangeStart, cfg.RangeEnd) {
				continue
			}
			res.Occurrences = append(res.Occurrences, makeOccurrence(ov, *ov.RecurrenceID, ov.Start, ov.End, cfg.DisplayLocation))
		}
	}

	sort.SliceStable(res.Occurrences, func(i, j int) bool {
		a, b := res.Occurrences[i], res.Occurrences[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.UID < b.UID
	})
	return res, nil
}

func expandSeries(ev ParsedEvent, overrides []ParsedEvent, used map[int]bool, cfg ExpandConfig) ([]Occurrence, bool) {
	out := []Occurrence{}
	dur := ev.End.Sub(ev.Start)

	starts := []time.Time{ev.Start}
	capped := false
	if ev.RRule != "" {
		r, err := rrule.StrToRRule(ev.RRule)
		if err != nil {
			appLog.Error("ics: bad RRULE", err, "uid", ev.UID, "rrule", ev.RRule)
			return out, false
		}
		r.DTStart(ev.Start)

		var set rrule.Set
		set.RRule(r)
		for _, ex := range ev.ExDates {
			set.ExDate(ex.In(ev.Start.Location()))
		}
		// Widen the window by one duration so instances that start before the
		// range but run into it are found.
		from := cfg.RangeStart.Add(-dur).In(ev.Start.Location())
		to := cfg.RangeEnd.In(ev.Start.Location())
		starts = set.Between(from, to, true)
		if len(starts) > cfg.MaxOccurrencesPerEvent {
			starts = starts[:cfg.MaxOccurrencesPerEvent]
			capped = true
		}
	}

	for _, start := range starts {
		orig := start
		occEv, end := ev, start.Add(dur)
		if i, ok := findOverride(overrides, orig); ok {
			used[i] = true
			occEv = overrides[i]
			start, end = occEv.Start, occEv.End
		}
		if !overlaps(start, end, cfg.RangeStart, cfg.RangeEnd) {
			continue
		}
		out = append(out, makeOccurrence(occEv, orig, start, end, cfg.DisplayLocation))
	}
	return out, capped
}

func findOverride(overrides []ParsedEvent, start time.Time) (int, bool) {
	for i, ov := range overrides {
		if ov.RecurrenceID != nil && ov.RecurrenceID.Equal(start) {
			return i, true
		}
	}
	return 0, false
}

func makeOccurrence(ev ParsedEvent, orig, start, end time.Time, loc *time.Location) Occurrence {
	if ev.AllDay {
		// All-day dates are calendar days wherever they are displayed.
		days := int(end.Sub(start).Round(24*time.Hour) / (24 * time.Hour))
		if days < 1 {
			days = 1
		}
		y, m, d := start.Date()
		start = time.Date(y, m, d, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 0, days)
	} else {
		start, end = start.In(loc), end.In(loc)
	}
	return Occurrence{
		SourceID:    ev.Source.ID,
		UID:         ev.UID,
		InstanceKey: orig.UTC().Format(time.RFC3339),
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		AllDay:      ev.AllDay,
		Start:       start,
		End:         end,
	}
}

// overlaps is half-open: [aStart, aEnd) against [bStart, bEnd).
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
