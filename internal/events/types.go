// Package events quantifies how prices react around known external events:
// percentage changes at fixed offsets, compounded cumulative returns before
// and after each event, and a Welch two-sample t-test on the surrounding
// price windows.
package events

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Event is a named calendar event supplied by the caller
type Event struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

// OptionalFloat is an explicitly-missing numeric value. A missing offset
// price or an undefined cumulative return is Valid=false, which is
// legitimately absent data, not an error. Marshals to JSON null when
// invalid.
type OptionalFloat struct {
	Float64 float64
	Valid   bool
}

// Some wraps a present value
func Some(v float64) OptionalFloat {
	return OptionalFloat{Float64: v, Valid: true}
}

// None is the absent value
func None() OptionalFloat {
	return OptionalFloat{}
}

// MarshalJSON encodes absent values as null
func (o OptionalFloat) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%g", o.Float64)), nil
}

// ImpactRecord is one row of the event-impact table. Computed once per
// analysis run and never mutated afterward.
type ImpactRecord struct {
	Event                  string        `json:"event"`
	Date                   time.Time     `json:"date"`
	Change1M               OptionalFloat `json:"change_1m"`
	Change3M               OptionalFloat `json:"change_3m"`
	Change6M               OptionalFloat `json:"change_6m"`
	CumulativeReturnBefore OptionalFloat `json:"cumulative_return_before"`
	CumulativeReturnAfter  OptionalFloat `json:"cumulative_return_after"`
}

// TTestResult compares the pre- and post-event price samples
type TTestResult struct {
	TStatistic float64 `json:"t_statistic"`
	PValue     float64 `json:"p_value"`
	NBefore    int     `json:"n_before"`
	NAfter     int     `json:"n_after"`
}

// eventDateLayouts are the accepted date formats in the events file
var eventDateLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
}

// LoadEvents reads a YAML mapping of event name to date string. Events are
// returned sorted by name so processing order is deterministic. The only
// validation is date parseability.
func LoadEvents(path string) ([]Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read events file: %w", err)
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse events file %s: %w", path, err)
	}

	events := make([]Event, 0, len(raw))
	for name, dateStr := range raw {
		date, err := parseEventDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("event %q: %w", name, err)
		}
		events = append(events, Event{Name: name, Date: date})
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Name < events[j].Name })
	return events, nil
}

// parseEventDate parses a date string, normalizing to UTC midnight
func parseEventDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}
