// Package observ summarizes written traces: where the compile time went.
package observ

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"comptrace/internal/trace"
)

// CategoryReport aggregates the events of one category.
type CategoryReport struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	TotalMS  float64 `json:"total_ms"`
}

// EventReport описывает одно событие из топа самых долгих.
type EventReport struct {
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	StartMS    float64 `json:"start_ms"`
	DurationMS float64 `json:"duration_ms"`
	File       string  `json:"file,omitempty"`
}

// Report is the aggregated view of a trace.
type Report struct {
	Events     int              `json:"events"`
	WallMS     float64          `json:"wall_ms"`
	Categories []CategoryReport `json:"categories"`
	Top        []EventReport    `json:"top"`
}

// Summarize groups events by category and keeps the top longest events.
// Categories come out in their enumeration order; top <= 0 keeps none.
func Summarize(events []trace.Event, top int) Report {
	report := Report{
		Events:     len(events),
		Categories: []CategoryReport{},
		Top:        []EventReport{},
	}
	if len(events) == 0 {
		return report
	}

	first, last := events[0].Interval.Start, events[0].Interval.End
	totals := make(map[trace.Category]*CategoryReport)
	durs := make(map[trace.Category]trace.Timestamp)
	for _, ev := range events {
		first = min(first, ev.Interval.Start)
		last = max(last, ev.Interval.End)
		c, ok := totals[ev.Category]
		if !ok {
			c = &CategoryReport{Category: ev.Category.String()}
			totals[ev.Category] = c
		}
		c.Count++
		durs[ev.Category] += ev.Interval.Duration()
	}
	report.WallMS = nanosToMillis(last - first)

	cats := make([]trace.Category, 0, len(totals))
	for cat := range totals {
		cats = append(cats, cat)
	}
	slices.Sort(cats)
	for _, cat := range cats {
		c := totals[cat]
		c.TotalMS = nanosToMillis(durs[cat])
		report.Categories = append(report.Categories, *c)
	}

	if top <= 0 {
		return report
	}
	sorted := slices.Clone(events)
	// долгие первыми; при равенстве раньше начавшиеся
	slices.SortStableFunc(sorted, func(a, b trace.Event) int {
		if c := cmp.Compare(b.Interval.Duration(), a.Interval.Duration()); c != 0 {
			return c
		}
		return cmp.Compare(a.Interval.Start, b.Interval.Start)
	})
	for _, ev := range sorted[:min(top, len(sorted))] {
		file, _ := ev.Attrs.Get("file")
		report.Top = append(report.Top, EventReport{
			Name:       ev.Name,
			Category:   ev.Category.String(),
			StartMS:    nanosToMillis(ev.Interval.Start - first),
			DurationMS: nanosToMillis(ev.Interval.Duration()),
			File:       file,
		})
	}
	return report
}

// Summary returns a human-readable rendering of the report.
func (r Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "events: %d, wall %.2f ms\n", r.Events, r.WallMS)
	if len(r.Categories) > 0 {
		b.WriteString("categories:\n")
	}
	for _, c := range r.Categories {
		fmt.Fprintf(&b, "  %-16s %6d %10.2f ms\n", c.Category, c.Count, c.TotalMS)
	}
	if len(r.Top) > 0 {
		b.WriteString("longest:\n")
	}
	for _, e := range r.Top {
		fmt.Fprintf(&b, "  %-32s %-16s %10.2f ms", e.Name, e.Category, e.DurationMS)
		if e.File != "" {
			b.WriteString("  // " + e.File)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func nanosToMillis(ts trace.Timestamp) float64 {
	return float64(time.Duration(ts)) / float64(time.Millisecond)
}
