package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"comptrace/internal/observ"
	"comptrace/internal/replay"
)

func TestProgressModelTracksFinalStatus(t *testing.T) {
	events := make(chan replay.Event)
	model := NewProgressModel("replay", []string{"a.ndjson", "b.ndjson"}, events).(*progressModel)

	steps := []replay.Event{
		{File: "a.ndjson", Status: replay.StatusWorking},
		{File: "a.ndjson", Status: replay.StatusDone, Elapsed: 3 * time.Millisecond},
		{File: "b.ndjson", Status: replay.StatusError},
		{File: "a.ndjson", Status: replay.StatusWorking}, // late event after done is ignored
		{File: "unknown.ndjson", Status: replay.StatusDone},
	}
	for _, ev := range steps {
		model.Update(eventMsg(ev))
	}
	if model.finished != 2 || model.failed != 1 {
		t.Fatalf("finished=%d failed=%d, want 2 and 1", model.finished, model.failed)
	}
	if model.items[0].status != replay.StatusDone {
		t.Fatalf("a.ndjson status = %s", model.items[0].status)
	}
	if got := model.percent(); got != 1 {
		t.Fatalf("percent = %v", got)
	}

	view := model.View()
	for _, want := range []string{"(2/2)", "1 failed", "a.ndjson", "3.0ms"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}

	_, cmd := model.Update(doneMsg{})
	if !model.done || cmd == nil {
		t.Fatalf("done message should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"/very/long/path/file.ndjson", 10, "/ver..."},
		{"abcdef", 3, "abc"},
		{"abc", 0, "abc"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.width); got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}

func TestRenderSummary(t *testing.T) {
	r := observ.Report{
		Events:     2,
		WallMS:     12.5,
		Categories: []observ.CategoryReport{{Category: "FUNCTION", Count: 2, TotalMS: 12}},
		Top:        []observ.EventReport{{Name: "main", Category: "FUNCTION", DurationMS: 10, File: "main.c"}},
	}
	out := RenderSummary(r, 80)
	for _, want := range []string{"2 events", "FUNCTION", "main (main.c)", "10.00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
}
