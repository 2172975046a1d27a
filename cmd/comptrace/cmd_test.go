package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"comptrace/internal/trace"
)

// newTestRoot builds a fresh command tree so flag state never leaks between
// tests.
func newTestRoot(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	root := &cobra.Command{
		Use:               "comptrace",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupCommon,
	}
	addPersistentFlags(root.PersistentFlags())

	replay := &cobra.Command{Use: "replay", Args: cobra.MinimumNArgs(1), RunE: runReplay}
	addReplayFlags(replay.Flags())
	summary := &cobra.Command{Use: "summary", Args: cobra.ExactArgs(1), RunE: runSummary}
	summary.Flags().Int("top", 10, "")
	summary.Flags().Bool("json", false, "")
	convert := &cobra.Command{Use: "convert", Args: cobra.ExactArgs(2), RunE: runConvert}
	root.AddCommand(replay, summary, convert)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	return root, &out
}

const sampleLog = `# main.c with one include and two functions
{"sig":"enter","t":0,"id":"/src/main.c"}
{"sig":"enter","t":5000,"id":"/src/inc/x.h","dir":"/src/inc"}
{"sig":"leave","t":12000}
{"sig":"decl","t":20000}
{"sig":"phase","t":22000,"phase":"*free_lang_data","pass_kind":"simple_ipa","pass_number":1}
{"sig":"leaf","t":30000,"leaf":"f1","id":"/src/main.c","scope":"NS","scope_kind":"namespace"}
{"sig":"phase","t":50000,"phase":"visibility","pass_kind":"simple_ipa","pass_number":2}
{"sig":"end","t":60000}
`

func TestReplayThenSummary(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := os.WriteFile("build.ndjson", []byte(sampleLog), 0o600); err != nil {
		t.Fatalf("write log: %v", err)
	}
	outDir := t.TempDir()

	root, out := newTestRoot(t)
	root.SetArgs([]string{"replay", "--ui", "off", "--color", "off", "--trace-dir", outDir, "--format", "ndjson", "build.ndjson"})
	if err := root.Execute(); err != nil {
		t.Fatalf("replay: %v\n%s", err, out.String())
	}
	matches, err := filepath.Glob(filepath.Join(outDir, "trace_*.ndjson"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("traces = %v, %v", matches, err)
	}
	if !strings.Contains(out.String(), "build.ndjson -> "+matches[0]) {
		t.Fatalf("replay output = %q", out.String())
	}

	root, out = newTestRoot(t)
	root.SetArgs([]string{"summary", "--color", "off", "--json", matches[0]})
	if err := root.Execute(); err != nil {
		t.Fatalf("summary: %v", err)
	}
	for _, want := range []string{`"events": 5`, `"category": "PREPROCESS"`, `"name": "*free_lang_data"`} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("summary missing %s:\n%s", want, out.String())
		}
	}
}

func TestReplayNeedsTarget(t *testing.T) {
	t.Chdir(t.TempDir())
	root, _ := newTestRoot(t)
	root.SetArgs([]string{"replay", "--ui", "off", "missing.ndjson"})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "--trace-dir") {
		t.Fatalf("err = %v, want a hint about --trace-dir", err)
	}
}

func TestSetupTracingPrecedence(t *testing.T) {
	fromFile := loadedConfig{Config: fileConfig{Trace: traceFileConfig{Dir: "/cfg/traces", Format: "msgpack"}}}
	cases := []struct {
		name string
		args []string
		cfg  loadedConfig
		want trace.SinkConfig
	}{
		{"file config", nil, fromFile, trace.SinkConfig{Dir: "/cfg/traces", Format: trace.FormatMsgpack}},
		{"flag target wins", []string{"--trace", "out.json"}, fromFile, trace.SinkConfig{File: "out.json", Format: trace.FormatMsgpack}},
		{"flag format wins", []string{"--format", "chrome"}, fromFile, trace.SinkConfig{Dir: "/cfg/traces", Format: trace.FormatChrome}},
		{"stdout", []string{"--trace", "-"}, loadedConfig{}, trace.SinkConfig{File: "-"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			root, _ := newTestRoot(t)
			if err := root.ParseFlags(tc.args); err != nil {
				t.Fatalf("parse flags: %v", err)
			}
			got, err := setupTracing(root, tc.cfg)
			if err != nil {
				t.Fatalf("setupTracing: %v", err)
			}
			if got != tc.want {
				t.Fatalf("sink = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestSetupTracingErrors(t *testing.T) {
	cases := [][]string{
		{},
		{"--trace", "a.json", "--trace-dir", "/tmp"},
		{"--trace-dir", "/tmp", "--format", "xml"},
	}
	for _, args := range cases {
		root, _ := newTestRoot(t)
		if err := root.ParseFlags(args); err != nil {
			t.Fatalf("parse flags: %v", err)
		}
		if _, err := setupTracing(root, loadedConfig{}); err == nil {
			t.Fatalf("setupTracing(%v) succeeded, want an error", args)
		}
	}
}

func TestReadUIMode(t *testing.T) {
	cases := map[string]uiMode{"": uiModeAuto, "AUTO": uiModeAuto, "on": uiModeOn, "false": uiModeOff}
	for in, want := range cases {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Fatalf("readUIMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := readUIMode("sometimes"); err == nil {
		t.Fatalf("expected an error for an unknown mode")
	}
	if shouldUseTUI(uiModeAuto, true) {
		t.Fatalf("auto mode must not draw over a trace written to stdout")
	}
}

func TestReplayShortensPathsMissingLocally(t *testing.T) {
	t.Chdir(t.TempDir())
	// paths recorded on another machine; none of them exist here
	inc := filepath.Join(t.TempDir(), "build", "host", "inc", "a")
	log := fmt.Sprintf(`{"sig":"enter","t":0,"id":%q}
{"sig":"enter","t":10,"id":%q,"dir":%q}
{"sig":"leave","t":20}
{"sig":"decl","t":30}
{"sig":"leaf","t":40,"leaf":"f","id":%q}
{"sig":"end","t":50}
`, filepath.Join(inc, "main.c"), filepath.Join(inc, "x.h"), inc, filepath.Join(inc, "x.h"))
	if err := os.WriteFile("remote.ndjson", []byte(log), 0o600); err != nil {
		t.Fatalf("write log: %v", err)
	}
	target := filepath.Join(t.TempDir(), "remote.ndjson")

	root, out := newTestRoot(t)
	root.SetArgs([]string{"replay", "--ui", "off", "--color", "off", "--trace", target, "remote.ndjson"})
	if err := root.Execute(); err != nil {
		t.Fatalf("replay: %v\n%s", err, out.String())
	}
	if strings.Contains(out.String(), "can't resolve") {
		t.Fatalf("unexpected resolve warning:\n%s", out.String())
	}
	f, err := os.Open(target)
	if err != nil {
		t.Fatalf("open trace: %v", err)
	}
	defer f.Close()
	events, err := trace.ReadEvents(f, trace.FormatNDJSON)
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	var header, leaf trace.Event
	for _, ev := range events {
		switch ev.Category {
		case trace.CategoryPreprocess:
			if ev.Name != filepath.Join(inc, "main.c") {
				header = ev
			}
		case trace.CategoryFunction:
			leaf = ev
		}
	}
	if header.Name != "x.h" {
		t.Fatalf("include events = %+v, want one named x.h", events)
	}
	if file, _ := leaf.Attrs.Get("file"); file != "x.h" {
		t.Fatalf("leaf file = %q, want x.h", file)
	}
}

func TestConvertCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := os.WriteFile("build.ndjson", []byte(sampleLog), 0o600); err != nil {
		t.Fatalf("write log: %v", err)
	}
	root, out := newTestRoot(t)
	root.SetArgs([]string{"convert", "--color", "off", "build.ndjson", "build.mp"})
	if err := root.Execute(); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !strings.Contains(out.String(), "(8 signals)") {
		t.Fatalf("convert output = %q", out.String())
	}

	traceDir := t.TempDir()
	root, out = newTestRoot(t)
	root.SetArgs([]string{"replay", "--ui", "off", "--color", "off", "--trace-dir", traceDir, "build.mp"})
	if err := root.Execute(); err != nil {
		t.Fatalf("replay of converted log: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "(5 events)") {
		t.Fatalf("replay output = %q", out.String())
	}
}
