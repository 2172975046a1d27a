package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestBanner(t *testing.T) {
	orig, origNoColor := Version, color.NoColor
	t.Cleanup(func() {
		Version, color.NoColor = orig, origNoColor
	})
	color.NoColor = true

	cases := []struct {
		version string
		want    string
	}{
		{"1.2.3", "1.2.3"},
		{"0.1.0-dev", "0.1.0-dev"},
		{"1.2.3+abc", "1.2.3+abc"},
		{"nightly", "nightly"},
	}
	for _, tc := range cases {
		Version = tc.version
		if got := Banner(); got != tc.want {
			t.Errorf("Banner() with %q = %q, want %q", tc.version, got, tc.want)
		}
	}

	color.NoColor = false
	Version = "1.2.3"
	if got := Banner(); got == "1.2.3" {
		t.Errorf("Banner() should be coloured when colour is enabled")
	}
}
