package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const configFileName = "comptrace.toml"

// fileConfig mirrors comptrace.toml. Every key is optional; flags win.
type fileConfig struct {
	Trace  traceFileConfig  `toml:"trace"`
	Replay replayFileConfig `toml:"replay"`
}

type traceFileConfig struct {
	File   string `toml:"file"`
	Dir    string `toml:"dir"`
	Format string `toml:"format"`
}

type replayFileConfig struct {
	Jobs int    `toml:"jobs"`
	UI   string `toml:"ui"`
}

type loadedConfig struct {
	Path   string // empty when no file was found
	Config fileConfig
}

func findConfig(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// loadConfig reads explicit when set, otherwise the nearest comptrace.toml
// above startDir. A missing implicit file is not an error.
func loadConfig(explicit, startDir string) (loadedConfig, error) {
	path := explicit
	if path == "" {
		found, ok, err := findConfig(startDir)
		if err != nil || !ok {
			return loadedConfig{}, err
		}
		path = found
	}
	cfg, err := decodeConfig(path)
	if err != nil {
		return loadedConfig{}, err
	}
	// относительные пути в файле считаются от его каталога
	root := filepath.Dir(path)
	if cfg.Trace.Dir != "" && !filepath.IsAbs(cfg.Trace.Dir) {
		cfg.Trace.Dir = filepath.Join(root, cfg.Trace.Dir)
	}
	if cfg.Trace.File != "" && cfg.Trace.File != "-" && !filepath.IsAbs(cfg.Trace.File) {
		cfg.Trace.File = filepath.Join(root, cfg.Trace.File)
	}
	return loadedConfig{Path: path, Config: cfg}, nil
}

func decodeConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return fileConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fileConfig{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("trace", "file") && meta.IsDefined("trace", "dir") {
		return fileConfig{}, fmt.Errorf("%s: [trace].file and [trace].dir are mutually exclusive", path)
	}
	if meta.IsDefined("replay", "jobs") && cfg.Replay.Jobs < 0 {
		return fileConfig{}, fmt.Errorf("%s: [replay].jobs must not be negative", path)
	}
	return cfg, nil
}
