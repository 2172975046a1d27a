package trace

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrNotPrefix is returned by Register when the origin directory does not
// contain the resource.
var ErrNotPrefix = errors.New("origin directory is not a prefix of resource")

// PathNormalizer turns absolute resource ids into shorter names relative to
// the directory they were found through. A name reachable from more than one
// resource is ambiguous; such resources keep their full id.
type PathNormalizer struct {
	seen      map[string]struct{} // every id Register has been called for
	aliases   map[string]string   // id as reported -> resolved id
	display   map[string]string   // id -> display name
	owners    map[string]string   // display name -> first id claiming it
	conflicts map[string]struct{}
}

// NewPathNormalizer creates an empty normalizer.
func NewPathNormalizer() *PathNormalizer {
	return &PathNormalizer{
		seen:      make(map[string]struct{}),
		aliases:   make(map[string]string),
		display:   make(map[string]string),
		owners:    make(map[string]string),
		conflicts: make(map[string]struct{}),
	}
}

// Register records the directory resourceID was reached through. Only the
// first call for a given id has any effect.
func (p *PathNormalizer) Register(resourceID, originDir string) error {
	id := normalizePath(resourceID)
	if _, ok := p.seen[id]; ok {
		return nil
	}
	p.seen[id] = struct{}{}

	name, ok := stripDir(id, normalizePath(originDir))
	if !ok {
		return fmt.Errorf("%w: can't normalize %s against %s", ErrNotPrefix, resourceID, originDir)
	}
	p.display[id] = name
	if owner, claimed := p.owners[name]; claimed {
		if owner != id {
			p.conflicts[name] = struct{}{}
		}
		return nil
	}
	p.owners[name] = id
	return nil
}

// Alias makes lookups of reported resolve to resolved, for hosts that report
// relative or symlinked paths.
func (p *PathNormalizer) Alias(reported, resolved string) {
	from, to := normalizePath(reported), normalizePath(resolved)
	if from != to {
		p.aliases[from] = to
	}
}

// DisplayName returns the short name for resourceID, or resourceID itself when
// the short name is unknown or ambiguous.
func (p *PathNormalizer) DisplayName(resourceID string) string {
	id := normalizePath(resourceID)
	if resolved, ok := p.aliases[id]; ok {
		id = resolved
	}
	name, ok := p.display[id]
	if !ok {
		return resourceID
	}
	if _, conflicted := p.conflicts[name]; conflicted {
		return resourceID
	}
	return name
}

// Conflicts returns the ambiguous display names, sorted.
func (p *PathNormalizer) Conflicts() []string {
	out := make([]string, 0, len(p.conflicts))
	for name := range p.conflicts {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// stripDir removes dir and the following separator from id. dir must be a
// whole-component prefix: "/inc/a" is a prefix of "/inc/a/x.h" but not of
// "/inc/ab/x.h".
func stripDir(id, dir string) (string, bool) {
	if dir == "" || dir == "." {
		return "", false
	}
	prefix := dir
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if !strings.HasPrefix(id, prefix) || len(id) == len(prefix) {
		return "", false
	}
	return id[len(prefix):], true
}

func normalizePath(p string) string {
	if p == "" {
		return ""
	}
	// единый вид: слэши, без "..", NFC (macOS отдаёт имена в NFD)
	return norm.NFC.String(filepath.ToSlash(filepath.Clean(p)))
}
