// Package theme remaps block (type, sub-type) pairs between named palettes.
package theme

import (
	"sort"
	"sync"
)

// Material is a block type and its sub-type (metadata) value.
type Material struct {
	Type byte
	Sub  byte
}

// Key addresses one translation entry.
type Key struct {
	Source string
	Target string
	Material
}

// Translator looks up a full (type, sub-type) translation between themes.
type Translator interface {
	Translate(source, target string, m Material) (Material, bool)
}

// Table is a concurrency-safe translation table. It is neither symmetric
// nor total: a missing entry means the pair passes through unchanged.
type Table struct {
	mu      sync.RWMutex
	entries map[Key]Material
	themes  map[string]struct{}
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		entries: make(map[Key]Material),
		themes:  make(map[string]struct{}),
	}
}

// Register declares a theme name without adding translations.
func (t *Table) Register(name string) {
	t.mu.Lock()
	t.themes[name] = struct{}{}
	t.mu.Unlock()
}

// Add stores the translation source:from -> target:to.
func (t *Table) Add(source, target string, from, to Material) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[Key{Source: source, Target: target, Material: from}] = to
	t.themes[source] = struct{}{}
	t.themes[target] = struct{}{}
}

// Translate returns the entry for (source, target, m), if any.
func (t *Table) Translate(source, target string, m Material) (Material, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	to, ok := t.entries[Key{Source: source, Target: target, Material: m}]
	return to, ok
}

// ThemeExists reports whether name was registered or appears in an entry.
func (t *Table) ThemeExists(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.themes[name]
	return ok
}

// Themes returns the known theme names in sorted order.
func (t *Table) Themes() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.themes))
	for name := range t.themes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of translation entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Apply translates m and applies the pass-through rule: no entry, or an
// entry with type 0, leaves the original pair unchanged.
func Apply(tr Translator, source, target string, m Material) Material {
	if tr == nil {
		return m
	}
	to, ok := tr.Translate(source, target, m)
	if !ok || to.Type == 0 {
		return m
	}
	return to
}
