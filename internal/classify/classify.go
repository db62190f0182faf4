// Package classify maps inbound text to a supported platform. The table is
// an ordered list loaded from YAML; list position is the tie-break when
// multiple patterns could match, and that order is part of the contract.
package classify

import (
	_ "embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"linklift/internal/domain"
)

//go:embed platforms.yaml
var defaultPlatforms []byte

// fallbackEmoji is shown for a platform missing from the table.
const fallbackEmoji = "📹"

// Entry describes one supported platform: its detection pattern plus the
// display strings the composer and /help command render.
type Entry struct {
	Name    domain.Platform `yaml:"name"`
	Pattern string          `yaml:"pattern"`
	Emoji   string          `yaml:"emoji"`
	Label   string          `yaml:"label"`
	Example string          `yaml:"example"`

	re *regexp.Regexp
}

// Table is an ordered, immutable platform table.
type Table struct {
	entries []Entry
}

// Load parses a YAML platform list and compiles its patterns
// (case-insensitive).
func Load(data []byte) (*Table, error) {
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse platform table: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("platform table is empty")
	}
	for i := range entries {
		e := &entries[i]
		if e.Name == "" || e.Pattern == "" {
			return nil, fmt.Errorf("platform entry %d: name and pattern are required", i)
		}
		re, err := regexp.Compile("(?i)" + e.Pattern)
		if err != nil {
			return nil, fmt.Errorf("platform %s: %w", e.Name, err)
		}
		e.re = re
	}
	return &Table{entries: entries}, nil
}

// Default returns the table built from the embedded platforms.yaml.
func Default() *Table {
	t, err := Load(defaultPlatforms)
	if err != nil {
		panic(fmt.Sprintf("embedded platform table: %v", err))
	}
	return t
}

// Classify returns the first platform whose pattern matches text, or
// PlatformUnknown. Pure; no failure mode beyond the unknown tag.
func (t *Table) Classify(text string) domain.Platform {
	for _, e := range t.entries {
		if e.re.MatchString(text) {
			return e.Name
		}
	}
	return domain.PlatformUnknown
}

// Emoji returns the display emoji for a platform.
func (t *Table) Emoji(p domain.Platform) string {
	for _, e := range t.entries {
		if e.Name == p {
			return e.Emoji
		}
	}
	return fallbackEmoji
}

// Entries returns the table in evaluation order.
func (t *Table) Entries() []Entry {
	return t.entries
}
