// Package normalize resolves noisy free-text organization names to
// canonical entities via a curated alias table and Jaro-Winkler fuzzy
// matching.
package normalize

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed aliases.yaml
var aliasesYAML []byte

// fuzzyThreshold is the minimum Jaro-Winkler similarity for an alias
// to be accepted as a match.
const fuzzyThreshold = 0.93

// Normalizer maps raw organization-name strings to canonical display
// names. Safe for concurrent use; results are memoized per raw input.
type Normalizer struct {
	aliases map[string]string
	// keys in sorted order so fuzzy matching is deterministic
	aliasKeys []string

	mu    sync.RWMutex
	cache map[string]string
}

// NewNormalizer builds a Normalizer from the embedded alias table.
func NewNormalizer() (*Normalizer, error) {
	var doc struct {
		Aliases map[string]string `yaml:"aliases"`
	}
	if err := yaml.Unmarshal(aliasesYAML, &doc); err != nil {
		return nil, fmt.Errorf("parsing alias table: %w", err)
	}

	keys := make([]string, 0, len(doc.Aliases))
	for k := range doc.Aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return &Normalizer{
		aliases:   doc.Aliases,
		aliasKeys: keys,
		cache:     make(map[string]string),
	}, nil
}

// Normalize resolves a raw organization name to its canonical display
// name. Empty input yields "". Unrecognized names fall back to a
// title-cased copy of the input; Normalize never fails.
func (n *Normalizer) Normalize(name string) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}

	n.mu.RLock()
	if cached, ok := n.cache[name]; ok {
		n.mu.RUnlock()
		return cached
	}
	n.mu.RUnlock()

	result := n.resolve(name)

	n.mu.Lock()
	n.cache[name] = result
	n.mu.Unlock()

	return result
}

func (n *Normalizer) resolve(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))

	if canonical, ok := n.aliases[lowered]; ok {
		return canonical
	}

	// The table may also carry already-canonical names as keys.
	if canonical, ok := n.aliases[strings.TrimSpace(name)]; ok {
		return canonical
	}

	return n.fuzzyMatch(lowered)
}

// fuzzyMatch scans every alias key and returns the canonical name of
// the best key scoring at or above fuzzyThreshold. Ties keep the
// lexicographically first alias.
func (n *Normalizer) fuzzyMatch(name string) string {
	bestScore := 0.0
	bestMatch := ""

	for _, alias := range n.aliasKeys {
		score := JaroWinkler(name, alias)
		if score >= fuzzyThreshold && score > bestScore {
			bestScore = score
			bestMatch = n.aliases[alias]
		}
	}

	if bestMatch != "" {
		return bestMatch
	}
	return titleCase(name)
}

// CacheSize reports the number of memoized raw inputs.
func (n *Normalizer) CacheSize() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.cache)
}

// ClearCache drops the memoization cache. Output is unaffected; this
// exists for long-lived processes that churn through unique inputs.
func (n *Normalizer) ClearCache() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cache = make(map[string]string)
}

// TitleCase applies the same casing used for unmatched names, for
// callers that title-case free text (e.g. investigator names).
func TitleCase(s string) string { return titleCase(s) }

// titleCase upper-cases the first letter of every alphabetic run and
// lower-cases the rest, so "univ. of nowhere" becomes "Univ. Of Nowhere".
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}
