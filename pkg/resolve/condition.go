// Package resolve implements the environment-conditional path
// resolution engine: given the evaluated environment table and a set
// of candidate paths keyed by combinatorial conditions, it selects the
// single best-matching candidate with deterministic tie detection.
package resolve

import (
	"sort"
	"strings"

	"github.com/lmburns/hoard/pkg/environment"
)

// ConditionSeparator splits environment names in a raw condition key.
const ConditionSeparator = "|"

// ConditionKey is a compound condition: the set of environment names
// that must all be true for the condition to match. The empty key is
// valid and matches unconditionally.
type ConditionKey struct {
	names []string
}

// ParseConditionKey parses a pipe-delimited condition string such as
// "linux|has_steam". Names are trimmed, deduplicated, and kept in
// sorted order; empty segments are ignored, so "" is the always-true
// condition.
func ParseConditionKey(raw string) ConditionKey {
	seen := make(map[string]bool)
	var names []string
	for _, part := range strings.Split(raw, ConditionSeparator) {
		name := strings.TrimSpace(part)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return ConditionKey{names: names}
}

// Names returns the condition's required environment names in sorted
// order.
func (k ConditionKey) Names() []string {
	out := make([]string, len(k.names))
	copy(out, k.names)
	return out
}

// Specificity is the number of environments the condition requires.
// Higher specificity wins when several conditions match.
func (k ConditionKey) Specificity() int {
	return len(k.names)
}

// String returns the canonical (sorted, pipe-joined) form of the key.
func (k ConditionKey) String() string {
	return strings.Join(k.names, ConditionSeparator)
}

// Matches reports whether every required environment is declared and
// true in the table. Names absent from the table make the condition
// non-matching, never an error.
func (k ConditionKey) Matches(env environment.Table) bool {
	for _, name := range k.names {
		if !env.IsTrue(name) {
			return false
		}
	}
	return true
}

// IsSupersetOf reports whether this key requires every name the other
// key requires. Both keys keep their names sorted, so this is a single
// merge pass.
func (k ConditionKey) IsSupersetOf(other ConditionKey) bool {
	i := 0
	for _, want := range other.names {
		for i < len(k.names) && k.names[i] < want {
			i++
		}
		if i >= len(k.names) || k.names[i] != want {
			return false
		}
		i++
	}
	return true
}
