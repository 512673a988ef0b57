package resolve

import (
	"strings"

	"github.com/lmburns/hoard/pkg/errors"
)

// Exclusivity is a list of groups of environment names that must never
// appear together in a single condition. It is parsed once from
// configuration and read-only thereafter.
type Exclusivity [][]string

// Validate checks a condition against every exclusivity group. A
// condition is invalid when two or more of its names fall in the same
// group; this is a static property of the condition text, independent
// of which environments are currently true.
func (x Exclusivity) Validate(key ConditionKey) error {
	for _, group := range x {
		members := make(map[string]bool, len(group))
		for _, name := range group {
			members[name] = true
		}

		var overlap []string
		for _, name := range key.names {
			if members[name] {
				overlap = append(overlap, name)
			}
		}

		if len(overlap) >= 2 {
			return errors.Newf(errors.ErrConditionInvalid,
				"condition %q requires mutually exclusive environments %s",
				key.String(), strings.Join(overlap, ", ")).
				WithDetail("condition", key.String()).
				WithDetail("exclusive", overlap)
		}
	}
	return nil
}
