package resolve

import (
	"sort"

	"github.com/lmburns/hoard/pkg/environment"
	"github.com/lmburns/hoard/pkg/errors"
	"github.com/lmburns/hoard/pkg/logging"
)

// Candidate pairs a condition with its associated payload (for piles,
// a path template).
type Candidate struct {
	Key   ConditionKey
	Value string
}

// CandidateTable holds the candidates of a single pile. Candidates are
// kept sorted by canonical key so that resolution never depends on map
// iteration order.
type CandidateTable struct {
	candidates []Candidate
}

// NewCandidateTable builds a table from raw condition-string to value
// pairs, rejecting any condition that violates an exclusivity group
// with ErrConditionInvalid. Two raw keys that canonicalize to the same
// condition are also a configuration error.
func NewCandidateTable(items map[string]string, exclusivity Exclusivity) (*CandidateTable, error) {
	table := &CandidateTable{candidates: make([]Candidate, 0, len(items))}
	byCanonical := make(map[string]string, len(items))

	// process raw keys in sorted order so the first error is stable
	raws := make([]string, 0, len(items))
	for raw := range items {
		raws = append(raws, raw)
	}
	sort.Strings(raws)

	for _, raw := range raws {
		key := ParseConditionKey(raw)
		if err := exclusivity.Validate(key); err != nil {
			return nil, err
		}

		canonical := key.String()
		if prev, dup := byCanonical[canonical]; dup {
			return nil, errors.Newf(errors.ErrConditionInvalid,
				"conditions %q and %q are the same condition", prev, raw).
				WithDetail("condition", canonical)
		}
		byCanonical[canonical] = raw

		table.candidates = append(table.candidates, Candidate{
			Key:   key,
			Value: items[raw],
		})
	}

	sort.Slice(table.candidates, func(i, j int) bool {
		return table.candidates[i].Key.String() < table.candidates[j].Key.String()
	})

	return table, nil
}

// Len returns the number of candidates in the table.
func (t *CandidateTable) Len() int {
	return len(t.candidates)
}

// Resolve selects at most one candidate whose condition is fully
// satisfied by the environment table.
//
// No satisfied condition is a valid outcome and returns (nil, nil).
// When several conditions are satisfied, the one with the highest
// specificity wins; two or more conditions tied at the highest
// specificity fail with ErrIndecision naming two of the tied keys.
// Ties are always reported, never broken by iteration order.
func (t *CandidateTable) Resolve(env environment.Table) (*Candidate, error) {
	logger := logging.GetLogger("resolve")

	var matches []Candidate
	for _, cand := range t.candidates {
		if cand.Key.Matches(env) {
			matches = append(matches, cand)
		}
	}

	if len(matches) == 0 {
		logger.Debug().Msg("no environment combination matched")
		return nil, nil
	}

	best := matches[0]
	tied := []Candidate{best}
	for _, cand := range matches[1:] {
		switch spec := cand.Key.Specificity(); {
		case spec > best.Key.Specificity():
			best = cand
			tied = tied[:0]
			tied = append(tied, cand)
		case spec == best.Key.Specificity():
			tied = append(tied, cand)
		}
	}

	if len(tied) > 1 {
		// candidates are sorted at construction, so the two reported
		// keys are the lexically smallest of the tied set
		first, second := tied[0].Key.String(), tied[1].Key.String()
		return nil, errors.Newf(errors.ErrIndecision,
			"conditions %q and %q match with equal specificity", first, second).
			WithDetail("first", first).
			WithDetail("second", second)
	}

	logger.Debug().
		Str("condition", best.Key.String()).
		Int("specificity", best.Key.Specificity()).
		Int("matched", len(matches)).
		Msg("condition won resolution")

	winner := best
	return &winner, nil
}
