package hoard

import (
	stderrors "errors"

	"github.com/lmburns/hoard/pkg/environment"
	"github.com/lmburns/hoard/pkg/errors"
	"github.com/lmburns/hoard/pkg/expand"
	"github.com/lmburns/hoard/pkg/logging"
	"github.com/lmburns/hoard/pkg/resolve"
)

// ResolvedPile is a pile whose path has been decided for the current
// machine. Path is empty when no environment combination matched,
// which is a valid outcome: the pile is skipped with a warning.
type ResolvedPile struct {
	Path   string
	Config *PileConfig
}

// HasPath reports whether some environment combination matched.
func (p ResolvedPile) HasPath() bool {
	return p.Path != ""
}

// ResolvedHoard is the output of assembling one hoard definition.
// Exactly one of Anonymous and Named is set, mirroring the definition.
type ResolvedHoard struct {
	Anonymous *ResolvedPile
	Named     map[string]ResolvedPile
}

// Piles returns the resolved piles keyed by pile name; the anonymous
// pile is keyed by the empty string.
func (h *ResolvedHoard) Piles() map[string]ResolvedPile {
	if h.Anonymous != nil {
		return map[string]ResolvedPile{"": *h.Anonymous}
	}
	out := make(map[string]ResolvedPile, len(h.Named))
	for name, pile := range h.Named {
		out[name] = pile
	}
	return out
}

// Assemble resolves every pile of a hoard definition against the
// evaluated environment table. Any pile's resolution error aborts the
// whole hoard; there are no partial hoards.
func Assemble(name string, def Hoard, env environment.Table, exclusivity resolve.Exclusivity) (*ResolvedHoard, error) {
	logger := logging.GetLogger("hoard")

	if def.IsAnonymous() {
		logger.Debug().Str("hoard", name).Msg("assembling anonymous pile")
		resolved, err := assemblePile(name, "", *def.Anonymous, def.Config, env, exclusivity)
		if err != nil {
			return nil, err
		}
		return &ResolvedHoard{Anonymous: resolved}, nil
	}

	logger.Debug().Str("hoard", name).Int("piles", len(def.Named)).Msg("assembling named piles")
	named := make(map[string]ResolvedPile, len(def.Named))
	for pileName, pile := range def.Named {
		resolved, err := assemblePile(name, pileName, pile, def.Config, env, exclusivity)
		if err != nil {
			return nil, err
		}
		named[pileName] = *resolved
	}
	return &ResolvedHoard{Named: named}, nil
}

func assemblePile(hoardName, pileName string, pile Pile, shared *PileConfig, env environment.Table, exclusivity resolve.Exclusivity) (*ResolvedPile, error) {
	logger := logging.GetLogger("hoard")

	table, err := resolve.NewCandidateTable(pile.Items, exclusivity)
	if err != nil {
		return nil, withPileDetails(err, hoardName, pileName)
	}

	winner, err := table.Resolve(env)
	if err != nil {
		return nil, withPileDetails(err, hoardName, pileName)
	}

	// per-pile config wins over the hoard-shared one
	config := pile.Config
	if config == nil {
		config = shared
	}

	if winner == nil {
		logger.Warn().
			Str("hoard", hoardName).
			Str("pile", pileName).
			Msg("no environment combination matched; pile has no path")
		return &ResolvedPile{Config: config}, nil
	}

	// an unresolvable variable in the winning template is escalated
	// here, at the point the path is actually used
	path, err := expand.Path(winner.Value)
	if err != nil {
		return nil, withPileDetails(err, hoardName, pileName)
	}

	logger.Debug().
		Str("hoard", hoardName).
		Str("pile", pileName).
		Str("condition", winner.Key.String()).
		Str("path", path).
		Msg("pile resolved")

	return &ResolvedPile{Path: path, Config: config}, nil
}

func withPileDetails(err error, hoardName, pileName string) error {
	var hoardErr *errors.HoardError
	if stderrors.As(err, &hoardErr) {
		if _, ok := hoardErr.Details["hoard"]; !ok {
			hoardErr.WithDetail("hoard", hoardName)
		}
		if _, ok := hoardErr.Details["pile"]; !ok && pileName != "" {
			hoardErr.WithDetail("pile", pileName)
		}
		return hoardErr
	}
	return err
}
