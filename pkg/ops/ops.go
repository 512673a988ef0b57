// Package ops runs the backup and restore pipelines: selecting
// hoards, checking path divergence against the operation history,
// and driving the walker over every resolved pile.
package ops

import (
	"context"
	stderrors "errors"
	"sort"

	"github.com/lmburns/hoard/pkg/config"
	"github.com/lmburns/hoard/pkg/crypt"
	"github.com/lmburns/hoard/pkg/errors"
	"github.com/lmburns/hoard/pkg/history"
	"github.com/lmburns/hoard/pkg/hoard"
	"github.com/lmburns/hoard/pkg/logging"
	"github.com/lmburns/hoard/pkg/paths"
	"github.com/lmburns/hoard/pkg/walker"
)

// Runner executes operations against a built configuration.
type Runner struct {
	Config *config.Config
	Paths  *paths.Paths

	// Force overrides the path divergence check.
	Force bool
}

// direction distinguishes the two pipelines.
type direction int

const (
	backup direction = iota
	restore
)

// Backup copies the selected hoards (all when names is empty) from
// their resolved paths into storage.
func (r *Runner) Backup(ctx context.Context, names []string) error {
	return r.run(ctx, names, backup)
}

// Restore copies the selected hoards from storage back to their
// resolved paths.
func (r *Runner) Restore(ctx context.Context, names []string) error {
	return r.run(ctx, names, restore)
}

func (r *Runner) run(ctx context.Context, names []string, dir direction) error {
	logger := logging.GetLogger("ops")

	selected, err := r.selectHoards(names)
	if err != nil {
		return err
	}

	machineID, err := history.MachineID(r.Paths)
	if err != nil {
		return err
	}
	lastPaths, err := history.Open(r.Paths)
	if err != nil {
		return err
	}

	for _, name := range selected {
		if err := ctx.Err(); err != nil {
			return err
		}
		resolved := r.Config.Hoards[name]
		current := pilePaths(resolved)

		if err := lastPaths.Check(name, machineID, current, r.Force); err != nil {
			return err
		}
		if err := r.runHoard(ctx, name, resolved, dir); err != nil {
			return err
		}
		lastPaths.Record(name, machineID, current)
	}

	if err := lastPaths.Save(); err != nil {
		return err
	}
	logger.Info().Int("hoards", len(selected)).Msg("operation complete")
	return nil
}

func (r *Runner) runHoard(ctx context.Context, name string, resolved *hoard.ResolvedHoard, dir direction) error {
	logger := logging.GetLogger("ops")

	pileNames := sortedPileNames(resolved)
	for _, pileName := range pileNames {
		pile := resolved.Piles()[pileName]
		if !pile.HasPath() {
			logger.Warn().
				Str("hoard", name).
				Str("pile", pileName).
				Msg("pile has no path on this machine, skipping")
			continue
		}

		w, engine, err := pileWalker(pile, r.Config.Ignores)
		if err != nil {
			return withHoardDetails(err, name, pileName)
		}

		prefix := r.Paths.PilePrefix(name, pileName)
		switch dir {
		case backup:
			err = w.Backup(ctx, pile.Path, prefix, engine)
		case restore:
			err = w.Restore(ctx, prefix, pile.Path, engine)
		}
		if err != nil {
			return withHoardDetails(err, name, pileName)
		}
	}
	return nil
}

// selectHoards resolves the requested hoard names, defaulting to all
// configured hoards in sorted order.
func (r *Runner) selectHoards(names []string) ([]string, error) {
	if len(names) == 0 {
		all := make([]string, 0, len(r.Config.Hoards))
		for name := range r.Config.Hoards {
			all = append(all, name)
		}
		sort.Strings(all)
		return all, nil
	}
	for _, name := range names {
		if _, ok := r.Config.Hoards[name]; !ok {
			return nil, errors.Newf(errors.ErrHoardNotFound, "no hoard named %q is configured", name).
				WithDetail("hoard", name)
		}
	}
	return names, nil
}

// pileWalker builds the walker and encryption engine for a resolved
// pile, falling back to defaults when the pile has no settings.
func pileWalker(pile hoard.ResolvedPile, ignores []string) (*walker.Walker, *crypt.Engine, error) {
	cfg := hoard.DefaultWalker()
	var enc *hoard.Encryption
	if pile.Config != nil {
		cfg = pile.Config.Walker
		enc = pile.Config.Encryption
	}
	w, err := walker.New(cfg, ignores)
	if err != nil {
		return nil, nil, err
	}
	return w, crypt.New(enc), nil
}

// pilePaths maps pile name to resolved path for the piles that have
// one, for the divergence record.
func pilePaths(resolved *hoard.ResolvedHoard) map[string]string {
	out := map[string]string{}
	for name, pile := range resolved.Piles() {
		if pile.HasPath() {
			out[name] = pile.Path
		}
	}
	return out
}

func sortedPileNames(resolved *hoard.ResolvedHoard) []string {
	piles := resolved.Piles()
	names := make([]string, 0, len(piles))
	for name := range piles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func withHoardDetails(err error, hoardName, pileName string) error {
	var herr *errors.HoardError
	if stderrors.As(err, &herr) {
		return herr.WithDetail("hoard", hoardName).WithDetail("pile", pileName)
	}
	return err
}
