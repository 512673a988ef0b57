package environment

import (
	stderrors "errors"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"

	"github.com/lmburns/hoard/pkg/errors"
	"github.com/lmburns/hoard/pkg/expand"
	"github.com/lmburns/hoard/pkg/logging"
)

// Table maps environment names to their evaluated boolean results. It
// is built once per run and must not be mutated afterwards.
type Table map[string]bool

// IsTrue reports whether the named environment was declared and
// evaluated true. Names that were never declared are simply false.
func (t Table) IsTrue(name string) bool {
	return t[name]
}

// Evaluate evaluates every declared fact into a Table. Combinator
// facts may reference facts declared in any order; evaluation is lazy
// and memoized. A combinator referencing an undeclared name fails with
// ErrEnvUnknown; a reference chain that re-enters itself fails with
// ErrEnvCycle.
func Evaluate(facts map[string]Fact) (Table, error) {
	ev := &evaluator{
		facts:    facts,
		table:    make(Table, len(facts)),
		visiting: make(map[string]bool),
	}

	// evaluate in sorted order so logs and first-error reporting do
	// not depend on map iteration order
	names := make([]string, 0, len(facts))
	for name := range facts {
		names = append(names, name)
	}
	sort.Strings(names)

	logger := logging.GetLogger("environment")
	for _, name := range names {
		result, err := ev.eval(name)
		if err != nil {
			return nil, err
		}
		logger.Trace().
			Str("environment", name).
			Str("kind", facts[name].Kind()).
			Bool("result", result).
			Msg("evaluated environment")
	}

	return ev.table, nil
}

type evaluator struct {
	facts    map[string]Fact
	table    Table
	visiting map[string]bool
}

func (e *evaluator) eval(name string) (bool, error) {
	if result, done := e.table[name]; done {
		return result, nil
	}
	if _, declared := e.facts[name]; !declared {
		return false, errors.Newf(errors.ErrEnvUnknown,
			"no environment named %q is declared", name).
			WithDetail("environment", name)
	}
	if e.visiting[name] {
		return false, errors.Newf(errors.ErrEnvCycle,
			"environment %q is part of a reference cycle", name).
			WithDetail("environment", name)
	}

	e.visiting[name] = true
	defer delete(e.visiting, name)

	result, err := e.evalFact(name, e.facts[name])
	if err != nil {
		return false, err
	}

	e.table[name] = result
	return result, nil
}

func (e *evaluator) evalFact(name string, fact Fact) (bool, error) {
	switch {
	case fact.OS != "":
		return strings.EqualFold(fact.OS, runtime.GOOS), nil

	case fact.EnvVar != nil:
		value, set := os.LookupEnv(fact.EnvVar.Var)
		if fact.EnvVar.Value != nil {
			return set && value == *fact.EnvVar.Value, nil
		}
		return set, nil

	case fact.Command != "":
		_, err := exec.LookPath(fact.Command)
		return err == nil, nil

	case fact.Path != "":
		// expansion failure means "unknown, treat as absent", not an
		// error
		path, err := expand.Path(fact.Path)
		if err != nil {
			return false, nil
		}
		_, err = os.Stat(path)
		return err == nil, nil

	case fact.All != nil:
		for _, ref := range fact.All {
			ok, err := e.eval(ref)
			if err != nil {
				return false, wrapRefErr(err, name)
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case fact.Any != nil:
		matched := false
		for _, ref := range fact.Any {
			ok, err := e.eval(ref)
			if err != nil {
				return false, wrapRefErr(err, name)
			}
			matched = matched || ok
		}
		return matched, nil
	}

	return false, errors.Newf(errors.ErrEnvInvalid,
		"environment %q has no predicate", name).
		WithDetail("environment", name)
}

// wrapRefErr records which combinator surfaced a reference error while
// keeping the original code intact for callers.
func wrapRefErr(err error, name string) error {
	var hoardErr *errors.HoardError
	if stderrors.As(err, &hoardErr) {
		if _, seen := hoardErr.Details["referenced_by"]; !seen {
			hoardErr.WithDetail("referenced_by", name)
		}
		return hoardErr
	}
	return err
}
