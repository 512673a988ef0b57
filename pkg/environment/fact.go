// Package environment defines the named boolean facts about the
// current machine that condition keys are matched against, and
// evaluates them once per run into an immutable Table.
package environment

import (
	"fmt"
	"sort"

	"github.com/lmburns/hoard/pkg/errors"
)

// EnvVar is an environment-variable predicate. With only Var set it
// tests presence; with Value set it tests equality.
type EnvVar struct {
	Var   string
	Value *string
}

// Fact is a single named boolean predicate. Exactly one of the kind
// fields is set.
type Fact struct {
	// OS matches runtime.GOOS against the given identifier.
	OS string
	// EnvVar tests an environment variable.
	EnvVar *EnvVar
	// Command tests whether an executable can be found on PATH.
	Command string
	// Path tests whether the (template-expanded) path exists.
	Path string
	// All is true when every referenced fact is true.
	All []string
	// Any is true when at least one referenced fact is true.
	Any []string
}

// Kind returns the name of the fact's predicate kind, for diagnostics.
func (f Fact) Kind() string {
	switch {
	case f.OS != "":
		return "os"
	case f.EnvVar != nil:
		return "env"
	case f.Command != "":
		return "command"
	case f.Path != "":
		return "path"
	case f.All != nil:
		return "all"
	case f.Any != nil:
		return "any"
	}
	return "invalid"
}

// refs returns the fact names a combinator fact depends on.
func (f Fact) refs() []string {
	if f.All != nil {
		return f.All
	}
	return f.Any
}

// DecodeFact builds a Fact from the raw configuration map for one
// environment entry. The map must contain exactly one predicate key.
func DecodeFact(name string, raw map[string]interface{}) (Fact, error) {
	var fact Fact
	kinds := 0

	for key, value := range raw {
		switch key {
		case "os":
			s, err := asString(name, key, value)
			if err != nil {
				return Fact{}, err
			}
			fact.OS = s
			kinds++
		case "command":
			s, err := asString(name, key, value)
			if err != nil {
				return Fact{}, err
			}
			fact.Command = s
			kinds++
		case "path":
			s, err := asString(name, key, value)
			if err != nil {
				return Fact{}, err
			}
			fact.Path = s
			kinds++
		case "env":
			ev, err := decodeEnvVar(name, value)
			if err != nil {
				return Fact{}, err
			}
			fact.EnvVar = ev
			kinds++
		case "all":
			names, err := asStringSlice(name, key, value)
			if err != nil {
				return Fact{}, err
			}
			fact.All = names
			kinds++
		case "any":
			names, err := asStringSlice(name, key, value)
			if err != nil {
				return Fact{}, err
			}
			fact.Any = names
			kinds++
		default:
			return Fact{}, errors.Newf(errors.ErrEnvInvalid,
				"environment %q has unknown predicate %q", name, key).
				WithDetail("environment", name)
		}
	}

	if kinds != 1 {
		return Fact{}, errors.Newf(errors.ErrEnvInvalid,
			"environment %q must define exactly one predicate, has %d", name, kinds).
			WithDetail("environment", name)
	}

	return fact, nil
}

// DecodeFacts decodes the whole "envs" section of the configuration.
func DecodeFacts(raw map[string]interface{}) (map[string]Fact, error) {
	facts := make(map[string]Fact, len(raw))

	// decode in sorted order so the first error reported is stable
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry, ok := raw[name].(map[string]interface{})
		if !ok {
			return nil, errors.Newf(errors.ErrEnvInvalid,
				"environment %q must be a table of predicates", name).
				WithDetail("environment", name)
		}
		fact, err := DecodeFact(name, entry)
		if err != nil {
			return nil, err
		}
		facts[name] = fact
	}

	return facts, nil
}

func decodeEnvVar(name string, value interface{}) (*EnvVar, error) {
	switch v := value.(type) {
	case string:
		return &EnvVar{Var: v}, nil
	case map[string]interface{}:
		varName, ok := v["var"].(string)
		if !ok || varName == "" {
			return nil, errors.Newf(errors.ErrEnvInvalid,
				"environment %q: env predicate requires a \"var\" name", name).
				WithDetail("environment", name)
		}
		ev := &EnvVar{Var: varName}
		if val, exists := v["value"]; exists {
			s, ok := val.(string)
			if !ok {
				return nil, errors.Newf(errors.ErrEnvInvalid,
					"environment %q: env value must be a string", name).
					WithDetail("environment", name)
			}
			ev.Value = &s
		}
		return ev, nil
	default:
		return nil, errors.Newf(errors.ErrEnvInvalid,
			"environment %q: env predicate must be a string or a table", name).
			WithDetail("environment", name)
	}
}

func asString(name, key string, value interface{}) (string, error) {
	s, ok := value.(string)
	if !ok || s == "" {
		return "", errors.Newf(errors.ErrEnvInvalid,
			"environment %q: %s must be a non-empty string", name, key).
			WithDetail("environment", name)
	}
	return s, nil
}

func asStringSlice(name, key string, value interface{}) ([]string, error) {
	items, ok := value.([]interface{})
	if !ok {
		return nil, errors.Newf(errors.ErrEnvInvalid,
			"environment %q: %s must be a list of environment names", name, key).
			WithDetail("environment", name)
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, errors.Newf(errors.ErrEnvInvalid,
				"environment %q: %s entries must be strings, got %v", name, key, fmt.Sprintf("%T", item)).
				WithDetail("environment", name)
		}
		names = append(names, s)
	}
	if len(names) == 0 {
		return nil, errors.Newf(errors.ErrEnvInvalid,
			"environment %q: %s must reference at least one environment", name, key).
			WithDetail("environment", name)
	}
	return names, nil
}
