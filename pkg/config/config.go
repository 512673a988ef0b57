// Package config loads and builds the hoard configuration. Loading
// layers the embedded defaults under the user's configuration file
// (TOML, YAML, or JSON, chosen by extension); building evaluates the
// declared environments once and assembles every hoard against the
// resulting table.
package config

import (
	_ "embed"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/lmburns/hoard/pkg/environment"
	"github.com/lmburns/hoard/pkg/errors"
	"github.com/lmburns/hoard/pkg/hoard"
	"github.com/lmburns/hoard/pkg/logging"
	"github.com/lmburns/hoard/pkg/resolve"
)

//go:embed defaults.toml
var defaultConfig []byte

// Config is a fully-built configuration: environments evaluated,
// hoards resolved to concrete paths for this machine.
type Config struct {
	// Environments is the evaluated environment table.
	Environments environment.Table
	// Exclusivity holds the configured mutual-exclusion groups.
	Exclusivity resolve.Exclusivity
	// Hoards maps hoard name to its resolved piles.
	Hoards map[string]*hoard.ResolvedHoard
	// Ignores are the global ignore patterns applied to every pile.
	Ignores []string
}

// Load reads the configuration file at path and builds it. The file's
// extension selects the parser; anything that is not .yaml/.yml/.json
// is parsed as TOML, matching the default config file name.
func Load(path string) (*Config, error) {
	k, err := read(path)
	if err != nil {
		return nil, err
	}
	return build(k)
}

// read layers the embedded defaults under the given file.
func read(path string) (*koanf.Koanf, error) {
	logger := logging.GetLogger("config")
	logger.Debug().Str("path", path).Msg("reading configuration")

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(defaultConfig), toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to load embedded defaults")
	}

	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad,
			"failed to load configuration from %s", path).
			WithDetail("path", path)
	}

	return k, nil
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".json":
		return json.Parser()
	default:
		return toml.Parser()
	}
}

// build evaluates environments and assembles every hoard. Any
// configuration error aborts the build before any file is touched.
func build(k *koanf.Koanf) (*Config, error) {
	logger := logging.GetLogger("config")

	facts, err := decodeEnvs(k)
	if err != nil {
		return nil, err
	}

	table, err := environment.Evaluate(facts)
	if err != nil {
		return nil, err
	}
	logger.Debug().Int("environments", len(table)).Msg("environments evaluated")

	exclusivity, err := decodeExclusivity(k)
	if err != nil {
		return nil, err
	}

	defs, err := decodeHoards(k)
	if err != nil {
		return nil, err
	}

	hoards := make(map[string]*hoard.ResolvedHoard, len(defs))
	for name, def := range defs {
		resolved, err := hoard.Assemble(name, def, table, exclusivity)
		if err != nil {
			return nil, err
		}
		hoards[name] = resolved
	}
	logger.Debug().Int("hoards", len(hoards)).Msg("hoards assembled")

	return &Config{
		Environments: table,
		Exclusivity:  exclusivity,
		Hoards:       hoards,
		Ignores:      k.Strings("global.ignores"),
	}, nil
}

func decodeEnvs(k *koanf.Koanf) (map[string]environment.Fact, error) {
	raw, err := section(k, "envs")
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return map[string]environment.Fact{}, nil
	}
	return environment.DecodeFacts(raw)
}

func decodeHoards(k *koanf.Koanf) (map[string]hoard.Hoard, error) {
	raw, err := section(k, "hoards")
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return map[string]hoard.Hoard{}, nil
	}
	return hoard.DecodeHoards(raw)
}

func decodeExclusivity(k *koanf.Koanf) (resolve.Exclusivity, error) {
	raw := k.Get("exclusivity")
	if raw == nil {
		return nil, nil
	}
	groups, ok := raw.([]interface{})
	if !ok {
		return nil, errors.New(errors.ErrConfigValid,
			"exclusivity must be a list of environment name groups")
	}

	exclusivity := make(resolve.Exclusivity, 0, len(groups))
	for _, group := range groups {
		items, ok := group.([]interface{})
		if !ok {
			return nil, errors.New(errors.ErrConfigValid,
				"exclusivity groups must be lists of environment names")
		}
		names := make([]string, 0, len(items))
		for _, item := range items {
			name, ok := item.(string)
			if !ok {
				return nil, errors.New(errors.ErrConfigValid,
					"exclusivity group entries must be environment names")
			}
			names = append(names, name)
		}
		exclusivity = append(exclusivity, names)
	}
	return exclusivity, nil
}

func section(k *koanf.Koanf, name string) (map[string]interface{}, error) {
	if !k.Exists(name) {
		return nil, nil
	}
	raw, ok := k.Get(name).(map[string]interface{})
	if !ok {
		return nil, errors.Newf(errors.ErrConfigValid,
			"%q must be a table", name)
	}
	return raw, nil
}
