// Package hoard defines the configuration model for hoards and piles
// and assembles them against the evaluated environment table into
// resolved, ready-to-walk paths.
//
// A hoard is a collection of at least one pile, where a pile is a
// single file or directory that may live at different locations
// depending on the current machine. Each pile maps condition keys like
// "linux|has_steam" to path templates; the most specific condition
// whose environments are all true decides the path.
package hoard

import (
	"github.com/lmburns/hoard/pkg/errors"
)

// EncryptionKind distinguishes the two supported encryption modes.
type EncryptionKind string

// Supported encryption kinds.
const (
	EncryptionSymmetric  EncryptionKind = "symmetric"
	EncryptionAsymmetric EncryptionKind = "asymmetric"
)

// Encryption is the per-pile encryption configuration.
type Encryption struct {
	Kind EncryptionKind

	// Symmetric: a raw passphrase, or a command whose first line of
	// stdout is the passphrase.
	Password    string
	PasswordCmd []string

	// Asymmetric: recipient public key and whether to armor output.
	PublicKey string
	Armor     bool
}

// Walker configures how a pile's files are collected during backup
// and restore.
type Walker struct {
	// FollowLinks follows symbolic links while walking.
	FollowLinks bool
	// Hidden collects hidden files as well.
	Hidden bool
	// MaxDepth limits recursion; zero means unlimited.
	MaxDepth int
	// Exclude lists patterns to skip.
	Exclude []string
	// Pattern filters file names; a glob unless Regex is set.
	Pattern string
	// Regex treats Pattern as a regular expression instead of a glob.
	Regex bool
	// CaseSensitive forces case-sensitive matching. Patterns
	// containing an uppercase letter are case-sensitive regardless.
	CaseSensitive bool
}

// DefaultWalker returns the walker settings used when a pile declares
// none.
func DefaultWalker() Walker {
	return Walker{Pattern: "*"}
}

// PileConfig holds the optional per-pile (or hoard-shared) settings.
type PileConfig struct {
	Encryption *Encryption
	Walker     Walker
}

// Pile is a single backup target: a map from condition key to path
// template, with optional settings.
type Pile struct {
	Config *PileConfig
	Items  map[string]string
}

// Hoard is a hoard definition: either a single anonymous pile or
// multiple named piles, with an optional shared config that piles
// inherit when they declare none of their own.
type Hoard struct {
	Config    *PileConfig
	Anonymous *Pile
	Named     map[string]Pile
}

// IsAnonymous reports whether the hoard is a single anonymous pile.
func (h Hoard) IsAnonymous() bool {
	return h.Anonymous != nil
}

// configKey is the reserved key for pile/hoard settings inside the
// configuration maps; everything else is a condition key.
const configKey = "config"

// DecodeHoards decodes the whole "hoards" section of the raw
// configuration.
func DecodeHoards(raw map[string]interface{}) (map[string]Hoard, error) {
	hoards := make(map[string]Hoard, len(raw))
	for name, value := range raw {
		entry, ok := value.(map[string]interface{})
		if !ok {
			return nil, errors.Newf(errors.ErrHoardInvalid,
				"hoard %q must be a table", name).
				WithDetail("hoard", name)
		}
		h, err := decodeHoard(name, entry)
		if err != nil {
			return nil, err
		}
		hoards[name] = h
	}
	return hoards, nil
}

// decodeHoard distinguishes anonymous from named hoards by the shape
// of the values: string values are condition-to-path entries of a
// single anonymous pile, table values are named piles.
func decodeHoard(name string, raw map[string]interface{}) (Hoard, error) {
	var h Hoard

	strings := 0
	tables := 0
	for key, value := range raw {
		if key == configKey {
			continue
		}
		switch value.(type) {
		case string:
			strings++
		case map[string]interface{}:
			tables++
		default:
			return h, errors.Newf(errors.ErrHoardInvalid,
				"hoard %q: entry %q must be a path or a pile table", name, key).
				WithDetail("hoard", name)
		}
	}
	if strings > 0 && tables > 0 {
		return h, errors.Newf(errors.ErrHoardInvalid,
			"hoard %q mixes anonymous path entries with named piles", name).
			WithDetail("hoard", name)
	}

	if cfg, ok := raw[configKey]; ok {
		cfgMap, ok := cfg.(map[string]interface{})
		if !ok {
			return h, errors.Newf(errors.ErrHoardInvalid,
				"hoard %q: config must be a table", name).
				WithDetail("hoard", name)
		}
		config, err := decodePileConfig(name, cfgMap)
		if err != nil {
			return h, err
		}
		h.Config = config
	}

	if tables == 0 {
		// single anonymous pile, possibly with zero items
		pile := Pile{Items: make(map[string]string)}
		for key, value := range raw {
			if key == configKey {
				continue
			}
			pile.Items[key] = value.(string)
		}
		h.Anonymous = &pile
		return h, nil
	}

	h.Named = make(map[string]Pile, tables)
	for key, value := range raw {
		if key == configKey {
			continue
		}
		pile, err := decodePile(name, key, value.(map[string]interface{}))
		if err != nil {
			return h, err
		}
		h.Named[key] = pile
	}
	return h, nil
}

func decodePile(hoardName, pileName string, raw map[string]interface{}) (Pile, error) {
	pile := Pile{Items: make(map[string]string)}
	for key, value := range raw {
		if key == configKey {
			cfgMap, ok := value.(map[string]interface{})
			if !ok {
				return pile, errors.Newf(errors.ErrHoardInvalid,
					"hoard %q pile %q: config must be a table", hoardName, pileName).
					WithDetail("hoard", hoardName).
					WithDetail("pile", pileName)
			}
			config, err := decodePileConfig(hoardName, cfgMap)
			if err != nil {
				return pile, err
			}
			pile.Config = config
			continue
		}

		path, ok := value.(string)
		if !ok {
			return pile, errors.Newf(errors.ErrHoardInvalid,
				"hoard %q pile %q: entry %q must be a path", hoardName, pileName, key).
				WithDetail("hoard", hoardName).
				WithDetail("pile", pileName)
		}
		pile.Items[key] = path
	}
	return pile, nil
}

func decodePileConfig(hoardName string, raw map[string]interface{}) (*PileConfig, error) {
	config := &PileConfig{Walker: DefaultWalker()}

	invalid := func(field string) error {
		return errors.Newf(errors.ErrHoardInvalid,
			"hoard %q: invalid config field %q", hoardName, field).
			WithDetail("hoard", hoardName).
			WithDetail("field", field)
	}

	for key, value := range raw {
		switch key {
		case "encrypt":
			kind, ok := value.(string)
			if !ok {
				return nil, invalid(key)
			}
			if config.Encryption == nil {
				config.Encryption = &Encryption{Armor: true}
			}
			switch EncryptionKind(kind) {
			case EncryptionSymmetric, EncryptionAsymmetric:
				config.Encryption.Kind = EncryptionKind(kind)
			default:
				return nil, errors.Newf(errors.ErrHoardInvalid,
					"hoard %q: unknown encryption kind %q", hoardName, kind).
					WithDetail("hoard", hoardName)
			}
		case "encrypt_pass":
			s, ok := value.(string)
			if !ok {
				return nil, invalid(key)
			}
			config.ensureEncryption().Password = s
		case "encrypt_pass_cmd":
			cmd, err := toStringSlice(value)
			if err != nil {
				return nil, invalid(key)
			}
			config.ensureEncryption().PasswordCmd = cmd
		case "encrypt_pub_key":
			s, ok := value.(string)
			if !ok {
				return nil, invalid(key)
			}
			config.ensureEncryption().PublicKey = s
		case "encrypt_armor":
			b, ok := value.(bool)
			if !ok {
				return nil, invalid(key)
			}
			config.ensureEncryption().Armor = b
		case "follow_links":
			b, ok := value.(bool)
			if !ok {
				return nil, invalid(key)
			}
			config.Walker.FollowLinks = b
		case "hidden":
			b, ok := value.(bool)
			if !ok {
				return nil, invalid(key)
			}
			config.Walker.Hidden = b
		case "max_depth":
			n, ok := toInt(value)
			if !ok || n < 0 {
				return nil, invalid(key)
			}
			config.Walker.MaxDepth = n
		case "exclude":
			patterns, err := toStringSlice(value)
			if err != nil {
				return nil, invalid(key)
			}
			config.Walker.Exclude = patterns
		case "pattern":
			s, ok := value.(string)
			if !ok {
				return nil, invalid(key)
			}
			config.Walker.Pattern = s
		case "regex":
			b, ok := value.(bool)
			if !ok {
				return nil, invalid(key)
			}
			config.Walker.Regex = b
		case "case_sensitive":
			b, ok := value.(bool)
			if !ok {
				return nil, invalid(key)
			}
			config.Walker.CaseSensitive = b
		default:
			return nil, errors.Newf(errors.ErrHoardInvalid,
				"hoard %q: unknown config field %q", hoardName, key).
				WithDetail("hoard", hoardName).
				WithDetail("field", key)
		}
	}

	if enc := config.Encryption; enc != nil && enc.Kind == "" {
		return nil, errors.Newf(errors.ErrHoardInvalid,
			"hoard %q: encryption options given without an \"encrypt\" kind", hoardName).
			WithDetail("hoard", hoardName)
	}

	return config, nil
}

func (c *PileConfig) ensureEncryption() *Encryption {
	if c.Encryption == nil {
		c.Encryption = &Encryption{Armor: true}
	}
	return c.Encryption
}

func toStringSlice(value interface{}) ([]string, error) {
	items, ok := value.([]interface{})
	if !ok {
		return nil, errors.New(errors.ErrInvalidInput, "expected a list of strings")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, errors.New(errors.ErrInvalidInput, "expected a list of strings")
		}
		out = append(out, s)
	}
	return out, nil
}

func toInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
