package config

import (
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v3"

	"github.com/lmburns/hoard/pkg/errors"
	"github.com/lmburns/hoard/pkg/logging"
)

// Format identifies a configuration file format.
type Format string

// Supported configuration formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat parses a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "toml":
		return FormatTOML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", errors.Newf(errors.ErrInvalidInput,
		"unknown configuration format %q (expected toml, yaml, or json)", s)
}

// FormatFromPath guesses the format from a file extension, defaulting
// to TOML like the default config file name does.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	default:
		return FormatTOML
	}
}

// Convert re-serializes the configuration file at inPath into the
// requested format. The configuration is parsed but deliberately not
// built: converting must work on any machine, not only one where the
// environments resolve cleanly.
func Convert(inPath string, outFormat Format, w io.Writer) error {
	logger := logging.GetLogger("config")
	logger.Debug().
		Str("input", inPath).
		Str("format", string(outFormat)).
		Msg("converting configuration")

	k, err := read(inPath)
	if err != nil {
		return err
	}
	raw := k.Raw()

	var data []byte
	switch outFormat {
	case FormatTOML:
		data, err = toml.Marshal(raw)
	case FormatYAML:
		data, err = yaml.Marshal(raw)
	case FormatJSON:
		data, err = json.MarshalIndent(raw, "", "  ")
		data = append(data, '\n')
	default:
		return errors.Newf(errors.ErrInvalidInput, "unknown configuration format %q", outFormat)
	}
	if err != nil {
		return errors.Wrapf(err, errors.ErrConfigParse,
			"failed to serialize configuration as %s", outFormat)
	}

	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, errors.ErrFileWrite, "failed to write converted configuration")
	}
	return nil
}
