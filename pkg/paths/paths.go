// Package paths provides centralized path handling for hoard.
// It implements XDG Base Directory specification compliance and is
// constructed once at startup and passed explicitly to the components
// that need it; there is no global directory state.
package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/lmburns/hoard/pkg/errors"
)

// Environment variable names
const (
	// EnvHoardsRoot overrides where hoarded files are stored
	EnvHoardsRoot = "HOARDS_ROOT"

	// EnvHoardConfigDir overrides the XDG config directory for hoard
	EnvHoardConfigDir = "HOARD_CONFIG_DIR"

	// EnvHoardDataDir overrides the XDG data directory for hoard
	EnvHoardDataDir = "HOARD_DATA_DIR"
)

// Directory and file names
// These constants define hoard's on-disk layout and are not
// user-configurable; the hoards root itself is.
const (
	// AppDirName is the directory name for hoard-specific files
	AppDirName = "hoard"

	// ConfigFileName is the default configuration file name
	ConfigFileName = "config.toml"

	// HoardsDirName is the subdirectory of the data dir holding hoards
	HoardsDirName = "hoards"

	// HistoryDirName is the subdirectory for operation history records
	HistoryDirName = "history"

	// UUIDFileName holds this machine's unique identifier
	UUIDFileName = "uuid"
)

// Paths provides the directory layout for a hoard run.
type Paths struct {
	configDir  string
	dataDir    string
	hoardsRoot string
}

// Option customizes Paths construction.
type Option func(*Paths)

// WithHoardsRoot overrides the hoards root directory.
func WithHoardsRoot(root string) Option {
	return func(p *Paths) {
		if root != "" {
			p.hoardsRoot = root
		}
	}
}

// New builds the directory layout from XDG defaults and environment
// overrides.
func New(opts ...Option) (*Paths, error) {
	p := &Paths{
		configDir: filepath.Join(xdg.ConfigHome, AppDirName),
		dataDir:   filepath.Join(xdg.DataHome, AppDirName),
	}

	if dir := os.Getenv(EnvHoardConfigDir); dir != "" {
		p.configDir = dir
	}
	if dir := os.Getenv(EnvHoardDataDir); dir != "" {
		p.dataDir = dir
	}

	p.hoardsRoot = filepath.Join(p.dataDir, HoardsDirName)
	if root := os.Getenv(EnvHoardsRoot); root != "" {
		p.hoardsRoot = root
	}

	for _, opt := range opts {
		opt(p)
	}

	for _, dir := range []string{p.configDir, p.dataDir} {
		if !filepath.IsAbs(dir) {
			return nil, errors.Newf(errors.ErrInvalidInput,
				"directory %q must be absolute", dir)
		}
	}

	return p, nil
}

// ConfigDir is the directory holding the configuration file and the
// machine UUID.
func (p *Paths) ConfigDir() string {
	return p.configDir
}

// DataDir is the root of hoard's data storage.
func (p *Paths) DataDir() string {
	return p.dataDir
}

// ConfigFile is the default configuration file path.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.configDir, ConfigFileName)
}

// HoardsRoot is the directory all hoards are stored under.
func (p *Paths) HoardsRoot() string {
	return p.hoardsRoot
}

// HoardPrefix is the storage directory for one named hoard.
func (p *Paths) HoardPrefix(hoardName string) string {
	return filepath.Join(p.hoardsRoot, hoardName)
}

// PilePrefix is the storage directory for one pile. Anonymous piles
// (empty pile name) store directly under the hoard prefix.
func (p *Paths) PilePrefix(hoardName, pileName string) string {
	if pileName == "" {
		return p.HoardPrefix(hoardName)
	}
	return filepath.Join(p.hoardsRoot, hoardName, pileName)
}

// HistoryDir is the directory holding per-machine operation records.
func (p *Paths) HistoryDir() string {
	return filepath.Join(p.dataDir, HistoryDirName)
}

// UUIDFile is the path of this machine's identifier file.
func (p *Paths) UUIDFile() string {
	return filepath.Join(p.configDir, UUIDFileName)
}
