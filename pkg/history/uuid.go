// Package history records what hoard has done on this machine: a
// stable machine identity and, per hoard, the resolved paths of the
// last operation. The path records are what lets a later run notice
// that a pile now resolves somewhere else than the files it would
// restore came from.
package history

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/lmburns/hoard/pkg/errors"
	"github.com/lmburns/hoard/pkg/logging"
	"github.com/lmburns/hoard/pkg/paths"
)

// MachineID returns this machine's stable identifier, generating and
// persisting a new one on first use. A corrupt identity file is
// replaced rather than treated as fatal: losing the identity only
// costs divergence detection, not data.
func MachineID(p *paths.Paths) (string, error) {
	logger := logging.GetLogger("history")
	file := p.UUIDFile()

	data, err := os.ReadFile(file)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if parsed, perr := uuid.Parse(id); perr == nil {
			return parsed.String(), nil
		}
		logger.Warn().Str("file", file).Msg("machine identity file is corrupt, regenerating")
	} else if !os.IsNotExist(err) {
		return "", errors.Wrap(err, errors.ErrHistoryAccess, "failed to read machine identity").
			WithDetail("file", file)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return "", errors.Wrap(err, errors.ErrDirCreate, "failed to create history directory")
	}
	if err := os.WriteFile(file, []byte(id+"\n"), 0o644); err != nil {
		return "", errors.Wrap(err, errors.ErrHistoryAccess, "failed to write machine identity").
			WithDetail("file", file)
	}
	logger.Debug().Str("id", id).Msg("generated machine identity")
	return id, nil
}
