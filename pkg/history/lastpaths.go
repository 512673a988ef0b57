package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/lmburns/hoard/pkg/errors"
	"github.com/lmburns/hoard/pkg/logging"
	"github.com/lmburns/hoard/pkg/paths"
)

// lastPathsFile is the record file name inside the history directory.
const lastPathsFile = "last_paths.json"

// LastPaths records, per hoard and per machine, the resolved pile
// paths of the most recent operation. Records are keyed by machine
// identity so a synced data directory does not mix machines up.
type LastPaths struct {
	file string
	// hoard -> machine id -> pile name -> path
	Records map[string]map[string]map[string]string
}

// Open loads the last-paths record, returning an empty record when
// none exists yet.
func Open(p *paths.Paths) (*LastPaths, error) {
	file := filepath.Join(p.HistoryDir(), lastPathsFile)
	lp := &LastPaths{
		file:    file,
		Records: map[string]map[string]map[string]string{},
	}

	data, err := os.ReadFile(file)
	if os.IsNotExist(err) {
		return lp, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrHistoryAccess, "failed to read operation history").
			WithDetail("file", file)
	}
	if err := json.Unmarshal(data, &lp.Records); err != nil {
		return nil, errors.Wrap(err, errors.ErrHistoryAccess, "operation history is corrupt").
			WithDetail("file", file)
	}
	return lp, nil
}

// Get returns the recorded pile paths for a hoard on a machine, or
// nil when that hoard has never been operated on there.
func (lp *LastPaths) Get(hoardName, machineID string) map[string]string {
	byMachine, ok := lp.Records[hoardName]
	if !ok {
		return nil
	}
	return byMachine[machineID]
}

// Record stores the pile paths a hoard resolved to for an operation
// that is about to run. Call Save to persist.
func (lp *LastPaths) Record(hoardName, machineID string, piles map[string]string) {
	byMachine, ok := lp.Records[hoardName]
	if !ok {
		byMachine = map[string]map[string]string{}
		lp.Records[hoardName] = byMachine
	}
	copied := make(map[string]string, len(piles))
	for name, path := range piles {
		copied[name] = path
	}
	byMachine[machineID] = copied
}

// Check compares the current resolved pile paths against the last
// recorded ones and fails when they diverge. force suppresses the
// failure, letting the caller proceed deliberately.
func (lp *LastPaths) Check(hoardName, machineID string, current map[string]string, force bool) error {
	logger := logging.GetLogger("history")

	recorded := lp.Get(hoardName, machineID)
	if recorded == nil {
		return nil
	}

	var diverged []string
	for pileName, path := range current {
		last, ok := recorded[pileName]
		if ok && last != path {
			diverged = append(diverged, pileName)
		}
	}
	if len(diverged) == 0 {
		return nil
	}
	sort.Strings(diverged)

	if force {
		logger.Warn().
			Str("hoard", hoardName).
			Strs("piles", diverged).
			Msg("pile paths diverged from last operation, continuing under --force")
		return nil
	}

	pile := diverged[0]
	return errors.Newf(errors.ErrPathsDiverged,
		"hoard %q pile %q now resolves to %q but last operated on %q (use --force to override)",
		hoardName, displayPile(pile), current[pile], recorded[pile]).
		WithDetail("hoard", hoardName).
		WithDetail("pile", pile).
		WithDetail("current", current[pile]).
		WithDetail("recorded", recorded[pile])
}

// Save writes the record file, creating the history directory if
// needed.
func (lp *LastPaths) Save() error {
	if err := os.MkdirAll(filepath.Dir(lp.file), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrDirCreate, "failed to create history directory")
	}
	data, err := json.MarshalIndent(lp.Records, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to serialize operation history")
	}
	if err := os.WriteFile(lp.file, append(data, '\n'), 0o644); err != nil {
		return errors.Wrap(err, errors.ErrHistoryAccess, "failed to write operation history").
			WithDetail("file", lp.file)
	}
	return nil
}

// displayPile renders the anonymous pile's empty name readably.
func displayPile(name string) string {
	if name == "" {
		return "(anonymous)"
	}
	return name
}
