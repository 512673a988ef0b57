// Package walker collects the files a pile covers and copies them
// between the pile's resolved path and hoard's storage, applying the
// pile's filtering settings and its encryption, if any.
package walker

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/lmburns/hoard/pkg/errors"
	"github.com/lmburns/hoard/pkg/hoard"
	"github.com/lmburns/hoard/pkg/logging"
)

// Walker filters and walks a pile's file tree.
type Walker struct {
	cfg       hoard.Walker
	ignores   []string
	sensitive bool
	re        *regexp.Regexp
}

// New compiles a walker from the pile's settings and the global
// ignore patterns. Matching is case-insensitive unless the pile asks
// otherwise or the pattern itself contains an uppercase letter.
func New(cfg hoard.Walker, ignores []string) (*Walker, error) {
	if cfg.Pattern == "" {
		cfg.Pattern = hoard.DefaultWalker().Pattern
	}

	w := &Walker{
		cfg:       cfg,
		ignores:   ignores,
		sensitive: cfg.CaseSensitive || containsUpper(cfg.Pattern),
	}

	if cfg.Regex {
		pattern := cfg.Pattern
		if !w.sensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigValid,
				"invalid file pattern %q", cfg.Pattern).
				WithDetail("pattern", cfg.Pattern)
		}
		w.re = re
	} else if !doublestar.ValidatePattern(cfg.Pattern) {
		return nil, errors.Newf(errors.ErrConfigValid,
			"invalid file pattern %q", cfg.Pattern).
			WithDetail("pattern", cfg.Pattern)
	}

	for _, pattern := range append(append([]string{}, cfg.Exclude...), ignores...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Newf(errors.ErrConfigValid,
				"invalid exclude pattern %q", pattern).
				WithDetail("pattern", pattern)
		}
	}

	return w, nil
}

// Files returns the relative paths of all files under root that the
// walker's settings admit, in sorted order.
func (w *Walker) Files(root string) ([]string, error) {
	logger := logging.GetLogger("walker")

	var files []string
	if err := w.walk(root, "", 1, &files); err != nil {
		return nil, err
	}
	logger.Debug().Str("root", root).Int("files", len(files)).Msg("collected files")
	return files, nil
}

func (w *Walker) walk(root, rel string, depth int, out *[]string) error {
	dir := filepath.Join(root, rel)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to read directory %s", dir).
			WithDetail("directory", dir)
	}

	for _, entry := range entries {
		name := entry.Name()
		entryRel := filepath.Join(rel, name)

		if !w.cfg.Hidden && strings.HasPrefix(name, ".") {
			continue
		}
		if w.excluded(entryRel) {
			continue
		}

		isDir := entry.IsDir()
		if entry.Type()&os.ModeSymlink != 0 {
			if !w.cfg.FollowLinks {
				continue
			}
			info, err := os.Stat(filepath.Join(root, entryRel))
			if err != nil {
				// dangling link
				continue
			}
			isDir = info.IsDir()
		}

		if isDir {
			if w.cfg.MaxDepth > 0 && depth >= w.cfg.MaxDepth {
				continue
			}
			if err := w.walk(root, entryRel, depth+1, out); err != nil {
				return err
			}
			continue
		}

		if w.matchName(name) {
			*out = append(*out, entryRel)
		}
	}
	return nil
}

// matchName tests a file name against the pile's pattern.
func (w *Walker) matchName(name string) bool {
	if w.re != nil {
		return w.re.MatchString(name)
	}
	pattern := w.cfg.Pattern
	if !w.sensitive {
		pattern = strings.ToLower(pattern)
		name = strings.ToLower(name)
	}
	ok, _ := doublestar.Match(pattern, name)
	return ok
}

// excluded tests a relative path against the pile's excludes and the
// global ignores. Patterns match either the whole relative path or
// the base name, so ".git" excludes the directory anywhere.
func (w *Walker) excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	base := filepath.Base(rel)
	for _, pattern := range w.cfg.Exclude {
		if matchEither(pattern, rel, base) {
			return true
		}
	}
	for _, pattern := range w.ignores {
		if matchEither(pattern, rel, base) {
			return true
		}
	}
	return false
}

func matchEither(pattern, rel, base string) bool {
	if ok, _ := doublestar.Match(pattern, rel); ok {
		return true
	}
	ok, _ := doublestar.Match(pattern, base)
	return ok
}

func containsUpper(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}
