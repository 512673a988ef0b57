// Package expand implements environment-variable expansion for path
// templates. Templates may contain a leading "~", "$VAR", "${VAR}", and
// "${VAR:-default}" references (the default may itself be a "$VAR"
// reference). Expansion is performed once; values are never expanded
// recursively.
package expand

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/lmburns/hoard/pkg/errors"
)

// Path expands all environment variable references in the given path
// template and returns the cleaned result.
//
// A braced reference to an unset variable with no default fails with
// ErrEnvVarUnset. An unbraced reference to an unset variable is left as
// literal text, as are Windows-style %VAR% references. "$$" escapes a
// literal dollar sign.
func Path(template string) (string, error) {
	s := expandTilde(template)

	if !strings.Contains(s, "$") {
		return filepath.Clean(s), nil
	}

	out, err := expandVars(s, false)
	if err != nil {
		return "", err
	}
	return filepath.Clean(out), nil
}

func expandTilde(s string) string {
	if !strings.HasPrefix(s, "~") {
		return s
	}
	rest := strings.TrimPrefix(s, "~")
	if rest != "" && !strings.HasPrefix(rest, "/") {
		// ~user form is not supported; leave untouched
		return s
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return s
	}
	return home + rest
}

// expandVars scans s once, replacing variable references. When lenient
// is true an unset braced variable keeps its literal text instead of
// failing; this is used when expanding default values.
func expandVars(s string, lenient bool) (string, error) {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		if s[i] != '$' {
			b.WriteByte(s[i])
			i++
			continue
		}

		if i+1 >= len(s) {
			b.WriteByte('$')
			break
		}

		next := s[i+1]
		switch {
		case next == '$':
			// escaped dollar
			b.WriteByte('$')
			i += 2

		case next == '{':
			closing := strings.IndexByte(s[i:], '}')
			if closing < 0 {
				// unterminated brace, keep literal
				b.WriteString(s[i : i+2])
				i += 2
				continue
			}
			closing += i
			body := s[i+2 : closing]
			expanded, err := expandBraced(body, lenient)
			if err != nil {
				return "", err
			}
			b.WriteString(expanded)
			i = closing + 1

		case isVarNameChar(rune(next)):
			end := i + 1
			for end < len(s) && isVarNameChar(rune(s[end])) {
				end++
			}
			name := s[i+1 : end]
			if val, ok := os.LookupEnv(name); ok {
				b.WriteString(val)
			} else {
				// unbraced references never fail
				b.WriteString(s[i:end])
			}
			i = end

		default:
			b.WriteByte('$')
			i++
		}
	}

	return b.String(), nil
}

// expandBraced handles the inside of a ${...} reference, including the
// ":-" default syntax.
func expandBraced(body string, lenient bool) (string, error) {
	name, def, hasDefault := strings.Cut(body, ":-")

	val, ok := os.LookupEnv(name)
	switch {
	case ok && val != "":
		return val, nil
	case hasDefault:
		// the default may itself reference variables; unset ones keep
		// their literal text rather than failing
		return expandVars(def, true)
	case ok:
		// set but empty, no default
		return "", nil
	case lenient:
		return "${" + body + "}", nil
	default:
		return "", errors.Newf(errors.ErrEnvVarUnset, "environment variable %q is not set", name).
			WithDetail("variable", name)
	}
}

func isVarNameChar(c rune) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
