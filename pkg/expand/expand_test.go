package expand

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmburns/hoard/pkg/errors"
)

func TestPath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		env   map[string]string
		want  string
	}{
		{
			name:  "var at start",
			input: "${TEST_HOME}/test/file",
			env:   map[string]string{"TEST_HOME": "/home/testuser"},
			want:  "/home/testuser/test/file",
		},
		{
			name:  "var in middle",
			input: "/home/testuser/${TEST_PATH}/file",
			env:   map[string]string{"TEST_PATH": "test/subdir/subberdir"},
			want:  "/home/testuser/test/subdir/subberdir/file",
		},
		{
			name:  "var at end",
			input: "/home/testuser/${TEST_PATH}",
			env:   map[string]string{"TEST_PATH": "test/subdir/file"},
			want:  "/home/testuser/test/subdir/file",
		},
		{
			name:  "path without var stays same",
			input: "/path/without/variables",
			env:   map[string]string{"UNUSED": "NOTHING"},
			want:  "/path/without/variables",
		},
		{
			name:  "two occurrences of one variable",
			input: "/home/${TEST_USER}/somedir/${TEST_USER}/file",
			env:   map[string]string{"TEST_USER": "testuser"},
			want:  "/home/testuser/somedir/testuser/file",
		},
		{
			name:  "unbraced var expands",
			input: "/path/with/$VALID/variable",
			env:   map[string]string{"VALID": "works"},
			want:  "/path/with/works/variable",
		},
		{
			name:  "unbraced unset var kept literal",
			input: "/path/with/$MISSING_UNBRACED/variable",
			want:  "/path/with/$MISSING_UNBRACED/variable",
		},
		{
			name:  "windows style not expanded",
			input: "/path/with/%INVALID%/variable",
			env:   map[string]string{"INVALID": "broken"},
			want:  "/path/with/%INVALID%/variable",
		},
		{
			name:  "values not recursively expanded",
			input: "${TEST_HOME}",
			env:   map[string]string{"TEST_HOME": "${HOME}"},
			want:  "${HOME}",
		},
		{
			name:  "default used when unset",
			input: "${HOARD_UNSET_FIRST:-/fallback/dir}/path/ok",
			want:  "/fallback/dir/path/ok",
		},
		{
			name:  "default ignored when set",
			input: "${FIRST:-/NOTEXPANDED/dir}/path/ok",
			env:   map[string]string{"FIRST": "/EXPANDED/dir"},
			want:  "/EXPANDED/dir/path/ok",
		},
		{
			name:  "nested variable default",
			input: "${HOARD_UNSET_FIRST:-$SECOND}/path/ok",
			env:   map[string]string{"SECOND": "/EXPANDED/dir"},
			want:  "/EXPANDED/dir/path/ok",
		},
		{
			name:  "escaped dollar",
			input: "/price/$$5/file",
			want:  "/price/$5/file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			got, err := Path(tt.input)
			require.NoError(t, err)
			assert.Equal(t, filepath.Clean(tt.want), got)
		})
	}
}

func TestPathUnsetBracedVar(t *testing.T) {
	// braced reference without a default escalates to an error
	_, err := Path("/some/${HOARD_DEFINITELY_UNSET}/path")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrEnvVarUnset))

	details := errors.GetErrorDetails(err)
	assert.Equal(t, "HOARD_DEFINITELY_UNSET", details["variable"])
}

func TestPathTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	t.Run("leading tilde expands to home", func(t *testing.T) {
		got, err := Path("~/somewhere")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "somewhere"), got)
	})

	t.Run("bare tilde is home", func(t *testing.T) {
		got, err := Path("~")
		require.NoError(t, err)
		assert.Equal(t, filepath.Clean(home), got)
	})

	t.Run("tilde user form untouched", func(t *testing.T) {
		got, err := Path("~other/somewhere")
		require.NoError(t, err)
		assert.Equal(t, "~other/somewhere", got)
	})
}
