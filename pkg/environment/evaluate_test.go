package environment

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmburns/hoard/pkg/errors"
)

func strptr(s string) *string { return &s }

func TestEvaluateOS(t *testing.T) {
	table, err := Evaluate(map[string]Fact{
		"this_os":  {OS: runtime.GOOS},
		"other_os": {OS: "plan9from outerspace"},
	})
	require.NoError(t, err)
	assert.True(t, table.IsTrue("this_os"))
	assert.False(t, table.IsTrue("other_os"))
}

func TestEvaluateEnvVar(t *testing.T) {
	t.Setenv("HOARD_TEST_VAR", "value")

	table, err := Evaluate(map[string]Fact{
		"var_exists":  {EnvVar: &EnvVar{Var: "HOARD_TEST_VAR"}},
		"var_missing": {EnvVar: &EnvVar{Var: "HOARD_TEST_MISSING"}},
		"var_equal":   {EnvVar: &EnvVar{Var: "HOARD_TEST_VAR", Value: strptr("value")}},
		"var_unequal": {EnvVar: &EnvVar{Var: "HOARD_TEST_VAR", Value: strptr("other")}},
	})
	require.NoError(t, err)
	assert.True(t, table.IsTrue("var_exists"))
	assert.False(t, table.IsTrue("var_missing"))
	assert.True(t, table.IsTrue("var_equal"))
	assert.False(t, table.IsTrue("var_unequal"))
}

func TestEvaluateCommand(t *testing.T) {
	table, err := Evaluate(map[string]Fact{
		"has_sh":       {Command: "sh"},
		"has_nonsense": {Command: "hoard-no-such-command-exists"},
	})
	require.NoError(t, err)
	assert.True(t, table.IsTrue("has_sh"))
	assert.False(t, table.IsTrue("has_nonsense"))
}

func TestEvaluatePath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOARD_TEST_DIR", dir)

	table, err := Evaluate(map[string]Fact{
		"dir_exists":   {Path: "${HOARD_TEST_DIR}"},
		"dir_missing":  {Path: filepath.Join(dir, "nope")},
		"unexpandable": {Path: "${HOARD_TEST_UNSET_DIR}/sub"},
	})
	require.NoError(t, err)
	assert.True(t, table.IsTrue("dir_exists"))
	assert.False(t, table.IsTrue("dir_missing"))
	// expansion failure degrades to false, never an error
	assert.False(t, table.IsTrue("unexpandable"))
}

func TestEvaluateCombinators(t *testing.T) {
	facts := map[string]Fact{
		"yes":      {OS: runtime.GOOS},
		"no":       {OS: "beos"},
		"both":     {All: []string{"yes", "no"}},
		"just_yes": {All: []string{"yes"}},
		"either":   {Any: []string{"yes", "no"}},
		"neither":  {Any: []string{"no"}},
		// references a combinator declared "later" in sorted order
		"zz_nested": {All: []string{"either", "just_yes"}},
		// and one declared "earlier"
		"aa_nested": {Any: []string{"zz_nested"}},
	}

	table, err := Evaluate(facts)
	require.NoError(t, err)
	assert.False(t, table.IsTrue("both"))
	assert.True(t, table.IsTrue("just_yes"))
	assert.True(t, table.IsTrue("either"))
	assert.False(t, table.IsTrue("neither"))
	assert.True(t, table.IsTrue("zz_nested"))
	assert.True(t, table.IsTrue("aa_nested"))
}

func TestEvaluateUnknownReference(t *testing.T) {
	_, err := Evaluate(map[string]Fact{
		"combo": {All: []string{"missing"}},
	})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrEnvUnknown))

	details := errors.GetErrorDetails(err)
	assert.Equal(t, "missing", details["environment"])
	assert.Equal(t, "combo", details["referenced_by"])
}

func TestEvaluateCycle(t *testing.T) {
	tests := []struct {
		name  string
		facts map[string]Fact
	}{
		{
			name: "direct self reference",
			facts: map[string]Fact{
				"selfish": {All: []string{"selfish"}},
			},
		},
		{
			name: "mutual reference",
			facts: map[string]Fact{
				"ping": {All: []string{"pong"}},
				"pong": {Any: []string{"ping"}},
			},
		},
		{
			name: "transitive cycle",
			facts: map[string]Fact{
				"a": {All: []string{"b"}},
				"b": {Any: []string{"c"}},
				"c": {All: []string{"a"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.facts)
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrEnvCycle),
				"expected ENV_CYCLE, got %v", err)
		})
	}
}

func TestEvaluateDiamondIsNotACycle(t *testing.T) {
	// two combinators sharing a dependency must not be reported as a
	// cycle
	table, err := Evaluate(map[string]Fact{
		"base":  {OS: runtime.GOOS},
		"left":  {All: []string{"base"}},
		"right": {Any: []string{"base"}},
		"top":   {All: []string{"left", "right"}},
	})
	require.NoError(t, err)
	assert.True(t, table.IsTrue("top"))
}

func TestDecodeFact(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]interface{}
		want    string // expected Kind
		wantErr bool
	}{
		{
			name: "os fact",
			raw:  map[string]interface{}{"os": "linux"},
			want: "os",
		},
		{
			name: "command fact",
			raw:  map[string]interface{}{"command": "git"},
			want: "command",
		},
		{
			name: "path fact",
			raw:  map[string]interface{}{"path": "~/.config/nvim"},
			want: "path",
		},
		{
			name: "env exists shorthand",
			raw:  map[string]interface{}{"env": "EDITOR"},
			want: "env",
		},
		{
			name: "env equals table",
			raw: map[string]interface{}{
				"env": map[string]interface{}{"var": "EDITOR", "value": "nvim"},
			},
			want: "env",
		},
		{
			name: "all combinator",
			raw:  map[string]interface{}{"all": []interface{}{"linux", "has_git"}},
			want: "all",
		},
		{
			name:    "no predicate",
			raw:     map[string]interface{}{},
			wantErr: true,
		},
		{
			name: "two predicates",
			raw: map[string]interface{}{
				"os":      "linux",
				"command": "git",
			},
			wantErr: true,
		},
		{
			name:    "unknown predicate",
			raw:     map[string]interface{}{"hostname": "box"},
			wantErr: true,
		},
		{
			name:    "empty combinator",
			raw:     map[string]interface{}{"any": []interface{}{}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fact, err := DecodeFact("test_env", tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsErrorCode(err, errors.ErrEnvInvalid))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, fact.Kind())
		})
	}
}

func TestDecodeFacts(t *testing.T) {
	raw := map[string]interface{}{
		"linux":   map[string]interface{}{"os": "linux"},
		"has_git": map[string]interface{}{"command": "git"},
		"either":  map[string]interface{}{"any": []interface{}{"linux", "has_git"}},
	}

	facts, err := DecodeFacts(raw)
	require.NoError(t, err)
	require.Len(t, facts, 3)
	assert.Equal(t, "os", facts["linux"].Kind())
	assert.Equal(t, []string{"linux", "has_git"}, facts["either"].Any)

	_, err = DecodeFacts(map[string]interface{}{"bad": "not a table"})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrEnvInvalid))
}
