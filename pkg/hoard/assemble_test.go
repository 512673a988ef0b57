package hoard

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmburns/hoard/pkg/environment"
	"github.com/lmburns/hoard/pkg/errors"
	"github.com/lmburns/hoard/pkg/resolve"
)

func TestAssembleAnonymousExpandsEnvVars(t *testing.T) {
	t.Setenv("HOARD_TEST_HOME", "/home/tester")

	def := Hoard{
		Anonymous: &Pile{
			Items: map[string]string{
				"foo": "${HOARD_TEST_HOME}/something",
			},
		},
	}

	resolved, err := Assemble("test", def, environment.Table{"foo": true}, nil)
	require.NoError(t, err)
	require.NotNil(t, resolved.Anonymous)
	assert.Equal(t, filepath.Clean("/home/tester/something"), resolved.Anonymous.Path)
}

func TestAssembleNoMatchIsNotAnError(t *testing.T) {
	def := Hoard{
		Anonymous: &Pile{
			Items: map[string]string{
				"windows": "C:/somewhere",
			},
		},
	}

	resolved, err := Assemble("test", def, environment.Table{"linux": true}, nil)
	require.NoError(t, err)
	require.NotNil(t, resolved.Anonymous)
	assert.False(t, resolved.Anonymous.HasPath())
}

func TestAssembleNamedInheritsSharedConfig(t *testing.T) {
	shared := &PileConfig{
		Encryption: &Encryption{Kind: EncryptionSymmetric, Password: "hunter2"},
		Walker:     DefaultWalker(),
	}
	own := &PileConfig{Walker: Walker{Pattern: "*.toml"}}

	def := Hoard{
		Config: shared,
		Named: map[string]Pile{
			"inherits": {
				Items: map[string]string{"foo": "/a"},
			},
			"overrides": {
				Config: own,
				Items:  map[string]string{"foo": "/b"},
			},
		},
	}

	resolved, err := Assemble("test", def, environment.Table{"foo": true}, nil)
	require.NoError(t, err)
	require.Len(t, resolved.Named, 2)

	assert.Same(t, shared, resolved.Named["inherits"].Config)
	assert.Same(t, own, resolved.Named["overrides"].Config)
}

func TestAssembleIndecisionCarriesHoardAndPile(t *testing.T) {
	def := Hoard{
		Named: map[string]Pile{
			"torn": {
				Items: map[string]string{
					"foo": "/a",
					"baz": "/c",
				},
			},
		},
	}

	_, err := Assemble("games", def, environment.Table{"foo": true, "baz": true}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrIndecision))

	details := errors.GetErrorDetails(err)
	assert.Equal(t, "games", details["hoard"])
	assert.Equal(t, "torn", details["pile"])
}

func TestAssembleExclusivityViolationAborts(t *testing.T) {
	def := Hoard{
		Anonymous: &Pile{
			Items: map[string]string{
				"vim|neovim": "/conflict",
			},
		},
	}

	// rejected even though neither environment is true
	_, err := Assemble("editors", def, environment.Table{}, resolve.Exclusivity{{"vim", "neovim"}})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConditionInvalid))
	assert.Equal(t, "editors", errors.GetErrorDetails(err)["hoard"])
}

func TestAssembleUnsetVarInWinningPathFails(t *testing.T) {
	def := Hoard{
		Anonymous: &Pile{
			Items: map[string]string{
				"foo": "${HOARD_SURELY_UNSET_VAR}/files",
			},
		},
	}

	_, err := Assemble("test", def, environment.Table{"foo": true}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrEnvVarUnset))
}

func TestResolvedHoardPiles(t *testing.T) {
	anon := &ResolvedHoard{Anonymous: &ResolvedPile{Path: "/a"}}
	piles := anon.Piles()
	require.Len(t, piles, 1)
	assert.Equal(t, "/a", piles[""].Path)

	named := &ResolvedHoard{Named: map[string]ResolvedPile{
		"one": {Path: "/1"},
		"two": {},
	}}
	piles = named.Piles()
	require.Len(t, piles, 2)
	assert.True(t, piles["one"].HasPath())
	assert.False(t, piles["two"].HasPath())
}
