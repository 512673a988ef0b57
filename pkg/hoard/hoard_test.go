package hoard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmburns/hoard/pkg/errors"
)

func TestDecodeHoardsAnonymous(t *testing.T) {
	raw := map[string]interface{}{
		"vim": map[string]interface{}{
			"bar_env|foo_env": "/some/path",
			"windows":         "C:/other/path",
		},
	}

	hoards, err := DecodeHoards(raw)
	require.NoError(t, err)
	require.Len(t, hoards, 1)

	h := hoards["vim"]
	require.True(t, h.IsAnonymous())
	assert.Nil(t, h.Config)
	assert.Equal(t, map[string]string{
		"bar_env|foo_env": "/some/path",
		"windows":         "C:/other/path",
	}, h.Anonymous.Items)
}

func TestDecodeHoardsNamed(t *testing.T) {
	raw := map[string]interface{}{
		"configs": map[string]interface{}{
			"config": map[string]interface{}{
				"encrypt":      "symmetric",
				"encrypt_pass": "correcthorsebatterystaple",
			},
			"nvim": map[string]interface{}{
				"linux": "~/.config/nvim",
			},
			"alacritty": map[string]interface{}{
				"config": map[string]interface{}{
					"hidden":  true,
					"pattern": "*.yml",
				},
				"linux": "~/.config/alacritty",
			},
		},
	}

	hoards, err := DecodeHoards(raw)
	require.NoError(t, err)

	h := hoards["configs"]
	require.False(t, h.IsAnonymous())
	require.Len(t, h.Named, 2)

	require.NotNil(t, h.Config)
	require.NotNil(t, h.Config.Encryption)
	assert.Equal(t, EncryptionSymmetric, h.Config.Encryption.Kind)
	assert.Equal(t, "correcthorsebatterystaple", h.Config.Encryption.Password)

	nvim := h.Named["nvim"]
	assert.Nil(t, nvim.Config)
	assert.Equal(t, "~/.config/nvim", nvim.Items["linux"])

	alacritty := h.Named["alacritty"]
	require.NotNil(t, alacritty.Config)
	assert.True(t, alacritty.Config.Walker.Hidden)
	assert.Equal(t, "*.yml", alacritty.Config.Walker.Pattern)
}

func TestDecodeHoardErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]interface{}
	}{
		{
			name: "hoard is not a table",
			raw:  map[string]interface{}{"vim": "/just/a/path"},
		},
		{
			name: "mixed anonymous and named entries",
			raw: map[string]interface{}{
				"vim": map[string]interface{}{
					"linux": "/a/path",
					"pile": map[string]interface{}{
						"linux": "/b/path",
					},
				},
			},
		},
		{
			name: "unknown config field",
			raw: map[string]interface{}{
				"vim": map[string]interface{}{
					"config": map[string]interface{}{"wander": true},
					"linux":  "/a/path",
				},
			},
		},
		{
			name: "unknown encryption kind",
			raw: map[string]interface{}{
				"vim": map[string]interface{}{
					"config": map[string]interface{}{"encrypt": "rot13"},
					"linux":  "/a/path",
				},
			},
		},
		{
			name: "encryption options without kind",
			raw: map[string]interface{}{
				"vim": map[string]interface{}{
					"config": map[string]interface{}{"encrypt_pass": "hunter2"},
					"linux":  "/a/path",
				},
			},
		},
		{
			name: "negative max depth",
			raw: map[string]interface{}{
				"vim": map[string]interface{}{
					"config": map[string]interface{}{"max_depth": int64(-2)},
					"linux":  "/a/path",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeHoards(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrHoardInvalid),
				"expected HOARD_INVALID, got %v", err)
		})
	}
}

func TestDecodePileConfigWalker(t *testing.T) {
	raw := map[string]interface{}{
		"follow_links":   true,
		"hidden":         true,
		"max_depth":      int64(3),
		"exclude":        []interface{}{"*.bak", "*.swp"},
		"pattern":        "*.conf",
		"regex":          false,
		"case_sensitive": true,
	}

	config, err := decodePileConfig("test", raw)
	require.NoError(t, err)
	assert.Nil(t, config.Encryption)
	assert.Equal(t, Walker{
		FollowLinks:   true,
		Hidden:        true,
		MaxDepth:      3,
		Exclude:       []string{"*.bak", "*.swp"},
		Pattern:       "*.conf",
		CaseSensitive: true,
	}, config.Walker)
}

func TestDecodePileConfigAsymmetric(t *testing.T) {
	config, err := decodePileConfig("test", map[string]interface{}{
		"encrypt":         "asymmetric",
		"encrypt_pub_key": "public key",
	})
	require.NoError(t, err)
	require.NotNil(t, config.Encryption)
	assert.Equal(t, EncryptionAsymmetric, config.Encryption.Kind)
	assert.Equal(t, "public key", config.Encryption.PublicKey)
	assert.True(t, config.Encryption.Armor, "armor defaults to true")

	config, err = decodePileConfig("test", map[string]interface{}{
		"encrypt":       "asymmetric",
		"encrypt_armor": false,
	})
	require.NoError(t, err)
	assert.False(t, config.Encryption.Armor)
}

func TestDefaultWalker(t *testing.T) {
	w := DefaultWalker()
	assert.Equal(t, "*", w.Pattern)
	assert.Zero(t, w.MaxDepth)
	assert.False(t, w.Hidden)
}
