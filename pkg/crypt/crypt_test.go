package crypt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmburns/hoard/pkg/errors"
	"github.com/lmburns/hoard/pkg/hoard"
)

func TestNames(t *testing.T) {
	assert.Equal(t, "notes.txt.sec", EncryptedName("notes.txt"))
	assert.True(t, IsEncryptedName("notes.txt.sec"))
	assert.False(t, IsEncryptedName("notes.txt"))
	assert.Equal(t, "notes.txt", PlainName("notes.txt.sec"))
	assert.Equal(t, "notes.txt", PlainName("notes.txt"))
}

func TestIsKeyFile(t *testing.T) {
	assert.True(t, IsKeyFile(".gpg-id"))
	assert.True(t, IsKeyFile(".public-keys"))
	assert.False(t, IsKeyFile(".gitignore"))
}

func TestNewNilConfig(t *testing.T) {
	e := New(nil)
	assert.False(t, e.Enabled())
}

func TestSymmetricEncryptArgs(t *testing.T) {
	e := New(&hoard.Encryption{
		Kind:     hoard.EncryptionSymmetric,
		Password: "hunter2",
	})
	args, stdin, err := e.encryptArgs("/store/a.sec", "/src/a")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", stdin)
	assert.Contains(t, args, "--symmetric")
	assert.Contains(t, args, "--passphrase-fd")
	assert.Equal(t, "/src/a", args[len(args)-1])
}

func TestSymmetricMissingPassphrase(t *testing.T) {
	e := New(&hoard.Encryption{Kind: hoard.EncryptionSymmetric})
	_, _, err := e.encryptArgs("/store/a.sec", "/src/a")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrEncrypt))
}

func TestAsymmetricEncryptArgs(t *testing.T) {
	e := New(&hoard.Encryption{
		Kind:      hoard.EncryptionAsymmetric,
		PublicKey: "alice@example.com",
		Armor:     true,
	})
	args, stdin, err := e.encryptArgs("/store/a.sec", "/src/a")
	require.NoError(t, err)
	assert.Empty(t, stdin)
	assert.Contains(t, args, "--armor")
	assert.Contains(t, args, "--recipient")
	assert.Contains(t, args, "alice@example.com")
}

func TestDecryptArgs(t *testing.T) {
	e := New(&hoard.Encryption{
		Kind:     hoard.EncryptionSymmetric,
		Password: "hunter2",
	})
	args, stdin, err := e.decryptArgs("/src/a", "/store/a.sec")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", stdin)
	assert.Contains(t, args, "--decrypt")
	assert.Equal(t, "/store/a.sec", args[len(args)-1])
}

func TestPassphraseFromCommand(t *testing.T) {
	pass, err := passphraseFromCommand([]string{"echo", "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "s3cret", pass)
}

func TestPassphraseFromCommandFailure(t *testing.T) {
	_, err := passphraseFromCommand([]string{"false"})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrEncrypt))
}

func TestRedactArgs(t *testing.T) {
	args := []string{"--recipient", "alice@example.com", "--encrypt"}
	redacted := redactArgs(args)
	assert.Equal(t, "<redacted>", redacted[1])
	// original untouched
	assert.Equal(t, "alice@example.com", args[1])
}
