// Package crypt encrypts and decrypts pile files by shelling out to
// gpg. Both supported modes map onto gpg directly: symmetric with a
// passphrase (literal or produced by a command) and asymmetric with a
// recipient public key.
package crypt

import (
	"context"
	"strings"

	"github.com/lmburns/hoard/pkg/errors"
	"github.com/lmburns/hoard/pkg/hoard"
)

// EncryptedSuffix marks files hoard has encrypted inside a hoard's
// storage prefix.
const EncryptedSuffix = ".sec"

// Special file names inside a pile prefix that are never encrypted:
// they carry key material the decrypting side needs in the clear.
const (
	GPGIDFile      = ".gpg-id"
	PublicKeysFile = ".public-keys"
)

// Engine encrypts and decrypts files for one pile.
type Engine struct {
	enc *hoard.Encryption
}

// New builds an Engine for the given encryption configuration, or nil
// when the pile is not encrypted.
func New(enc *hoard.Encryption) *Engine {
	if enc == nil {
		return nil
	}
	return &Engine{enc: enc}
}

// Enabled reports whether this engine actually encrypts.
func (e *Engine) Enabled() bool {
	return e != nil
}

// EncryptedName returns the storage name for a plain file name.
func EncryptedName(name string) string {
	return name + EncryptedSuffix
}

// IsEncryptedName reports whether a storage name carries the
// encrypted suffix.
func IsEncryptedName(name string) bool {
	return strings.HasSuffix(name, EncryptedSuffix)
}

// PlainName strips the encrypted suffix from a storage name.
func PlainName(name string) string {
	return strings.TrimSuffix(name, EncryptedSuffix)
}

// IsKeyFile reports whether a file name is key material that must be
// stored unencrypted.
func IsKeyFile(name string) bool {
	return name == GPGIDFile || name == PublicKeysFile
}

// Encrypt encrypts src into dst.
func (e *Engine) Encrypt(ctx context.Context, src, dst string) error {
	if !e.Enabled() {
		return errors.New(errors.ErrEncrypt, "encryption is not configured for this pile")
	}
	args, stdin, err := e.encryptArgs(dst, src)
	if err != nil {
		return err
	}
	if err := runGPG(ctx, args, stdin); err != nil {
		return errors.Wrapf(err, errors.ErrEncrypt, "failed to encrypt %s", src).
			WithDetail("source", src).
			WithDetail("destination", dst)
	}
	return nil
}

// Decrypt decrypts src into dst.
func (e *Engine) Decrypt(ctx context.Context, src, dst string) error {
	if !e.Enabled() {
		return errors.New(errors.ErrDecrypt, "encryption is not configured for this pile")
	}
	args, stdin, err := e.decryptArgs(dst, src)
	if err != nil {
		return err
	}
	if err := runGPG(ctx, args, stdin); err != nil {
		return errors.Wrapf(err, errors.ErrDecrypt, "failed to decrypt %s", src).
			WithDetail("source", src).
			WithDetail("destination", dst)
	}
	return nil
}

// encryptArgs builds the gpg invocation for encryption. The returned
// stdin is the passphrase for symmetric mode, empty otherwise.
func (e *Engine) encryptArgs(dst, src string) ([]string, string, error) {
	args := []string{"--batch", "--yes", "--quiet", "--output", dst}

	switch e.enc.Kind {
	case hoard.EncryptionSymmetric:
		pass, err := e.passphrase()
		if err != nil {
			return nil, "", err
		}
		args = append(args, "--passphrase-fd", "0", "--pinentry-mode", "loopback", "--symmetric")
		return append(args, src), pass, nil
	case hoard.EncryptionAsymmetric:
		if e.enc.Armor {
			args = append(args, "--armor")
		}
		args = append(args, "--recipient", e.enc.PublicKey, "--encrypt")
		return append(args, src), "", nil
	}
	return nil, "", errors.Newf(errors.ErrEncrypt, "unknown encryption kind %q", e.enc.Kind)
}

// decryptArgs builds the gpg invocation for decryption.
func (e *Engine) decryptArgs(dst, src string) ([]string, string, error) {
	args := []string{"--batch", "--yes", "--quiet", "--output", dst}

	switch e.enc.Kind {
	case hoard.EncryptionSymmetric:
		pass, err := e.passphrase()
		if err != nil {
			return nil, "", err
		}
		args = append(args, "--passphrase-fd", "0", "--pinentry-mode", "loopback", "--decrypt")
		return append(args, src), pass, nil
	case hoard.EncryptionAsymmetric:
		args = append(args, "--decrypt")
		return append(args, src), "", nil
	}
	return nil, "", errors.Newf(errors.ErrDecrypt, "unknown encryption kind %q", e.enc.Kind)
}

// passphrase resolves the symmetric passphrase, preferring a literal
// password over a password command.
func (e *Engine) passphrase() (string, error) {
	if e.enc.Password != "" {
		return e.enc.Password, nil
	}
	if len(e.enc.PasswordCmd) > 0 {
		return passphraseFromCommand(e.enc.PasswordCmd)
	}
	return "", errors.New(errors.ErrEncrypt,
		"symmetric encryption requires encrypt_pass or encrypt_pass_cmd")
}
