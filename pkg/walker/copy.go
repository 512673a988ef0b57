package walker

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/lmburns/hoard/pkg/crypt"
	"github.com/lmburns/hoard/pkg/errors"
	"github.com/lmburns/hoard/pkg/hoard"
	"github.com/lmburns/hoard/pkg/logging"
)

// Backup copies a pile from its resolved path src into the storage
// prefix dst. A missing source is skipped with a warning; a pile that
// has never existed on this machine is not an error.
func (w *Walker) Backup(ctx context.Context, src, dst string, engine *crypt.Engine) error {
	logger := logging.GetLogger("walker")

	info, err := os.Stat(src)
	if os.IsNotExist(err) {
		logger.Warn().Str("path", src).Msg("pile path does not exist, skipping backup")
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to stat %s", src).
			WithDetail("path", src)
	}

	if !info.IsDir() {
		if err := checkTarget(dst, false); err != nil {
			return err
		}
		return w.copyOut(ctx, src, dst, engine)
	}

	if err := checkTarget(dst, true); err != nil {
		return err
	}
	files, err := w.Files(src)
	if err != nil {
		return err
	}
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.copyOut(ctx, filepath.Join(src, rel), filepath.Join(dst, rel), engine); err != nil {
			return err
		}
	}
	logger.Info().Str("source", src).Str("prefix", dst).Int("files", len(files)).Msg("backed up pile")
	return nil
}

// Restore copies a pile from the storage prefix src back to its
// resolved path dst. A pile that was never backed up is skipped.
func (w *Walker) Restore(ctx context.Context, src, dst string, engine *crypt.Engine) error {
	logger := logging.GetLogger("walker")

	info, err := os.Stat(src)
	if os.IsNotExist(err) {
		// a single-file encrypted pile is stored under its encrypted name
		if engine.Enabled() {
			if enc := crypt.EncryptedName(src); exists(enc) {
				if err := checkTarget(dst, false); err != nil {
					return err
				}
				return copyIn(ctx, enc, dst, engine)
			}
		}
		logger.Warn().Str("prefix", src).Msg("nothing stored for pile, skipping restore")
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to stat %s", src).
			WithDetail("path", src)
	}

	if !info.IsDir() {
		if err := checkTarget(dst, false); err != nil {
			return err
		}
		return copyIn(ctx, src, dst, engine)
	}

	if err := checkTarget(dst, true); err != nil {
		return err
	}
	// restore everything stored, not just what currently matches
	stored := &Walker{cfg: hoard.Walker{
		Pattern:     "*",
		Hidden:      true,
		FollowLinks: w.cfg.FollowLinks,
	}}
	files, err := stored.Files(src)
	if err != nil {
		return err
	}
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		// key material stays in storage only
		if crypt.IsKeyFile(filepath.Base(rel)) {
			continue
		}
		target := rel
		if crypt.IsEncryptedName(rel) {
			target = crypt.PlainName(rel)
		}
		if err := copyIn(ctx, filepath.Join(src, rel), filepath.Join(dst, target), engine); err != nil {
			return err
		}
	}
	logger.Info().Str("prefix", src).Str("target", dst).Int("files", len(files)).Msg("restored pile")
	return nil
}

// copyOut writes one file into storage, encrypting unless the file is
// key material.
func (w *Walker) copyOut(ctx context.Context, src, dst string, engine *crypt.Engine) error {
	if engine.Enabled() && !crypt.IsKeyFile(filepath.Base(src)) {
		dst = crypt.EncryptedName(dst)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return errors.Wrap(err, errors.ErrDirCreate, "failed to create storage directory")
		}
		return engine.Encrypt(ctx, src, dst)
	}
	return copyFile(src, dst)
}

// copyIn writes one stored file back, decrypting when it carries the
// encrypted suffix.
func copyIn(ctx context.Context, src, dst string, engine *crypt.Engine) error {
	if crypt.IsEncryptedName(src) {
		if !engine.Enabled() {
			return errors.Newf(errors.ErrDecrypt,
				"%s is encrypted but the pile has no encryption configured", src).
				WithDetail("path", src)
		}
		dst = crypt.PlainName(dst)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return errors.Wrap(err, errors.ErrDirCreate, "failed to create directory")
		}
		return engine.Decrypt(ctx, src, dst)
	}
	return copyFile(src, dst)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// checkTarget fails when the target exists but is the wrong kind of
// file for the pile.
func checkTarget(path string, wantDir bool) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to stat %s", path).
			WithDetail("path", path)
	}
	if info.IsDir() != wantDir {
		kind, want := "file", "directory"
		if info.IsDir() {
			kind, want = "directory", "file"
		}
		return errors.Newf(errors.ErrTypeMismatch,
			"%s is a %s but the pile expects a %s", path, kind, want).
			WithDetail("path", path)
	}
	return nil
}

// copyFile copies src to dst, creating parent directories and
// preserving the source's permission bits.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileCopy, "failed to open %s", src).
			WithDetail("path", src)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileCopy, "failed to stat %s", src).
			WithDetail("path", src)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrDirCreate, "failed to create directory").
			WithDetail("path", filepath.Dir(dst))
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileCopy, "failed to create %s", dst).
			WithDetail("path", dst)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.Wrapf(err, errors.ErrFileCopy, "failed to copy %s", src).
			WithDetail("source", src).
			WithDetail("destination", dst)
	}
	return out.Close()
}
