package crypt

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/lmburns/hoard/pkg/errors"
	"github.com/lmburns/hoard/pkg/logging"
)

// gpgBinary is a variable so tests can stub the executable.
var gpgBinary = "gpg"

// runGPG executes gpg with the given arguments, feeding stdin when
// non-empty. gpg's stderr is folded into the returned error.
func runGPG(ctx context.Context, args []string, stdin string) error {
	logger := logging.GetLogger("crypt")
	logger.Debug().Strs("args", redactArgs(args)).Msg("running gpg")

	cmd := exec.CommandContext(ctx, gpgBinary, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return errors.Wrapf(err, errors.ErrInternal, "gpg: %s", msg)
		}
		return err
	}
	return nil
}

// passphraseFromCommand runs the configured command and uses the
// first line of its stdout as the passphrase.
func passphraseFromCommand(cmdline []string) (string, error) {
	cmd := exec.Command(cmdline[0], cmdline[1:]...)
	out, err := cmd.Output()
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrEncrypt,
			"password command %q failed", cmdline[0]).
			WithDetail("command", cmdline[0])
	}
	pass, _, _ := strings.Cut(string(out), "\n")
	pass = strings.TrimRight(pass, "\r")
	if pass == "" {
		return "", errors.Newf(errors.ErrEncrypt,
			"password command %q produced no passphrase", cmdline[0]).
			WithDetail("command", cmdline[0])
	}
	return pass, nil
}

// redactArgs hides recipient values from debug logs.
func redactArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i, arg := range out {
		if arg == "--recipient" && i+1 < len(out) {
			out[i+1] = "<redacted>"
		}
	}
	return out
}
