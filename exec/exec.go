// Package exec provides shell command execution helpers.
package exec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	oe "os/exec"
	"strings"
)

// Ex executes the named command in the given directory and
// returns combined stdout+stderr output. Pass empty dir to
// use the current working directory.
func Ex(
	ctx context.Context,
	dir string,
	name string,
	arg ...string,
) (string, error) {
	return ExEnv(ctx, dir, nil, name, arg...)
}

// ExEnv executes the named command with extra environment
// variables appended to the current process environment.
// Each entry has the form "KEY=value".
func ExEnv(
	ctx context.Context,
	dir string,
	env []string,
	name string,
	arg ...string,
) (string, error) {
	const errCtx = "executing command"

	slog.Info(
		"executing",
		"cmd", name,
		"args", strings.Join(arg, " "),
	)

	cmd := oe.CommandContext(ctx, name, arg...)
	if dir != "" {
		cmd.Dir = dir
	}

	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	by, err := cmd.CombinedOutput()

	slog.Info("output", "result", string(by))

	if err != nil {
		return string(by), fmt.Errorf(
			"%s: %s %s: %w",
			errCtx, name, strings.Join(arg, " "), err,
		)
	}

	return string(by), nil
}

// ExitCode returns the subprocess exit code carried by err.
// Returns 0 when err is nil and -1 when err holds no exit
// code (e.g. the command never started).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var xe *oe.ExitError
	if errors.As(err, &xe) {
		return xe.ExitCode()
	}

	return -1
}

// LookPath reports whether the named binary is resolvable
// on PATH, returning its location.
func LookPath(name string) (string, error) {
	const errCtx = "locating binary"

	path, err := oe.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return path, nil
}
