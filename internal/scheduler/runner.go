package scheduler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Runner hands a control file to the scheduler and reports how it went.
// A non-zero exitCode with a nil error means the command ran and failed.
type Runner interface {
	Run(ctx context.Context, scriptPath string) (exitCode int, stdout string, err error)
}

// ExecRunner runs a submit binary such as sbatch or qsub.
type ExecRunner struct {
	Binary string   // e.g. "sbatch"
	Args   []string // Extra arguments placed before the script path
}

// NewExecRunner resolves binary on PATH when it is not a path already.
func NewExecRunner(binary string, args ...string) (*ExecRunner, error) {
	if binary == "" {
		return nil, fmt.Errorf("%w: no submit binary configured", ErrSchedulerNotFound)
	}
	if !strings.ContainsRune(binary, filepath.Separator) {
		resolved, err := exec.LookPath(binary)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSchedulerNotFound, err)
		}
		binary = resolved
	}
	return &ExecRunner{Binary: binary, Args: args}, nil
}

// Run executes "<Binary> <Args...> <scriptPath>" and waits for it.
func (r *ExecRunner) Run(ctx context.Context, scriptPath string) (int, string, error) {
	args := append(append([]string{}, r.Args...), scriptPath)
	cmd := exec.CommandContext(ctx, r.Binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return exitErr.ExitCode(), stdout.String() + stderr.String(), nil
		}
		return -1, stdout.String(), err
	}
	return 0, stdout.String(), nil
}
