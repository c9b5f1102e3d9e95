package scheduler

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/atakaragoz/launch/internal/utils"
)

// DefaultMarker starts the line sbatch prints for an accepted job.
const DefaultMarker = "Submitted batch job"

// DefaultScriptExt is the extension of generated control files.
const DefaultScriptExt = ".slurm"

// SubmissionResult describes one submission attempt.
type SubmissionResult struct {
	JobID     *int
	RawOutput string
	Succeeded bool
	DryRun    bool
	Retained  bool
	Warnings  []string
}

// Submitter writes control files and hands them to a Runner.
type Submitter struct {
	Runner Runner
	Marker string // Prefix of the success line; DefaultMarker when empty
	Binary string // Name used in error messages
}

// NewSubmitter returns a submitter using runner and the default marker.
func NewSubmitter(runner Runner) *Submitter {
	s := &Submitter{Runner: runner, Marker: DefaultMarker}
	if er, ok := runner.(*ExecRunner); ok {
		s.Binary = er.Binary
	}
	return s
}

// Submit writes script to disk, submits it unless dryRun, and removes the
// file afterwards unless retain. A failed removal is only a warning.
func (s *Submitter) Submit(ctx context.Context, script *Script, retain, dryRun bool) (result *SubmissionResult, err error) {
	if script == nil || script.Path == "" {
		return nil, ErrEmptyScriptPath
	}

	if err := os.WriteFile(script.Path, []byte(script.Text), utils.PermFile); err != nil {
		return nil, &ScriptWriteError{Path: script.Path, Err: err}
	}

	result = &SubmissionResult{Retained: retain}
	defer func() {
		if retain {
			utils.PrintMessage("Keeping control file: %s", utils.StylePath(script.Path))
			return
		}
		utils.PrintMessage("Deleting control file: %s", utils.StylePath(script.Path))
		if rmErr := os.Remove(script.Path); rmErr != nil {
			msg := fmt.Sprintf("failed to delete control file %s: %v", script.Path, rmErr)
			utils.PrintWarning("%s", msg)
			result.Warnings = append(result.Warnings, msg)
		}
	}()

	if dryRun {
		utils.PrintNote("Test mode: not submitting %s", utils.StylePath(script.Path))
		result.Succeeded = true
		result.DryRun = true
		return result, nil
	}

	if s.Runner == nil {
		return result, &SubmissionFailedError{Binary: s.binaryName(), Script: script.Path, ExitCode: -1, Err: ErrSchedulerNotFound}
	}

	utils.PrintDebug("Submitting %s with %s", script.Path, s.binaryName())
	exitCode, stdout, runErr := s.Runner.Run(ctx, script.Path)
	result.RawOutput = stdout
	for _, line := range splitLines(stdout) {
		utils.PrintRaw(line)
	}

	if runErr != nil {
		return result, &SubmissionFailedError{Binary: s.binaryName(), Script: script.Path, ExitCode: -1, Output: stdout, Err: runErr}
	}
	if exitCode != 0 {
		return result, &SubmissionFailedError{Binary: s.binaryName(), Script: script.Path, ExitCode: exitCode, Output: stdout}
	}

	jobID, markerLine, found, parseErr := ParseJobID(stdout, s.marker())
	if !found {
		return result, &SubmissionFailedError{Binary: s.binaryName(), Script: script.Path, ExitCode: exitCode, Output: stdout, Err: ErrMarkerNotFound}
	}

	result.Succeeded = true
	if parseErr != nil {
		return result, &SubmissionParseError{Line: markerLine, Output: stdout}
	}
	result.JobID = &jobID
	return result, nil
}

func (s *Submitter) marker() string {
	if s.Marker == "" {
		return DefaultMarker
	}
	return s.Marker
}

func (s *Submitter) binaryName() string {
	if s.Binary == "" {
		return "scheduler"
	}
	return s.Binary
}

// ParseJobID scans output for the first line starting with marker and
// returns its last whitespace-separated token as an integer. found reports
// whether a marker line was seen at all.
func ParseJobID(output, marker string) (jobID int, line string, found bool, err error) {
	for _, l := range splitLines(output) {
		if !strings.HasPrefix(l, marker) {
			continue
		}
		fields := strings.Fields(l)
		if len(fields) == 0 {
			continue
		}
		id, convErr := strconv.Atoi(fields[len(fields)-1])
		if convErr != nil {
			return 0, l, true, fmt.Errorf("%w: %v", ErrJobIDParseFailed, convErr)
		}
		return id, l, true, nil
	}
	return 0, "", false, nil
}

func splitLines(s string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(s))
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	return lines
}
