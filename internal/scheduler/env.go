package scheduler

import (
	"os"
	"os/exec"
)

// IsInsideJob checks if we're currently running inside a scheduler job.
// Submitting from inside a job is allowed but usually a mistake.
func IsInsideJob() bool {
	for _, key := range []string{"SLURM_JOB_ID", "PBS_JOBID"} {
		if _, ok := os.LookupEnv(key); ok {
			return true
		}
	}
	return false
}

// DetectSubmitBin looks for a submit binary on PATH and returns its path
// together with the directive dialect that fits it. Returns empty strings
// when neither sbatch nor qsub is found.
func DetectSubmitBin() (string, string) {
	if path, err := exec.LookPath("sbatch"); err == nil {
		return path, DialectSLURM
	}
	if path, err := exec.LookPath("qsub"); err == nil {
		return path, DialectPBS
	}
	return "", ""
}
