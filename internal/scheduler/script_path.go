package scheduler

import (
	"os"
	"strings"

	"github.com/atakaragoz/launch/internal/utils"
)

// safeJobName converts a job name to a filesystem-safe string by replacing "/" with "--".
func safeJobName(name string) string {
	return strings.ReplaceAll(name, "/", "--")
}

// NewScriptPath reserves a unique control file "<jobName>_XXXX<ext>" in dir
// and returns its path. The file exists, empty, when this returns.
func NewScriptPath(dir, jobName, ext string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if ext == "" {
		ext = DefaultScriptExt
	}
	if err := utils.EnsureDir(dir); err != nil {
		return "", &ScriptWriteError{Path: dir, Err: err}
	}
	f, err := os.CreateTemp(dir, safeJobName(jobName)+"_*"+ext)
	if err != nil {
		return "", &ScriptWriteError{Path: dir, Err: err}
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		return "", &ScriptWriteError{Path: path, Err: err}
	}
	return path, nil
}
