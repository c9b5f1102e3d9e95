package config

import (
	"github.com/atakaragoz/launch/internal/launch"
	"github.com/atakaragoz/launch/internal/scheduler"
)

const VERSION = "1.0.0"

// Defaults are the values the CLI falls back to when a flag is not given.
type Defaults struct {
	Queue    string
	Runtime  string
	JobName  string
	Project  string
	Compiler string
	Schedule string
}

// Config holds global application settings
type Config struct {
	Debug   bool
	Quiet   bool
	Version string

	SubmitBin    string
	SubmitArgs   []string
	SubmitMarker string

	ScriptDir string
	ScriptExt string

	Dialect        string
	CapacityPolicy string

	Defaults Defaults
}

// Global holds the singleton configuration instance
var Global Config

// LoadDefaults resets Global to built-in values.
func LoadDefaults() {
	Global = Config{
		Version:        VERSION,
		SubmitBin:      "sbatch",
		SubmitMarker:   scheduler.DefaultMarker,
		ScriptDir:      ".",
		ScriptExt:      scheduler.DefaultScriptExt,
		Dialect:        scheduler.DialectPBS,
		CapacityPolicy: launch.PolicyAdvisory,
		Defaults: Defaults{
			Queue:    "normal",
			Runtime:  "01:00:00",
			JobName:  "launch",
			Compiler: launch.CompilerIntel,
			Schedule: "interleaved",
		},
	}
}
