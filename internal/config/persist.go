package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/atakaragoz/launch/internal/launch"
	"github.com/atakaragoz/launch/internal/queue"
	"github.com/atakaragoz/launch/internal/scheduler"
	"github.com/atakaragoz/launch/internal/utils"
)

// ConfigFilename is the name of the config file
const ConfigFilename = "config"

// ConfigType is the type of config file (yaml, json, toml)
const ConfigType = "yaml"

// EnvPrefix is prepended to every environment override, e.g. LAUNCH_SUBMIT_BIN.
const EnvPrefix = "LAUNCH"

// InitViper initializes Viper with proper search paths and defaults
// Priority (highest to lowest):
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (LAUNCH_*)
// 3. User config file (~/.config/launch/config.yaml)
// 4. System config file (/etc/launch/config.yaml)
// 5. Defaults
func InitViper() error {
	viper.SetConfigName(ConfigFilename)
	viper.SetConfigType(ConfigType)

	for _, p := range ConfigSearchPaths() {
		viper.AddConfigPath(p)
	}

	// Nested keys map to LAUNCH_DEFAULTS_QUEUE and friends
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Read config file (non-fatal if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// ConfigSearchPaths returns the directories searched for config.yaml, in order.
func ConfigSearchPaths() []string {
	var paths []string
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(userConfigDir, "launch"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".launch"))
	}
	return append(paths, "/etc/launch", ".")
}

// setDefaults sets default values for all config keys
func setDefaults() {
	viper.SetDefault("submit_bin", "sbatch")
	viper.SetDefault("submit_args", []string{})
	viper.SetDefault("submit_marker", scheduler.DefaultMarker)
	viper.SetDefault("script_dir", ".")
	viper.SetDefault("script_ext", scheduler.DefaultScriptExt)
	viper.SetDefault("dialect", scheduler.DialectPBS)
	viper.SetDefault("capacity_policy", launch.PolicyAdvisory)

	viper.SetDefault("defaults.queue", "normal")
	viper.SetDefault("defaults.runtime", "01:00:00")
	viper.SetDefault("defaults.jobname", "launch")
	viper.SetDefault("defaults.project", "")
	viper.SetDefault("defaults.compiler", launch.CompilerIntel)
	viper.SetDefault("defaults.schedule", "interleaved")
}

// Keys lists the scalar configuration keys, sorted.
func Keys() []string {
	keys := []string{
		"submit_bin",
		"submit_args",
		"submit_marker",
		"script_dir",
		"script_ext",
		"dialect",
		"capacity_policy",
		"defaults.queue",
		"defaults.runtime",
		"defaults.jobname",
		"defaults.project",
		"defaults.compiler",
		"defaults.schedule",
	}
	sort.Strings(keys)
	return keys
}

// EnvVarFor returns the environment variable that overrides key.
func EnvVarFor(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// GetUserConfigPath returns the path to the user config file
func GetUserConfigPath() (string, error) {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to home directory
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".launch", ConfigFilename+"."+ConfigType), nil
	}

	return filepath.Join(userConfigDir, "launch", ConfigFilename+"."+ConfigType), nil
}

// SaveConfig saves current Viper config to the user config file
func SaveConfig() error {
	configPath, err := GetUserConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	return SaveConfigTo(configPath)
}

// SaveConfigTo saves current Viper config to configPath
func SaveConfigTo(configPath string) error {
	if err := utils.EnsureDir(filepath.Dir(configPath)); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ValidateBinary checks if a binary exists and is executable
func ValidateBinary(binPath string) bool {
	if binPath == "" {
		return false
	}

	// If it's a full path, check directly
	if filepath.IsAbs(binPath) {
		info, err := os.Stat(binPath)
		if err != nil {
			return false
		}
		return info.Mode()&0111 != 0
	}

	_, err := exec.LookPath(binPath)
	return err == nil
}

// ForceDetect re-detects the submit binary from PATH and stores it in viper
// together with the matching dialect. Returns true if anything changed.
func ForceDetect() bool {
	detectedBin, detectedDialect := scheduler.DetectSubmitBin()
	if detectedBin == "" {
		return false
	}
	updated := false
	if viper.GetString("submit_bin") != detectedBin {
		viper.Set("submit_bin", detectedBin)
		updated = true
	}
	if viper.GetString("dialect") != detectedDialect {
		viper.Set("dialect", detectedDialect)
		updated = true
	}
	return updated
}

// LoadFromViper loads config from Viper into Global struct
func LoadFromViper() error {
	var errs error

	if bin := viper.GetString("submit_bin"); bin != "" {
		Global.SubmitBin = bin
	}
	Global.SubmitArgs = viper.GetStringSlice("submit_args")
	if marker := viper.GetString("submit_marker"); marker != "" {
		Global.SubmitMarker = marker
	}
	if dir := viper.GetString("script_dir"); dir != "" {
		Global.ScriptDir = dir
	}
	if ext := viper.GetString("script_ext"); ext != "" {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		Global.ScriptExt = ext
	}

	if dialect := viper.GetString("dialect"); dialect != "" {
		if _, err := scheduler.DialectByName(dialect); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("dialect: %w", err))
		} else {
			Global.Dialect = strings.ToLower(dialect)
		}
	}
	if policy := viper.GetString("capacity_policy"); policy != "" {
		if _, err := launch.PolicyByName(policy); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("capacity_policy: %w", err))
		} else {
			Global.CapacityPolicy = strings.ToLower(policy)
		}
	}

	// Read key by key so LAUNCH_DEFAULTS_* overrides apply
	mergeDefaults(&Global.Defaults, Defaults{
		Queue:    viper.GetString("defaults.queue"),
		Runtime:  viper.GetString("defaults.runtime"),
		JobName:  viper.GetString("defaults.jobname"),
		Project:  viper.GetString("defaults.project"),
		Compiler: viper.GetString("defaults.compiler"),
		Schedule: viper.GetString("defaults.schedule"),
	})

	if rt := Global.Defaults.Runtime; rt != "" {
		// Accept "2h" or "1:30" in the config and store HH:MM:SS
		if dur, err := utils.ParseDuration(rt); err == nil {
			Global.Defaults.Runtime = utils.FormatWalltime(dur)
		} else {
			errs = multierror.Append(errs, fmt.Errorf("defaults.runtime: %w", err))
		}
	}

	return errs
}

func mergeDefaults(dst *Defaults, src Defaults) {
	if src.Queue != "" {
		dst.Queue = src.Queue
	}
	if src.Runtime != "" {
		dst.Runtime = src.Runtime
	}
	if src.JobName != "" {
		dst.JobName = src.JobName
	}
	if src.Project != "" {
		dst.Project = src.Project
	}
	if src.Compiler != "" {
		dst.Compiler = src.Compiler
	}
	if src.Schedule != "" {
		dst.Schedule = src.Schedule
	}
}

// LoadQueueCatalog returns the built-in queue table with any entries from
// the "queues" config section layered on top. Each entry is keyed by queue
// name; fields left out of an existing queue keep their built-in values.
func LoadQueueCatalog() (*queue.Catalog, error) {
	base := queue.Default()

	raw := viper.GetStringMap("queues")
	if len(raw) == 0 {
		return base, nil
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs error
	overrides := make([]queue.Spec, 0, len(names))
	for _, key := range names {
		// Viper lowercases keys, so match built-in names case-insensitively
		name := canonicalQueueName(base, key)
		spec, err := base.Lookup(name)
		if err != nil {
			spec = queue.Spec{}
		}
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &spec,
			WeaklyTypedInput: true,
			ErrorUnused:      true,
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(raw[key]); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("queues.%s: %w", name, err))
			continue
		}
		spec.Name = name
		overrides = append(overrides, spec)
	}
	if errs != nil {
		return nil, errs
	}

	return base.With(overrides...)
}

func canonicalQueueName(c *queue.Catalog, key string) string {
	for _, name := range c.Names() {
		if strings.EqualFold(name, key) {
			return name
		}
	}
	return key
}
