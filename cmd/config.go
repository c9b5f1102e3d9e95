package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/atakaragoz/launch/internal/config"
	"github.com/atakaragoz/launch/internal/launch"
	"github.com/atakaragoz/launch/internal/scheduler"
	"github.com/atakaragoz/launch/internal/utils"
)

var (
	initForce bool
	initPath  string
)

// configKeys is the list of known configuration keys for shell completion
var configKeys = config.Keys()

// configKeysCompletion returns config keys for shell completion
func configKeysCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return configKeys, cobra.ShellCompDirectiveNoFileComp
	}
	if len(args) == 1 {
		return configValueCompletion(args[0]), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// configValueCompletion returns suggested values for a config key
func configValueCompletion(key string) []string {
	switch key {
	case "dialect":
		return scheduler.DialectNames()
	case "capacity_policy":
		return launch.PolicyNames()
	case "submit_bin":
		return []string{"sbatch", "qsub"}
	case "defaults.queue":
		return defaultQueueNames()
	case "defaults.compiler":
		return []string{launch.CompilerIntel, launch.CompilerGCC}
	case "defaults.runtime":
		return []string{"00:30:00", "01:00:00", "02:00:00", "12:00:00", "48:00:00"}
	default:
		return nil
	}
}

func defaultQueueNames() []string {
	catalog, err := config.LoadQueueCatalog()
	if err != nil {
		return nil
	}
	return catalog.Names()
}

// getConfigEnvVars returns the environment variables that override config keys.
func getConfigEnvVars() []string {
	vars := make([]string, 0, len(configKeys))
	for _, key := range configKeys {
		vars = append(vars, config.EnvVarFor(key))
	}
	return vars
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage launch configuration",
	Long: `Manage launch configuration settings.

Configuration priority (highest to lowest):
  1. Command-line flags
  2. Environment variables (LAUNCH_*, e.g. LAUNCH_DEFAULTS_QUEUE)
  3. User config file (~/.config/launch/config.yaml)
  4. ~/.launch/config.yaml, /etc/launch/config.yaml, ./config.yaml
  5. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(utils.StyleTitle("Config File Search Paths:"))
		inUse := viper.ConfigFileUsed()
		for i, dir := range config.ConfigSearchPaths() {
			path := filepath.Join(dir, config.ConfigFilename+"."+config.ConfigType)
			status := ""
			if inUse != "" && sameFile(inUse, path) {
				status = " " + utils.StyleSuccess("← in use")
			} else if utils.FileExists(path) {
				status = " " + utils.StyleInfo("(exists)")
			}
			fmt.Printf("  %d. %s%s\n", i+1, path, status)
		}
		if inUse == "" {
			fmt.Printf("  %s (use 'launch config init' to create)\n", utils.StyleWarning("No config file found"))
		}
		fmt.Println()

		g := config.Global
		fmt.Println(utils.StyleTitle("Submission:"))
		fmt.Printf("  submit_bin:        %s\n", g.SubmitBin)
		fmt.Printf("  submit_args:       %v\n", g.SubmitArgs)
		fmt.Printf("  submit_marker:     %q\n", g.SubmitMarker)
		fmt.Printf("  dialect:           %s\n", g.Dialect)
		fmt.Printf("  capacity_policy:   %s\n", g.CapacityPolicy)
		fmt.Println()

		fmt.Println(utils.StyleTitle("Control Files:"))
		fmt.Printf("  script_dir:        %s\n", g.ScriptDir)
		fmt.Printf("  script_ext:        %s\n", g.ScriptExt)
		fmt.Println()

		fmt.Println(utils.StyleTitle("Job Defaults:"))
		fmt.Printf("  defaults.queue:    %s\n", g.Defaults.Queue)
		fmt.Printf("  defaults.runtime:  %s\n", g.Defaults.Runtime)
		fmt.Printf("  defaults.jobname:  %s\n", g.Defaults.JobName)
		fmt.Printf("  defaults.project:  %s\n", g.Defaults.Project)
		fmt.Printf("  defaults.compiler: %s\n", g.Defaults.Compiler)
		fmt.Printf("  defaults.schedule: %s\n", g.Defaults.Schedule)
		fmt.Println()

		fmt.Println(utils.StyleTitle("Environment Variable Overrides:"))
		hasEnvOverrides := false
		for _, envVar := range getConfigEnvVars() {
			if val := os.Getenv(envVar); val != "" {
				fmt.Printf("  %s=%s\n", envVar, val)
				hasEnvOverrides = true
			}
		}
		if !hasEnvOverrides {
			fmt.Printf("  %s\n", utils.StyleInfo("none"))
		}
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the user config file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, err := config.GetUserConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), configPath)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Example: `  launch config get submit_bin
  launch config get defaults.queue`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: configKeysCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		value := viper.Get(args[0])
		if value == nil {
			return fmt.Errorf("unknown config key: %s", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value and save it to the user config file.

Examples:
  launch config set submit_bin /opt/slurm/bin/sbatch
  launch config set dialect slurm
  launch config set defaults.runtime 2h
  launch config set defaults.queue development

Runtime format (for defaults.runtime):
  Go style:  2h, 30m, 1h30m
  HPC style: 02:00:00, 1:30 (HH:MM:SS or HH:MM)`,
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: configKeysCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		value, err := normalizeConfigValue(key, value)
		if err != nil {
			return err
		}
		if !isKnownKey(key) {
			utils.PrintWarning("'%s' is not a standard config key", key)
		}

		viper.Set(key, value)
		if err := config.SaveConfig(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		configPath, _ := config.GetUserConfigPath()
		utils.PrintSuccess("Set %s = %s", utils.StyleInfo(key), utils.StyleInfo(value))
		utils.PrintNote("Config saved to: %s", configPath)
		return nil
	},
}

// normalizeConfigValue validates value for key and returns its stored form.
func normalizeConfigValue(key, value string) (string, error) {
	switch key {
	case "defaults.runtime":
		dur, err := utils.ParseDuration(value)
		if err != nil {
			return "", err
		}
		return utils.FormatWalltime(dur), nil
	case "dialect":
		if _, err := scheduler.DialectByName(value); err != nil {
			return "", err
		}
		return strings.ToLower(value), nil
	case "capacity_policy":
		if _, err := launch.PolicyByName(value); err != nil {
			return "", err
		}
		return strings.ToLower(value), nil
	case "script_ext":
		if value != "" && !strings.HasPrefix(value, ".") {
			value = "." + value
		}
		return value, nil
	case "queues":
		return "", fmt.Errorf("'queues' is a table setting; edit the config file instead")
	}
	return value, nil
}

func isKnownKey(key string) bool {
	for _, k := range configKeys {
		if k == key {
			return true
		}
	}
	return false
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file with defaults",
	Long: `Create a configuration file with default values. The submit binary and its
dialect are detected from PATH (sbatch selects slurm, qsub selects pbs).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := initPath
		if configPath == "" {
			var err error
			configPath, err = config.GetUserConfigPath()
			if err != nil {
				return fmt.Errorf("failed to get config path: %w", err)
			}
		}

		if utils.FileExists(configPath) && !initForce {
			utils.PrintWarning("Config file already exists: %s", configPath)
			utils.PrintHint("Use %s to overwrite it", utils.StyleCommand("--force"))
			return nil
		}

		if scheduler.IsInsideJob() {
			utils.PrintWarning("Running inside a batch job; the detected binary may differ on login nodes")
		}

		detected := config.ForceDetect()
		if err := config.SaveConfigTo(configPath); err != nil {
			return err
		}

		if detected {
			utils.PrintSuccess("Config file created with auto-detected settings")
		} else {
			utils.PrintSuccess("Config file created")
		}
		fmt.Printf("  Location: %s\n", utils.StylePath(configPath))
		fmt.Println()
		fmt.Println(utils.StyleTitle("Detected settings:"))
		if bin, dialect := scheduler.DetectSubmitBin(); bin != "" {
			fmt.Printf("  Submit binary: %s (%s)\n", bin, dialect)
		} else {
			fmt.Printf("  Submit binary: %s\n", utils.StyleWarning("not found"))
		}
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  "Check that the submit binary is accessible and the queue table is valid",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		valid := true

		if config.ValidateBinary(config.Global.SubmitBin) {
			if !utils.QuietMode {
				fmt.Printf("%s Submit binary: %s\n", utils.StyleSuccess("✓"), config.Global.SubmitBin)
			}
		} else {
			fmt.Printf("%s Submit binary not found: %s\n", utils.StyleError("✗"), config.Global.SubmitBin)
			valid = false
		}

		if catalog, err := config.LoadQueueCatalog(); err != nil {
			fmt.Printf("%s Queue table: %v\n", utils.StyleError("✗"), err)
			valid = false
		} else if !utils.QuietMode {
			fmt.Printf("%s Queue table: %d queues\n", utils.StyleSuccess("✓"), catalog.Len())
		}

		if _, err := utils.ParseWalltime(config.Global.Defaults.Runtime); err != nil {
			fmt.Printf("%s Default runtime: %v\n", utils.StyleError("✗"), err)
			valid = false
		}

		if !valid {
			return fmt.Errorf("configuration has errors")
		}
		utils.PrintSuccess("Configuration is valid")
		return nil
	},
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

func init() {
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	configInitCmd.Flags().StringVar(&initPath, "path", "", "Write the config file here instead of the user config path")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	rootCmd.AddCommand(configCmd)
}
