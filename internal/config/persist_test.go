package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/atakaragoz/launch/internal/queue"
)

// setupConfig points the user config directory at a temp dir, optionally
// writes a config.yaml there, and runs InitViper on a fresh viper.
func setupConfig(t *testing.T, yaml string) string {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)

	path := filepath.Join(dir, "launch", "config.yaml")
	if yaml != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	LoadDefaults()
	if err := InitViper(); err != nil {
		t.Fatalf("InitViper: %v", err)
	}
	return path
}

func TestLoadFromViperDefaults(t *testing.T) {
	setupConfig(t, "")
	if err := LoadFromViper(); err != nil {
		t.Fatalf("LoadFromViper: %v", err)
	}

	if Global.SubmitBin != "sbatch" {
		t.Errorf("SubmitBin = %q, want sbatch", Global.SubmitBin)
	}
	if Global.Dialect != "pbs" {
		t.Errorf("Dialect = %q, want pbs", Global.Dialect)
	}
	if Global.CapacityPolicy != "advisory" {
		t.Errorf("CapacityPolicy = %q, want advisory", Global.CapacityPolicy)
	}
	want := Defaults{Queue: "normal", Runtime: "01:00:00", JobName: "launch", Compiler: "intel", Schedule: "interleaved"}
	if Global.Defaults != want {
		t.Errorf("Defaults = %+v, want %+v", Global.Defaults, want)
	}
}

func TestLoadFromViperFile(t *testing.T) {
	setupConfig(t, `
submit_bin: /opt/torque/bin/qsub
submit_args: ["-V"]
submit_marker: "Job id"
script_ext: pbs
dialect: SLURM
capacity_policy: strict
defaults:
  queue: gpu
  runtime: 2h
  project: ANTS
`)
	if err := LoadFromViper(); err != nil {
		t.Fatalf("LoadFromViper: %v", err)
	}

	if Global.SubmitBin != "/opt/torque/bin/qsub" {
		t.Errorf("SubmitBin = %q", Global.SubmitBin)
	}
	if !reflect.DeepEqual(Global.SubmitArgs, []string{"-V"}) {
		t.Errorf("SubmitArgs = %v", Global.SubmitArgs)
	}
	if Global.SubmitMarker != "Job id" {
		t.Errorf("SubmitMarker = %q", Global.SubmitMarker)
	}
	if Global.ScriptExt != ".pbs" {
		t.Errorf("ScriptExt = %q, want .pbs", Global.ScriptExt)
	}
	if Global.Dialect != "slurm" {
		t.Errorf("Dialect = %q, want slurm", Global.Dialect)
	}
	if Global.CapacityPolicy != "strict" {
		t.Errorf("CapacityPolicy = %q", Global.CapacityPolicy)
	}
	if Global.Defaults.Queue != "gpu" || Global.Defaults.Project != "ANTS" {
		t.Errorf("Defaults = %+v", Global.Defaults)
	}
	if Global.Defaults.Runtime != "02:00:00" {
		t.Errorf("Defaults.Runtime = %q, want 02:00:00", Global.Defaults.Runtime)
	}
	// untouched keys keep their defaults
	if Global.Defaults.JobName != "launch" {
		t.Errorf("Defaults.JobName = %q, want launch", Global.Defaults.JobName)
	}
}

func TestLoadFromViperEnvOverride(t *testing.T) {
	setupConfig(t, "defaults:\n  queue: gpu\n")
	t.Setenv("LAUNCH_DEFAULTS_QUEUE", "development")
	t.Setenv("LAUNCH_SUBMIT_BIN", "qsub")

	if err := LoadFromViper(); err != nil {
		t.Fatalf("LoadFromViper: %v", err)
	}
	if Global.Defaults.Queue != "development" {
		t.Errorf("Defaults.Queue = %q, want development", Global.Defaults.Queue)
	}
	if Global.SubmitBin != "qsub" {
		t.Errorf("SubmitBin = %q, want qsub", Global.SubmitBin)
	}
}

func TestLoadFromViperCollectsErrors(t *testing.T) {
	setupConfig(t, `
dialect: lsf
capacity_policy: maybe
defaults:
  runtime: soon
`)
	err := LoadFromViper()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, key := range []string{"dialect", "capacity_policy", "defaults.runtime"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %s", err, key)
		}
	}
	// invalid values leave the defaults in place
	if Global.Dialect != "pbs" || Global.CapacityPolicy != "advisory" {
		t.Errorf("Global changed on invalid input: %+v", Global)
	}
}

func TestLoadQueueCatalog(t *testing.T) {
	setupConfig(t, `
queues:
  gpu:
    max_nodes: 8
  largemem512GB:
    max_nodes: 6
  debug:
    cores_per_node: 16
    max_nodes: 2
    max_cores_per_job: 32
`)
	cat, err := LoadQueueCatalog()
	if err != nil {
		t.Fatalf("LoadQueueCatalog: %v", err)
	}

	gpu, err := cat.Lookup("gpu")
	if err != nil {
		t.Fatal(err)
	}
	if want := (queue.Spec{Name: "gpu", CoresPerNode: 10, MaxNodes: 8, MaxCoresPerJob: 40}); gpu != want {
		t.Errorf("gpu = %+v, want %+v", gpu, want)
	}

	big, err := cat.Lookup("largemem512GB")
	if err != nil {
		t.Fatal(err)
	}
	if big.MaxNodes != 6 || big.CoresPerNode != 64 {
		t.Errorf("largemem512GB = %+v", big)
	}

	if _, err := cat.Lookup("debug"); err != nil {
		t.Errorf("debug queue not added: %v", err)
	}
	if cat.Len() != queue.Default().Len()+1 {
		t.Errorf("Len = %d, want %d", cat.Len(), queue.Default().Len()+1)
	}
}

func TestLoadQueueCatalogMixedCaseName(t *testing.T) {
	setupConfig(t, `
queues:
  MyQueue:
    cores_per_node: 8
    max_nodes: 2
    max_cores_per_job: 16
`)
	cat, err := LoadQueueCatalog()
	if err != nil {
		t.Fatalf("LoadQueueCatalog: %v", err)
	}
	q, err := cat.Lookup("MyQueue")
	if err != nil {
		t.Fatalf("Lookup(MyQueue): %v", err)
	}
	if q.MaxCoresPerJob != 16 {
		t.Errorf("MyQueue = %+v", q)
	}
}

func TestLoadQueueCatalogRejectsBadEntries(t *testing.T) {
	setupConfig(t, `
queues:
  tiny:
    cores_per_node: 4
  gpu:
    max_gpus: 2
`)
	if _, err := LoadQueueCatalog(); err == nil {
		t.Fatal("expected error for incomplete and unknown fields")
	}
}

func TestLoadQueueCatalogWithoutSection(t *testing.T) {
	setupConfig(t, "")
	cat, err := LoadQueueCatalog()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cat.Names(), queue.Default().Names()) {
		t.Errorf("Names = %v", cat.Names())
	}
}

func TestSaveConfigTo(t *testing.T) {
	setupConfig(t, "")
	viper.Set("submit_bin", "/usr/bin/sbatch")

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := SaveConfigTo(path); err != nil {
		t.Fatalf("SaveConfigTo: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "submit_bin: /usr/bin/sbatch") {
		t.Errorf("config file missing submit_bin:\n%s", data)
	}
}

func TestEnvVarFor(t *testing.T) {
	cases := map[string]string{
		"submit_bin":       "LAUNCH_SUBMIT_BIN",
		"defaults.runtime": "LAUNCH_DEFAULTS_RUNTIME",
	}
	for key, want := range cases {
		if got := EnvVarFor(key); got != want {
			t.Errorf("EnvVarFor(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestValidateBinary(t *testing.T) {
	if ValidateBinary("") {
		t.Error("empty path accepted")
	}
	if ValidateBinary("/definitely/not/here/sbatch") {
		t.Error("missing absolute path accepted")
	}

	exe := filepath.Join(t.TempDir(), "qsub")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if !ValidateBinary(exe) {
		t.Errorf("executable %s rejected", exe)
	}
}
