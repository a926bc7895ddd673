package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelscribe/internal/config"
	"reelscribe/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	binDir     string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("REELSCRIBE_LEDGER", "")

	binDir := filepath.Join(base, "bin")
	cfg.Discovery.YtDlpBinary = testsupport.WriteScript(t, binDir, "yt-dlp", "exit 0\n")

	configPath := filepath.Join(homeDir, ".config", "reelscribe", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
		binDir:     binDir,
	}
}

// stubYtDlp replaces the yt-dlp stub with a script that prints output.
func (e *cliTestEnv) stubYtDlp(t *testing.T, output string) {
	t.Helper()
	body := "cat <<'JSON'\n" + output + "\nJSON\n"
	testsupport.WriteScript(t, e.binDir, "yt-dlp", body)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "[paths]\nwork_dir = %q\nscratch_dir = %q\ntranscripts_dir = %q\nstate_dir = %q\nlog_dir = %q\n\n",
		cfg.Paths.WorkDir, cfg.Paths.ScratchDir, cfg.Paths.TranscriptsDir, cfg.Paths.StateDir, cfg.Paths.LogDir)
	fmt.Fprintf(&b, "[ledger]\npath = %q\n\n", cfg.Ledger.Path)
	fmt.Fprintf(&b, "[discovery]\nytdlp_binary = %q\nupdate_on_start = false\nmin_duration_seconds = 50\n\n", cfg.Discovery.YtDlpBinary)
	fmt.Fprintf(&b, "[identifier]\nmodel_dir = %q\n\n", cfg.Identifier.ModelDir)
	fmt.Fprintf(&b, "[logging]\nformat = \"json\"\nlevel = \"warn\"\n")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
