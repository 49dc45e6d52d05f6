package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const gravityAssist = "1,0,0,3,1,1,2,3,1,3,4,3,1,5,0,3,2,1,6,19,1,19,13,23,1,23,13,27,1,27,13,31,1,31,13,35,1,35,13,39,1,39,13,43,1,43,13,47,1,47,13,51,1,51,13,55,2,55,7,59,2,59,10,63,1,63,4,67,2,67,10,71,1,71,4,75,2,75,10,79,1,79,4,83,2,83,10,87,1,87,4,91,2,91,13,95,1,95,7,99,2,99,13,103,2,103,13,107,1,107,6,111,1,111,2,0,99,2,0,14,0\n"

// project writes an intcode.toml plus program files into a temp dir and
// returns the dir.
func project(t *testing.T, manifest string, programs map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "intcode.toml"), []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}
	for name, text := range programs {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// ============ run Tests ============

func TestRunCommand(t *testing.T) {
	dir := project(t, "", map[string]string{"input.txt": gravityAssist})

	code, out, errOut := runCLI(t, "--config", dir, "run", filepath.Join(dir, "input.txt"), "--noun", "12", "--verb", "2")
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	if out != "6634704\n" {
		t.Errorf("stdout = %q, want 6634704", out)
	}
}

func TestRunCommandDump(t *testing.T) {
	dir := project(t, "[program]\npath = \"small.txt\"\n", map[string]string{"small.txt": "1,9,10,3,2,3,11,0,99,30,40,50"})

	code, out, errOut := runCLI(t, "--config", dir, "run", "--dump")
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	if out != "3500,9,10,70,2,3,11,0,99,30,40,50\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestRunCommandFaults(t *testing.T) {
	dir := project(t, "", map[string]string{
		"bad.txt":    "5,0,0,0,99",
		"nohalt.txt": "1,0,0,0",
	})

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"invalid opcode", []string{"run", filepath.Join(dir, "bad.txt")}, "invalid opcode 5 at position 0"},
		{"strict end", []string{"run", "--strict", filepath.Join(dir, "nohalt.txt")}, "unexpected end of program"},
		{"missing file", []string{"run", filepath.Join(dir, "absent.txt")}, "cannot read"},
		{"no program", []string{"run"}, "no program"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCLI(t, append([]string{"--config", dir}, tt.args...)...)
			if code != exitError {
				t.Errorf("exit code = %d, want %d", code, exitError)
			}
			if !strings.Contains(errOut, tt.want) {
				t.Errorf("stderr = %q, want it to contain %q", errOut, tt.want)
			}
		})
	}
}

func TestRunCommandTrace(t *testing.T) {
	dir := project(t, "", map[string]string{"small.txt": "1,9,10,3,2,3,11,0,99,30,40,50"})

	code, out, errOut := runCLI(t, "--config", dir, "run", "--trace", filepath.Join(dir, "small.txt"))
	if code != exitOK || out != "3500\n" {
		t.Fatalf("exit %d, stdout %q", code, out)
	}
	want := "0000  ADD 9, 10 -> 3\n0004  MUL 3, 11 -> 0\n0008  HALT\n"
	if errOut != want {
		t.Errorf("trace = %q, want %q", errOut, want)
	}
}

func TestRunCommandSilentEnd(t *testing.T) {
	dir := project(t, "", map[string]string{"nohalt.txt": "1,0,0,0"})

	code, out, _ := runCLI(t, "--config", dir, "run", filepath.Join(dir, "nohalt.txt"))
	if code != exitOK || out != "2\n" {
		t.Errorf("exit %d, stdout %q; want 0 and 2", code, out)
	}
}

// ============ calibrate Tests ============

func TestCalibrateCommand(t *testing.T) {
	dir := project(t, "[store]\npath = \"cache/results.db\"\n", map[string]string{"input.txt": gravityAssist})

	args := []string{"--config", dir, "calibrate", filepath.Join(dir, "input.txt"), "--target", "19690720", "--workers", "4"}
	code, out, errOut := runCLI(t, args...)
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	if out != "noun=80 verb=18 answer=8018\n" {
		t.Errorf("stdout = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "cache", "results.db")); err != nil {
		t.Errorf("results store not created: %v", err)
	}

	// Served from the store the second time, same output.
	code, out, _ = runCLI(t, args...)
	if code != exitOK || out != "noun=80 verb=18 answer=8018\n" {
		t.Errorf("cached run: exit %d, stdout %q", code, out)
	}
}

func TestCalibrateCommandFromManifest(t *testing.T) {
	manifest := `
[program]
path = "input.txt"

[calibration]
target = 19690720
noun = { min = 70, max = 90 }
workers = 2
`
	dir := project(t, manifest, map[string]string{"input.txt": gravityAssist})

	code, out, errOut := runCLI(t, "--config", dir, "calibrate", "--no-cache")
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	if out != "noun=80 verb=18 answer=8018\n" {
		t.Errorf("stdout = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, ".intcode")); !os.IsNotExist(err) {
		t.Error("--no-cache should not create the store")
	}
}

func TestCalibrateCommandNotFound(t *testing.T) {
	dir := project(t, "", map[string]string{"input.txt": gravityAssist})
	storePath := filepath.Join(t.TempDir(), "results.db")

	code, out, errOut := runCLI(t, "--config", dir, "calibrate", filepath.Join(dir, "input.txt"), "--target", "1", "--store", storePath)
	if code != exitNotFound {
		t.Fatalf("exit code = %d, want %d (stderr %s)", code, exitNotFound, errOut)
	}
	if out != "no solution in searched domain\n" {
		t.Errorf("stdout = %q", out)
	}
	if errOut != "" {
		t.Errorf("stderr = %q, want empty", errOut)
	}
}

func TestCalibrateCommandAllFaulted(t *testing.T) {
	dir := project(t, "", map[string]string{"bad.txt": "5,0,0,0,99\n"})
	storePath := filepath.Join(t.TempDir(), "results.db")

	tests := []struct {
		name string
		args []string
	}{
		{"no cache", []string{"--no-cache"}},
		{"first stored", []string{"--store", storePath}},
		{"cached", []string{"--store", storePath}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", dir, "calibrate", filepath.Join(dir, "bad.txt"), "--target", "0"}, tt.args...)
			code, out, errOut := runCLI(t, args...)
			if code != exitError {
				t.Fatalf("exit code = %d, want %d (stdout %q)", code, exitError, out)
			}
			if out != "" {
				t.Errorf("stdout = %q, want empty", out)
			}
			if !strings.Contains(errOut, "every trial faulted") || !strings.Contains(errOut, "invalid opcode 5 at position 0") {
				t.Errorf("stderr = %q, want first fault reported", errOut)
			}
		})
	}
}

func TestCalibrateCommandDomainFlags(t *testing.T) {
	dir := project(t, "", map[string]string{"input.txt": gravityAssist})

	// 80 lies outside the narrowed noun range.
	code, out, _ := runCLI(t, "--config", dir, "calibrate", filepath.Join(dir, "input.txt"),
		"--target", "19690720", "--noun-min", "0", "--noun-max", "50", "--no-cache")
	if code != exitNotFound || out != "no solution in searched domain\n" {
		t.Errorf("exit %d, stdout %q; want not found", code, out)
	}

	code, _, errOut := runCLI(t, "--config", dir, "calibrate", filepath.Join(dir, "input.txt"),
		"--target", "1", "--verb-min", "9", "--verb-max", "3", "--no-cache")
	if code != exitError || !strings.Contains(errOut, "empty domain") {
		t.Errorf("exit %d, stderr %q; want empty domain error", code, errOut)
	}
}

func TestCalibrateCommandNeedsTarget(t *testing.T) {
	dir := project(t, "", map[string]string{"input.txt": gravityAssist})

	code, _, errOut := runCLI(t, "--config", dir, "calibrate", filepath.Join(dir, "input.txt"), "--no-cache")
	if code != exitError || !strings.Contains(errOut, "no target") {
		t.Errorf("exit %d, stderr %q; want missing target error", code, errOut)
	}
}

// ============ disasm / config Tests ============

func TestDisasmCommand(t *testing.T) {
	dir := project(t, "", map[string]string{"small.txt": "1,9,10,3,2,3,11,0,99,30,40,50"})

	code, out, errOut := runCLI(t, "--config", dir, "disasm", filepath.Join(dir, "small.txt"))
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	for _, want := range []string{"0000  ADD 9, 10 -> 3", "0004  MUL 3, 11 -> 0", "0008  HALT", "0009  DATA 30"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
}

func TestBadConfig(t *testing.T) {
	dir := project(t, "[machine]\nturbo = true\n", nil)

	code, _, errOut := runCLI(t, "--config", dir, "disasm", "x")
	if code != exitError || !strings.Contains(errOut, "unknown key") {
		t.Errorf("exit %d, stderr %q; want manifest error", code, errOut)
	}
}
