package version

import (
	"bytes"
	"strings"
	"testing"
)

func executeVersion(t *testing.T, args ...string) string {
	t.Helper()
	versionShort = false
	t.Cleanup(func() { versionShort = false })

	buf := new(bytes.Buffer)
	VersionCmd.SetOut(buf)
	VersionCmd.SetArgs(args)

	if err := VersionCmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	return buf.String()
}

func TestVersionCommandOutput(t *testing.T) {
	output := executeVersion(t)

	for _, label := range []string{"Version:", "Git Commit:", "Build Date:", "Go Version:", "Platform:"} {
		if !strings.Contains(output, label) {
			t.Errorf("version output missing label %q", label)
		}
	}
}

func TestVersionCommandOutputFormat(t *testing.T) {
	output := executeVersion(t)
	lines := strings.Split(strings.TrimSpace(output), "\n")

	if len(lines) != 5 {
		t.Errorf("version output has %d lines, expected 5", len(lines))
	}
	for i, line := range lines {
		if !strings.Contains(line, ":") {
			t.Errorf("line %d missing colon separator: %q", i+1, line)
		}
	}
}

func TestVersionCommandShort(t *testing.T) {
	output := executeVersion(t, "--short")

	if lines := strings.Split(strings.TrimSpace(output), "\n"); len(lines) != 1 {
		t.Errorf("--short printed %d lines, expected 1", len(lines))
	}
	if !strings.HasPrefix(output, "dron ") {
		t.Errorf("--short output = %q, want dron prefix", output)
	}
}
