package wrapper

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/dron/internal/cmdutil"
	"github.com/leefowlercu/dron/internal/testutil"
)

func TestWrapperCmd_Success(t *testing.T) {
	testutil.NewTestEnv(t)

	cmd := createTestCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--job", "hello", "--", "/bin/sh", "-c", "echo hi"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("wrapper failed: %v", err)
	}
	if strings.TrimSpace(stdout.String()) != "hi" {
		t.Errorf("stdout = %q, want hi", stdout.String())
	}
}

func TestWrapperCmd_FailurePassesExitCode(t *testing.T) {
	env := testutil.NewTestEnv(t)
	marker := filepath.Join(env.Root, "notified")

	cmd := createTestCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{
		"--job", "broken",
		"--notify", "cat > " + marker,
		"--", "/bin/sh", "-c", "echo oops; exit 3",
	})

	err := cmd.Execute()
	var exitErr *cmdutil.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if exitErr.Code != 3 {
		t.Errorf("exit code = %d, want 3", exitErr.Code)
	}

	report, err := os.ReadFile(marker)
	if err != nil {
		t.Fatalf("notification command did not run: %v", err)
	}
	if !strings.Contains(string(report), "exit code: 3") || !strings.Contains(string(report), "oops") {
		t.Errorf("unexpected report:\n%s", report)
	}

	logFile := filepath.Join(env.Root, "logs", "jobs", "broken.log")
	if _, err := os.Stat(logFile); err != nil {
		t.Errorf("expected job log at %s: %v", logFile, err)
	}
}

func TestWrapperCmd_RequiresJob(t *testing.T) {
	testutil.NewTestEnv(t)

	cmd := createTestCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--", "/bin/true"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error without --job")
	}
}

func createTestCommand() *cobra.Command {
	wrapperJob = ""
	wrapperNotify = nil

	cmd := &cobra.Command{
		Use:     WrapperCmd.Use,
		Args:    WrapperCmd.Args,
		PreRunE: WrapperCmd.PreRunE,
		RunE:    WrapperCmd.RunE,
	}
	cmd.Flags().StringVar(&wrapperJob, "job", "", "")
	cmd.Flags().StringArrayVar(&wrapperNotify, "notify", nil, "")
	cmd.Flags().SetInterspersed(false)
	return cmd
}
