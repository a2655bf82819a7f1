package list

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/dron/internal/testutil"
)

func TestListCmd_Table(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.WriteJobs(`
jobs:
  - name: backup
    command: [/usr/bin/restic, backup, "/home/my files"]
    schedule: daily
  - name: syncthing
    command: /usr/bin/syncthing serve
    schedule: always
  - name: adhoc
    command: /bin/true
`)

	cmd := createTestCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("list command failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header, separator and 3 rows, got %d lines:\n%s", len(lines), stdout.String())
	}
	if !strings.HasPrefix(lines[0], "UNIT") {
		t.Errorf("first line = %q, want header", lines[0])
	}
	for _, want := range []string{"backup", "daily", "/usr/bin/restic backup", "always", "manual"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("output missing %q:\n%s", want, stdout.String())
		}
	}
}

func TestListCmd_Empty(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.WriteJobs("jobs: []\n")

	cmd := createTestCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("list command failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "No jobs declared") {
		t.Errorf("expected empty message, got %q", stdout.String())
	}
}

func TestListCmd_InvalidFile(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.WriteJobs("jobs:\n  - name: broken\n")

	cmd := createTestCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error for job without command")
	}
	if !strings.Contains(err.Error(), "invalid jobs file") {
		t.Errorf("error = %q, want invalid jobs file", err)
	}
}

func createTestCommand() *cobra.Command {
	listVerbose = false

	cmd := &cobra.Command{
		Use:     ListCmd.Use,
		Short:   ListCmd.Short,
		Long:    ListCmd.Long,
		Example: ListCmd.Example,
		Args:    ListCmd.Args,
		PreRunE: ListCmd.PreRunE,
		RunE:    ListCmd.RunE,
	}
	cmd.Flags().BoolVarP(&listVerbose, "verbose", "v", false, "")
	return cmd
}
