// Package wrapper runs a launchd job, keeps a rotating log of its failures and
// pipes a failure report to the job's notification commands.
package wrapper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ExitStartFailed is returned when the job's process could not be started.
const ExitStartFailed = 123

// Options configures a wrapped run.
type Options struct {
	// Job is the job name, used for the log file name.
	Job string

	// Notify lists shell commands that receive the failure report on stdin.
	Notify []string

	// Argv is the job command.
	Argv []string

	// LogDir holds the per-job log files.
	LogDir string

	// MaxLogSizeMB rotates the log file once it grows past this size.
	MaxLogSizeMB int

	// Output receives the job's combined stdout and stderr. Defaults to os.Stdout.
	Output io.Writer

	// ReportTail caps how much of the job's output is kept for the failure
	// report. Defaults to DefaultReportTail.
	ReportTail int
}

// DefaultReportTail is the default amount of output kept for the failure report.
const DefaultReportTail = 64 * 1024

// Run executes the job and returns its exit code. Notification failures are
// logged but never change the exit code.
func Run(ctx context.Context, opts Options) (int, error) {
	if opts.Job == "" {
		return 0, errors.New("job name is required")
	}
	if len(opts.Argv) == 0 {
		return 0, errors.New("job command is required")
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.MaxLogSizeMB <= 0 {
		opts.MaxLogSizeMB = 100
	}
	if opts.ReportTail <= 0 {
		opts.ReportTail = DefaultReportTail
	}

	if err := os.MkdirAll(opts.LogDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create log directory; %w", err)
	}
	logFile := filepath.Join(opts.LogDir, opts.Job+".log")
	sink := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    opts.MaxLogSizeMB,
		MaxBackups: 3,
	}
	defer sink.Close()
	logger := slog.New(slog.NewTextHandler(sink, nil)).With("job", opts.Job)

	captured := newTailBuffer(opts.ReportTail)
	rc := execute(ctx, opts.Argv, io.MultiWriter(opts.Output, captured), logger)
	if rc == 0 {
		return 0, nil
	}

	report := Report(rc, opts.Argv, logFile, captured.Bytes())
	for _, line := range strings.Split(strings.TrimRight(string(report), "\n"), "\n") {
		logger.Info(line)
	}

	for _, n := range opts.Notify {
		if err := notify(ctx, n, report); err != nil {
			logger.Error("notification failed", "command", n, "error", err)
		}
	}

	return rc, nil
}

func execute(ctx context.Context, argv []string, out io.Writer, logger *slog.Logger) int {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}

	logger.Error("failed to start job", "error", err)
	fmt.Fprintln(out, err.Error())
	return ExitStartFailed
}

// Report renders the failure report sent to notification commands.
func Report(rc int, argv []string, logFile string, output []byte) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "exit code: %d\n", rc)
	b.WriteString("command: \n")
	b.WriteString(shellquote.Join(argv...) + "\n")
	fmt.Fprintf(&b, "log file: %s\n", logFile)
	b.WriteString("\n")
	b.WriteString("output (stdout + stderr):\n\n")
	b.Write(output)
	return b.Bytes()
}

func notify(ctx context.Context, command string, report []byte) error {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	cmd.Stdin = bytes.NewReader(report)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
