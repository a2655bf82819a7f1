package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestSwappableHandler_Enabled(t *testing.T) {
	var buf bytes.Buffer
	sh := NewSwappableHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx := context.Background()

	if sh.Enabled(ctx, slog.LevelDebug) {
		t.Error("Enabled(Debug) = true, want false at Info level")
	}
	if !sh.Enabled(ctx, slog.LevelWarn) {
		t.Error("Enabled(Warn) = false, want true at Info level")
	}
}

func TestSwappableHandler_Swap(t *testing.T) {
	var before, after bytes.Buffer
	sh := NewSwappableHandler(slog.NewTextHandler(&before, nil))
	logger := slog.New(sh)

	logger.Info("planning apply", "actions", 3)
	sh.Swap(slog.NewTextHandler(&after, nil))
	logger.Info("apply finished")

	if !strings.Contains(before.String(), "actions=3") {
		t.Errorf("first record missing from original target: %q", before.String())
	}
	if strings.Contains(before.String(), "apply finished") {
		t.Error("record after Swap reached the old target")
	}
	if !strings.Contains(after.String(), "apply finished") {
		t.Errorf("record after Swap missing from new target: %q", after.String())
	}
}

func TestSwappableHandler_DerivedFollowsSwap(t *testing.T) {
	var before, after bytes.Buffer
	sh := NewSwappableHandler(slog.NewTextHandler(&before, nil))
	child := slog.New(sh).With("component", "reconcile")

	sh.Swap(slog.NewJSONHandler(&after, nil))
	child.Info("unit written", "unit", "backup.service")

	if before.Len() != 0 {
		t.Errorf("derived logger wrote to the replaced target: %q", before.String())
	}
	out := after.String()
	if !strings.Contains(out, `"component":"reconcile"`) || !strings.Contains(out, `"unit":"backup.service"`) {
		t.Errorf("derived logger lost its attributes after Swap: %q", out)
	}
}

func TestSwappableHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	sh := NewSwappableHandler(slog.NewJSONHandler(&buf, nil))

	grouped := sh.WithGroup("job")
	if _, ok := grouped.(*SwappableHandler); !ok {
		t.Fatal("WithGroup should return *SwappableHandler")
	}

	slog.New(grouped).Info("compiled", "name", "backup")
	if !strings.Contains(buf.String(), `"job":{"name":"backup"}`) {
		t.Errorf("WithGroup did not nest attributes, got: %s", buf.String())
	}
}

func TestSwappableHandler_WithAttrsDoesNotLeak(t *testing.T) {
	var buf bytes.Buffer
	sh := NewSwappableHandler(slog.NewTextHandler(&buf, nil))

	_ = sh.WithAttrs([]slog.Attr{slog.String("component", "monitor")})
	slog.New(sh).Info("root record")

	if strings.Contains(buf.String(), "component=monitor") {
		t.Errorf("parent handler picked up child attributes: %q", buf.String())
	}
}
