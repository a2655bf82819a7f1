package dashboard

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/leefowlercu/dron/internal/monitor"
)

var sample = []monitor.Entry{
	{Unit: "fetch", Status: "success", StatusOK: true, Left: "--", Next: "running", Schedule: "*:0/5", PID: "12", Command: "/usr/bin/fetch"},
	{Unit: "backup", Status: "exit-code >00:01:00", Left: ">1d 2h", Next: "2026-03-02T14:30:00", Schedule: "daily"},
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(sample, false)

	for _, want := range []string{"UNIT", "SCHEDULE", "fetch", "backup", "exit-code >00:01:00", ">1d 2h"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderTable() missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "COMMAND") {
		t.Error("RenderTable() should not include the command column")
	}

	if out := RenderTable(sample, true); !strings.Contains(out, "/usr/bin/fetch") {
		t.Errorf("RenderTable(withCommand) missing command\n%s", out)
	}
}

func TestRenderTable_Empty(t *testing.T) {
	if out := RenderTable(nil, false); !strings.Contains(out, "UNIT") {
		t.Errorf("RenderTable(nil) should still render headers, got %q", out)
	}
}

func TestModel_ResultUpdatesRows(t *testing.T) {
	ch := make(chan monitor.Result)
	m := New(ch, false)

	model, cmd := m.Update(resultMsg{Entries: sample, At: time.Now()})
	m = model.(Model)

	if cmd == nil {
		t.Fatal("Update(result) should wait for the next result")
	}
	if got := len(m.table.Rows()); got != 2 {
		t.Fatalf("rows = %d, want 2", got)
	}
	if got := m.table.SelectedRow()[0]; got != "fetch" {
		t.Errorf("selected = %q, want fetch", got)
	}
	if !strings.Contains(m.View(), "1 failing") {
		t.Errorf("View() should summarize failures\n%s", m.View())
	}
}

func TestModel_KeepsCursorOnUnit(t *testing.T) {
	m := New(make(chan monitor.Result), false)

	model, _ := m.Update(resultMsg{Entries: sample, At: time.Now()})
	m = model.(Model)
	m.table.SetCursor(1)

	reordered := []monitor.Entry{sample[1], sample[0]}
	model, _ = m.Update(resultMsg{Entries: reordered, At: time.Now()})
	m = model.(Model)

	if got := m.table.SelectedRow()[0]; got != "backup" {
		t.Errorf("selected = %q, want backup", got)
	}
}

func TestModel_ErrorKeepsRows(t *testing.T) {
	m := New(make(chan monitor.Result), false)

	model, _ := m.Update(resultMsg{Entries: sample, At: time.Now()})
	m = model.(Model)
	model, _ = m.Update(resultMsg{Err: errors.New("bus closed"), At: time.Now()})
	m = model.(Model)

	if len(m.Entries()) != 2 {
		t.Errorf("entries = %d, want previous 2 kept", len(m.Entries()))
	}
	if !strings.Contains(m.View(), "bus closed") {
		t.Error("View() should show the refresh error")
	}
}

func TestModel_Quit(t *testing.T) {
	m := New(make(chan monitor.Result), false)

	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if model.(Model).View() != "" {
		t.Error("View() should be empty after quitting")
	}
}

func TestModel_ClosedChannelQuits(t *testing.T) {
	ch := make(chan monitor.Result)
	close(ch)
	m := New(ch, false)

	msg := m.Init()()
	if _, ok := msg.(closedMsg); !ok {
		t.Fatalf("Init() msg = %T, want closedMsg", msg)
	}
	_, cmd := m.Update(msg)
	if cmd == nil {
		t.Error("expected quit command")
	}
}
