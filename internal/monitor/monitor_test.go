package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/dron/internal/servicemanager"
)

// fakeBackend serves canned runtime status. Methods not overridden panic.
type fakeBackend struct {
	servicemanager.Backend

	platform servicemanager.Platform
	records  []servicemanager.UnitRecord
	status   map[string]servicemanager.RuntimeStatus
	rates    map[string]float64

	mu         sync.Mutex
	rateCalls  []string
	statusErr  error
	queryCalls int
}

func (f *fakeBackend) Platform() servicemanager.Platform {
	return f.platform
}

func (f *fakeBackend) QueryState(context.Context, bool) ([]servicemanager.UnitRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	return f.records, nil
}

func (f *fakeBackend) RuntimeStatus(_ context.Context, unit string) (servicemanager.RuntimeStatus, error) {
	if f.statusErr != nil {
		return servicemanager.RuntimeStatus{}, f.statusErr
	}
	s, ok := f.status[unit]
	if !ok {
		return servicemanager.RuntimeStatus{}, errors.New("no such unit " + unit)
	}
	return s, nil
}

func (f *fakeBackend) SuccessRate(_ context.Context, unit string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rateCalls = append(f.rateCalls, unit)
	rate, ok := f.rates[unit]
	if !ok {
		return servicemanager.SuccessRate(nil), nil
	}
	return rate, nil
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func usec(t time.Time) uint64 {
	return uint64(t.UnixMicro())
}

func newAggregator(b servicemanager.Backend) *Aggregator {
	return NewAggregator(b,
		WithClock(func() time.Time { return now }),
		WithAggregatorLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func systemdFixture() *fakeBackend {
	return &fakeBackend{
		platform: servicemanager.PlatformLinux,
		records: []servicemanager.UnitRecord{
			{UnitFile: "/u/backup.service"},
			{UnitFile: "/u/backup.timer"},
			{UnitFile: "/u/syncthing.service"},
			{UnitFile: "/u/fetch.service"},
			{UnitFile: "/u/fetch.timer"},
		},
		status: map[string]servicemanager.RuntimeStatus{
			"backup.timer": {
				Calendar:        "daily",
				LastTriggerUSec: usec(now.Add(-90 * time.Second)),
				NextElapseUSec:  usec(now.Add(26*time.Hour + 30*time.Minute)),
			},
			"backup.service": {Result: "exit-code", ExecStart: []string{"/usr/bin/borg", "create", "my archive"}},
			"syncthing.service": {Result: "success", PID: 4242, ExecStart: []string{"/usr/bin/syncthing"}, Restart: "always"},
			"fetch.timer": {
				Calendar:        "*:0/5",
				LastTriggerUSec: usec(now.Add(-10 * time.Second)),
				NextElapseUSec:  servicemanager.NeverUSec,
			},
			"fetch.service": {Result: "success", PID: 99},
		},
	}
}

func TestGetEntries_Systemd(t *testing.T) {
	b := systemdFixture()

	entries, err := newAggregator(b).GetEntries(context.Background(), b.records, Params{WithCommand: true})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// running first, then failures, then by name
	assert.Equal(t, "fetch", entries[0].Unit)
	assert.Equal(t, "syncthing", entries[1].Unit)
	assert.Equal(t, "backup", entries[2].Unit)

	backup := entries[2]
	assert.False(t, backup.StatusOK)
	assert.Equal(t, "exit-code", backup.Result)
	assert.Equal(t, "exit-code >00:01:00", backup.Status)
	assert.Equal(t, "daily", backup.Schedule)
	assert.Equal(t, ">1d 2h", backup.Left)
	assert.Equal(t, "/usr/bin/borg create 'my archive'", backup.Command)
	assert.Empty(t, backup.PID)
	assert.Nil(t, backup.SuccessRate)

	syncthing := entries[1]
	assert.Equal(t, ScheduleAlways, syncthing.Schedule)
	assert.Equal(t, LabelRunning, syncthing.Next)
	assert.Equal(t, "4242", syncthing.PID)
	assert.Equal(t, "success", syncthing.Status)
}

func TestGetEntries_SystemdTimerlessServices(t *testing.T) {
	b := &fakeBackend{
		platform: servicemanager.PlatformLinux,
		records: []servicemanager.UnitRecord{
			{UnitFile: "/u/syncthing.service"},
			{UnitFile: "/u/reindex.service"},
		},
		status: map[string]servicemanager.RuntimeStatus{
			"syncthing.service": {Result: "success", Restart: "always"},
			"reindex.service":   {Result: "success", Restart: "no"},
		},
	}

	entries, err := newAggregator(b).GetEntries(context.Background(), b.records, Params{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byUnit := map[string]Entry{}
	for _, e := range entries {
		byUnit[e.Unit] = e
	}
	assert.Equal(t, ScheduleAlways, byUnit["syncthing"].Schedule)
	assert.Equal(t, ScheduleManual, byUnit["reindex"].Schedule)
	assert.Equal(t, LabelNA, byUnit["reindex"].Next)
}

func TestGetEntries_NeverSentinel(t *testing.T) {
	b := systemdFixture()

	entries, err := newAggregator(b).GetEntries(context.Background(), b.records, Params{})
	require.NoError(t, err)

	fetch := entries[0]
	require.Equal(t, "fetch", fetch.Unit)
	assert.Equal(t, LabelRunning, fetch.Next)
	assert.Equal(t, LabelNone, fetch.Left)
	assert.Equal(t, "00:00:10", fetch.LastRun)

	next, left := FormatNext(servicemanager.NeverUSec, now)
	assert.Equal(t, LabelNever, next)
	assert.Equal(t, LabelNone, left)
	assert.NotContains(t, left, "-")
}

func TestGetEntries_SuccessRate(t *testing.T) {
	b := systemdFixture()
	b.rates = map[string]float64{"backup.service": 0.75}

	entries, err := newAggregator(b).GetEntries(context.Background(), b.records, Params{WithSuccessRate: true})
	require.NoError(t, err)

	byUnit := make(map[string]Entry)
	for _, e := range entries {
		byUnit[e.Unit] = e
	}
	require.NotNil(t, byUnit["backup"].SuccessRate)
	assert.Equal(t, 0.75, *byUnit["backup"].SuccessRate)
	assert.Equal(t, "exit-code >00:01:00 0.75", byUnit["backup"].Status)

	// no recorded runs
	require.NotNil(t, byUnit["syncthing"].SuccessRate)
	assert.Equal(t, 1.0, *byUnit["syncthing"].SuccessRate)

	assert.ElementsMatch(t, []string{"backup.service", "fetch.service", "syncthing.service"}, b.rateCalls)
}

func TestGetEntries_StatusError(t *testing.T) {
	b := systemdFixture()
	b.statusErr = errors.New("bus closed")

	_, err := newAggregator(b).GetEntries(context.Background(), b.records, Params{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bus closed")
}

func TestGetEntries_Launchd(t *testing.T) {
	b := &fakeBackend{platform: servicemanager.PlatformMacOS}
	records := []servicemanager.UnitRecord{
		{
			UnitFile:     "/u/ping.plist",
			LastExitCode: "0",
			PID:          "4242",
			Schedule:     "every 600 seconds",
			Cmdline: []string{"/usr/local/bin/dron", servicemanager.WrapperCommand,
				"--job", "ping", "--", "/sbin/ping", "-c", "1", "example.com"},
		},
		{UnitFile: "/u/borg-backup.plist", LastExitCode: "1", Schedule: "calendar"},
		{UnitFile: "/u/syncthing.plist", LastExitCode: "0", Schedule: "always"},
	}

	entries, err := newAggregator(b).GetEntries(context.Background(), records, Params{WithCommand: true})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, []string{"ping", "borg-backup", "syncthing"}, []string{entries[0].Unit, entries[1].Unit, entries[2].Unit})

	ping := entries[0]
	assert.True(t, ping.StatusOK)
	assert.Equal(t, "success", ping.Status)
	assert.Equal(t, "every 00:10:00", ping.Schedule)
	assert.Equal(t, "/sbin/ping -c 1 example.com", ping.Command)
	assert.Equal(t, LabelRunning, ping.Next)

	borg := entries[1]
	assert.False(t, borg.StatusOK)
	assert.Equal(t, "exitcode 1", borg.Status)
	assert.Equal(t, "calendar", borg.Schedule)
	assert.Equal(t, LabelNA, borg.Next)
}

func TestSort_IsTotal(t *testing.T) {
	entries := []Entry{
		{Unit: "b", StatusOK: true},
		{Unit: "a", StatusOK: true},
		{Unit: "z", StatusOK: false},
		{Unit: "c", StatusOK: true, PID: "1"},
		{Unit: "d", StatusOK: false, PID: "2"},
	}
	Sort(entries)

	got := make([]string, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.Unit)
	}
	assert.Equal(t, []string{"d", "c", "z", "a", "b"}, got)
}

func TestSnapshot(t *testing.T) {
	b := systemdFixture()

	entries, err := newAggregator(b).Snapshot(context.Background(), Params{})
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, 1, b.queryCalls)
}

func TestPoller_OneFetchInFlight(t *testing.T) {
	var (
		inFlight int32
		maxSeen  int32
		calls    int32
	)
	fetch := func(ctx context.Context) ([]Entry, error) {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			m := atomic.LoadInt32(&maxSeen)
			if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
				break
			}
		}
		atomic.AddInt32(&calls, 1)
		time.Sleep(2 * time.Millisecond)
		return []Entry{{Unit: "x"}}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := NewPoller(fetch, 0).Start(ctx)
	for i := 0; i < 5; i++ {
		r := <-results
		require.NoError(t, r.Err)
		require.Len(t, r.Entries, 1)
	}
	cancel()
	for range results {
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxSeen))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(5))
}

func TestPoller_WaitsForConsumer(t *testing.T) {
	var calls int32
	fetch := func(ctx context.Context) ([]Entry, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := NewPoller(fetch, 0).Start(ctx)
	<-results
	time.Sleep(20 * time.Millisecond)

	// the second fetch finished but cannot be delivered until read
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}

func TestPoller_MinSpacing(t *testing.T) {
	var calls int32
	fetch := func(ctx context.Context) ([]Entry, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	NewPoller(fetch, 0, WithMinSpacing(50*time.Millisecond)).Run(ctx, func(Result) bool { return true })

	got := atomic.LoadInt32(&calls)
	assert.GreaterOrEqual(t, got, int32(1))
	assert.LessOrEqual(t, got, int32(4))
}

func TestPoller_FetchErrorIsDelivered(t *testing.T) {
	fetch := func(ctx context.Context) ([]Entry, error) {
		return nil, errors.New("dbus down")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := <-NewPoller(fetch, time.Hour).Start(ctx)
	assert.EqualError(t, r.Err, "dbus down")
}
