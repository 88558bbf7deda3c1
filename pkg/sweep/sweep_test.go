package sweep

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tinyland-inc/babelrelay/pkg/config"
)

type backfillCall struct {
	Transport string
	ChannelID string
	Limit     int
}

type fakeBackfiller struct {
	mu    sync.Mutex
	calls []backfillCall
	errOn string
}

func (f *fakeBackfiller) Backfill(_ context.Context, transport, channelID string, limit int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, backfillCall{transport, channelID, limit})
	if channelID == f.errOn {
		return 0, errors.New("history unavailable")
	}
	return 1, nil
}

func TestSweepBackfillsAllTargets(t *testing.T) {
	engine := &fakeBackfiller{}
	s := NewService(config.SweepConfig{
		Enabled: true,
		Cron:    "0 * * * *",
		Limit:   50,
		Channels: []config.SweepTarget{
			{Transport: "discord", ChannelID: "chan-1"},
			{Transport: "slack", ChannelID: "chan-2"},
		},
	}, engine, zerolog.Nop())

	s.sweep(context.Background())

	if len(engine.calls) != 2 {
		t.Fatalf("expected 2 backfill calls, got %d", len(engine.calls))
	}
	if engine.calls[0] != (backfillCall{"discord", "chan-1", 50}) {
		t.Errorf("unexpected first call %+v", engine.calls[0])
	}
	if engine.calls[1] != (backfillCall{"slack", "chan-2", 50}) {
		t.Errorf("unexpected second call %+v", engine.calls[1])
	}
}

func TestSweepContinuesPastFailures(t *testing.T) {
	engine := &fakeBackfiller{errOn: "chan-1"}
	s := NewService(config.SweepConfig{
		Enabled: true,
		Channels: []config.SweepTarget{
			{Transport: "discord", ChannelID: "chan-1"},
			{Transport: "discord", ChannelID: "chan-2"},
		},
	}, engine, zerolog.Nop())

	s.sweep(context.Background())

	if len(engine.calls) != 2 {
		t.Errorf("a failing target must not stop the sweep, got %d calls", len(engine.calls))
	}
}

func TestSweepDefaultLimit(t *testing.T) {
	engine := &fakeBackfiller{}
	s := NewService(config.SweepConfig{
		Enabled:  true,
		Channels: []config.SweepTarget{{Transport: "discord", ChannelID: "chan-1"}},
	}, engine, zerolog.Nop())

	s.sweep(context.Background())

	if engine.calls[0].Limit != 100 {
		t.Errorf("expected default limit 100, got %d", engine.calls[0].Limit)
	}
}

func TestStartDisabledIsNoOp(t *testing.T) {
	engine := &fakeBackfiller{}
	s := NewService(config.SweepConfig{
		Enabled:  false,
		Channels: []config.SweepTarget{{Transport: "discord", ChannelID: "chan-1"}},
	}, engine, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	s.Stop()

	if len(engine.calls) != 0 {
		t.Errorf("disabled sweeper must not backfill, got %d calls", len(engine.calls))
	}
}

func TestStartInvalidCron(t *testing.T) {
	engine := &fakeBackfiller{}
	s := NewService(config.SweepConfig{
		Enabled:  true,
		Cron:     "not a schedule",
		Channels: []config.SweepTarget{{Transport: "discord", ChannelID: "chan-1"}},
	}, engine, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	s.Stop()
}

func TestStopIsIdempotent(t *testing.T) {
	s := NewService(config.SweepConfig{}, &fakeBackfiller{}, zerolog.Nop())
	s.Stop()
	s.Stop()
}
