package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"

	"github.com/tinyland-inc/babelrelay/cmd/babelrelay/internal"
	"github.com/tinyland-inc/babelrelay/pkg/bus"
	"github.com/tinyland-inc/babelrelay/pkg/channels"
	"github.com/tinyland-inc/babelrelay/pkg/registry"
	"github.com/tinyland-inc/babelrelay/pkg/relay"
	"github.com/tinyland-inc/babelrelay/pkg/store"
	"github.com/tinyland-inc/babelrelay/pkg/sweep"
	"github.com/tinyland-inc/babelrelay/pkg/translate"
)

func serveCmd(debug bool) error {
	log := newLogger(debug)

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	linkTable, err := store.Open(cfg.Store.Driver, cfg.Store.Path, "links")
	if err != nil {
		return fmt.Errorf("error opening link store: %w", err)
	}
	markTable, err := store.Open(cfg.Store.Driver, cfg.Store.Path, "watermarks")
	if err != nil {
		return fmt.Errorf("error opening watermark store: %w", err)
	}

	links, err := registry.LoadLinks(linkTable)
	if err != nil {
		return err
	}
	marks, err := registry.LoadWatermarks(markTable)
	if err != nil {
		return err
	}

	translator, err := translate.New(cfg.Translator)
	if err != nil {
		return fmt.Errorf("error creating translator: %w", err)
	}

	eventBus := bus.NewEventBus()
	engine := relay.NewEngine(relay.Options{
		Links:        links,
		Watermarks:   marks,
		Translator:   translator,
		Log:          log,
		MaxChunk:     cfg.Relay.MaxChunkSize,
		EphemeralTTL: time.Duration(cfg.Relay.EphemeralTTLSeconds) * time.Second,
		FanoutLimit:  cfg.Relay.FanoutConcurrency,
		IdentityName: cfg.Relay.IdentityName,
	})

	manager, err := channels.NewManager(cfg, eventBus, engine, log)
	if err != nil {
		return fmt.Errorf("error creating channel manager: %w", err)
	}
	for _, ch := range manager.All() {
		if t, ok := ch.(relay.Transport); ok {
			engine.RegisterTransport(t)
		}
	}
	if cfg.Operator.UserID != "" {
		if ch, ok := manager.GetChannel("discord"); ok {
			if n, ok := ch.(relay.Notifier); ok {
				engine.SetNotifier(n)
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.StartAll(ctx); err != nil {
		return err
	}
	if names := manager.EnabledNames(); names != "" {
		fmt.Printf("✓ Channels enabled: %s\n", names)
	} else {
		fmt.Println("⚠ Warning: no channels enabled")
	}

	sweeper := sweep.NewService(cfg.Sweep, engine, log)
	sweeper.Start(ctx)

	go engine.Run(ctx, eventBus)

	fmt.Printf("✓ Relay started (%d linked channels)\n", len(engine.Links()))
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	<-sigChan

	fmt.Println("\nShutting down...")
	sweeper.Stop()
	eventBus.Close()
	cancel()
	manager.StopAll(context.Background())
	fmt.Println("✓ Relay stopped")

	return nil
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
