package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/ligustah/acquire/internal/config"
	"github.com/ligustah/acquire/internal/logging"
	"github.com/ligustah/acquire/pkg/acquire"
)

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\n[acquire] Received interrupt, finishing current unit...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// loadConfig builds the configuration from defaults, an optional YAML file,
// a .env file in the working directory and ACQUIRE_ environment variables.
func loadConfig(path string) (config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return config.Config{}, err
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(level, format string) (zerolog.Logger, error) {
	return logging.New(os.Stderr, level, format)
}

func openBucket(ctx context.Context, url string) (*blob.Bucket, error) {
	bkt, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open bucket: %w", err)
	}
	return bkt, nil
}

// newPoller builds a poller from the watch and probe settings.
func newPoller(cfg config.Config, logger zerolog.Logger) *acquire.Poller {
	return &acquire.Poller{
		Selector: &acquire.Selector{
			Patterns:      cfg.Watch.Patterns,
			TempSuffixes:  cfg.Watch.TempSuffixes,
			PurgePatterns: cfg.Watch.PurgePatterns,
			Logger:        logging.Component(logger, "selector"),
		},
		Prober: &acquire.Prober{
			Interval: cfg.Probe.Interval,
			MinSize:  cfg.Probe.MinSize,
		},
		Timeout:             cfg.Watch.Timeout,
		PollInterval:        cfg.Watch.PollInterval,
		RequiredStableReads: cfg.Watch.StableReads,
		FallbackPatterns:    cfg.Watch.FallbackPatterns,
		Logger:              logging.Component(logger, "poller"),
	}
}

func newRelocator(cfg config.Config, logger zerolog.Logger) *acquire.Relocator {
	return &acquire.Relocator{
		Ext:           cfg.Dest.Ext,
		MaxCollisions: cfg.Dest.MaxCollisions,
		Logger:        logging.Component(logger, "relocator"),
	}
}

// parseUnits parses "0001=HEALTHY MATRIZ,0011" into unit requests.
func parseUnits(s string) ([]acquire.UnitRequest, error) {
	var units []acquire.UnitRequest
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, name, _ := strings.Cut(part, "=")
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("unit %q has no id", part)
		}
		units = append(units, acquire.UnitRequest{ID: id, Name: strings.TrimSpace(name)})
	}
	return units, nil
}

func splitPatterns(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
