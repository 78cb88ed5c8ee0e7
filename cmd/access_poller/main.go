// Access poller reads RFID tags and sends lock packets to the lock
// controller over the serial link.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/aggregator"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/auditdb"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/config"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/logging"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/pathing"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/poller"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/rfid"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/transport"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/types"
)

func main() {
	logging.ConfigureRuntime()

	if err := pathing.EnsureDirs(); err != nil {
		log.Fatal().Err(err).Msg("Failed to create directories")
	}
	if err := config.LoadAccessPollerConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load access poller config")
	}
	cfg := config.ActiveAccessPollerConfig
	if len(cfg.AuthorisedTokens) == 0 {
		log.Warn().Msg("No authorised tokens configured, every scan will be denied")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := transport.DefaultPortOptions()
	opts.Driver = cfg.SerialDriver
	opts.BaudRate = int(cfg.Baudrate)
	link, err := transport.Open(cfg.SerialDevice, opts)
	if err != nil {
		log.Fatal().Err(err).Str("device", cfg.SerialDevice).Msg("Failed to open serial link")
	}
	defer link.Close()

	source, closer, err := rfid.Open(ctx, cfg.RfidDevice)
	if err != nil {
		log.Fatal().Err(err).Str("device", cfg.RfidDevice).Msg("Failed to open RFID reader")
	}
	defer closer.Close()

	var recorder poller.Recorder
	if cfg.AuditEnabled {
		store, err := auditdb.InitializeDatabase(pathing.GetAuditDbPath())
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize audit database")
		}
		defer store.Close()
		recorder = store
		go runAggregation(ctx, store, time.Duration(cfg.AggregateIntervalMin)*time.Minute)
	}

	tokens := make([]types.Token, len(cfg.AuthorisedTokens))
	for i, t := range cfg.AuthorisedTokens {
		tokens[i] = types.Token(t)
	}

	p := poller.New(source, link, tokens, time.Duration(cfg.PollIntervalMs)*time.Millisecond, recorder)
	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Access poller stopped")
	}
}

func runAggregation(ctx context.Context, store *auditdb.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := aggregator.AggregateAndCleanup(store, time.Now()); err != nil {
			log.Error().Err(err).Msg("Aggregation failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
