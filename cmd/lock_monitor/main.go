// Responsible for storing the lock controller's status history.
// Depends on the lock controller API being online.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/auditdb"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/config"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/controller"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/logging"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/pathing"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/statusfeed"
)

func main() {
	logging.ConfigureRuntime()

	if err := pathing.EnsureDirs(); err != nil {
		log.Fatal().Err(err).Msg("Failed to create directories")
	}
	if err := config.LoadLockMonitorConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load lock monitor config")
	}
	cfg := config.ActiveLockMonitorConfig

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := auditdb.InitializeDatabase(pathing.GetAuditDbPath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize audit database")
	}
	defer store.Close()

	var mirror *statusfeed.RedisMirror
	if cfg.RedisAddress != "" {
		mirror, err = statusfeed.NewRedisMirror(ctx, cfg.RedisAddress, cfg.RedisChannel)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect redis mirror")
		}
		defer mirror.Close()
	}

	// Subscribe to websocket with revive
	err = statusfeed.StartListener(ctx, cfg.ControllerAPIHost, statusfeed.DefaultBackoff(),
		func(s controller.Snapshot) {
			handleSnapshot(ctx, store, mirror, s)
		})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Str("host", cfg.ControllerAPIHost).Msg("Lost lock controller")
	}
}

func handleSnapshot(ctx context.Context, store *auditdb.Store, mirror *statusfeed.RedisMirror, s controller.Snapshot) {
	ev := statusfeed.EventFromSnapshot(s)
	if err := store.RecordLockEvent(ev); err != nil {
		log.Error().Err(err).Msg("Failed to store lock event")
	}
	if mirror != nil {
		if err := mirror.Publish(ctx, ev); err != nil {
			log.Error().Err(err).Msg("Failed to mirror lock event")
		}
	}
	log.Info().
		Str("state", ev.State.String()).
		Str("outcome", ev.Outcome).
		Str("indicator", ev.Indicator.String()).
		Msg("Lock event")
}
