// Lock controller reads lock packets off the serial link, confirms them with
// the keypad code, drives the lock and serves its status.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/actuator"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/config"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/controller"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/keypad"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/logging"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/metrics"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/pathing"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/port_reader"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/scheduler"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/statusfeed"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/syncutil"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/transport"
)

const metricsInterval = time.Second

func main() {
	logging.ConfigureRuntime()

	if err := pathing.EnsureDirs(); err != nil {
		log.Fatal().Err(err).Msg("Failed to create directories")
	}
	if err := config.LoadLockControllerConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load lock controller config")
	}
	cfg := config.ActiveLockControllerConfig

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Serial link
	opts := transport.DefaultPortOptions()
	opts.Driver = cfg.SerialDriver
	opts.BaudRate = int(cfg.Baudrate)
	opts.ReadTimeout = time.Duration(cfg.ReadTimeoutMs) * time.Millisecond
	framer := port_reader.NewFramer(port_reader.Limits{MaxBufferBytes: cfg.MaxBufferBytes})
	reader, err := port_reader.Connect(cfg.SerialDevice, opts, framer)
	if err != nil {
		log.Fatal().Err(err).Str("device", cfg.SerialDevice).Msg("Failed to open serial link")
	}
	defer reader.Close()

	act, err := newActuator(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up actuator")
	}
	pad, err := newKeypad(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up keypad")
	}

	hub := statusfeed.NewHub()
	go hub.Run(ctx)
	m := metrics.New()

	ctrl, err := controller.New(
		controller.Config{
			Keycode:      cfg.Keycode,
			MaxAttempts:  cfg.MaxAttempts,
			Degrees:      cfg.ActuationDegrees,
			EntryTimeout: time.Duration(cfg.CodeEntryTimeoutMs) * time.Millisecond,
		},
		framer,
		act,
		actuator.LogDisplay{},
		pad,
		func(s controller.Snapshot) {
			hub.Observe(s)
			m.Observe(s)
		},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid controller settings")
	}
	hub.Observe(ctrl.Snapshot(time.Now()))

	sched := scheduler.New(time.Duration(cfg.TickIntervalMs) * time.Millisecond)
	sched.Add("link_reader", reader.Step)
	sched.Add("controller", ctrl.ProcessStep)
	var lastMetrics time.Time
	sched.Add("metrics", func(context.Context) (bool, error) {
		if time.Since(lastMetrics) < metricsInterval {
			return false, nil
		}
		lastMetrics = time.Now()
		m.UpdateLink(framer.Counters(), framer.Pending())
		return false, nil
	})

	// Status API
	listen := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.ListenPort)
	server := &http.Server{
		Addr:              listen,
		Handler:           statusfeed.NewMux(hub, m.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("listen", listen).Msg("Starting RFID Bike Lock Controller API")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Status API failed")
		}
	}()

	log.Info().
		Str("device", cfg.SerialDevice).
		Str("actuator", cfg.Actuator).
		Str("state", ctrl.State().String()).
		Bool("deadlock_detection", syncutil.DeadlockDetection()).
		Msg("Lock controller running")
	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Scheduler stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Status API shutdown")
	}
	log.Info().Msg("Lock controller stopped")
}

func newActuator(cfg *config.LockControllerConfig) (controller.Actuator, error) {
	if cfg.Actuator != "modbus" {
		log.Warn().Msg("Using logging actuator, the lock will not move")
		return actuator.LogSink{}, nil
	}
	mcfg := actuator.DefaultModbusConfig()
	mcfg.Host = cfg.ModbusHost
	mcfg.Port = cfg.ModbusPort
	mcfg.SlaveID = cfg.ModbusSlaveId
	act, err := actuator.NewModbus(mcfg)
	if err != nil {
		return nil, err
	}
	return act, nil
}

func newKeypad(ctx context.Context, cfg *config.LockControllerConfig) (controller.Keypad, error) {
	if cfg.KeypadButton1Pin == "" {
		log.Warn().Msg("No keypad pins configured, reading digits from standard input")
		k := keypad.NewLineKeypad()
		go k.Feed(ctx, os.Stdin)
		return k, nil
	}
	k, err := keypad.OpenGPIO(cfg.KeypadButton1Pin, cfg.KeypadButton2Pin)
	if err != nil {
		return nil, err
	}
	return k, nil
}
