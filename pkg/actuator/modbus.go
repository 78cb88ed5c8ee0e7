package actuator

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/goburrow/modbus"
	probing "github.com/prometheus-community/pro-bing"
	"github.com/rs/zerolog/log"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/lockutils"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/types"
)

func NewModbus(cfg ModbusConfig) (*Modbus, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, ErrModbusNotConfigured
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	return &Modbus{
		cfg:   cfg,
		dial:  dialTCP,
		ping:  ping,
		sleep: time.Sleep,
	}, nil
}

func dialTCP(cfg ModbusConfig) (registerWriter, io.Closer, error) {
	handler := modbus.NewTCPClientHandler(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	handler.Timeout = cfg.Timeout
	handler.SlaveId = cfg.SlaveID
	if err := handler.Connect(); err != nil {
		handler.Close()
		return nil, nil, err
	}
	return modbus.NewClient(handler), handler, nil
}

// Actuate moves the bolt by degrees in dir.
func (m *Modbus) Actuate(dir types.Direction, degrees float64) error {
	log.Debug().Str("direction", dir.String()).Float64("degrees", degrees).Msg("Actuating lock")
	return m.write(
		register{RegDirection, uint16(dir)},
		register{RegAmount, lockutils.DegreesToDeciDegrees(degrees)},
		register{RegMove, 1},
	)
}

func (m *Modbus) SetIndicator(color types.Color) error {
	return m.write(register{RegColor, uint16(color)})
}

func (m *Modbus) SoundAlarm() error {
	return m.write(register{RegAlarm, 1})
}

func (m *Modbus) write(regs ...register) error {
	var lastErr error
	for attempt := 0; attempt < m.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			m.sleep(m.cfg.RetryDelay)
		}

		if !m.cfg.SkipPing {
			if ok, _, err := m.ping(m.cfg.Host); !ok || err != nil {
				lastErr = fmt.Errorf("ping failed on attempt %d: %w", attempt+1, err)
				continue
			}
		}

		client, conn, err := m.dial(m.cfg)
		if err != nil {
			lastErr = fmt.Errorf("connection failed on attempt %d: %w", attempt+1, err)
			continue
		}

		err = writeAll(client, regs)
		conn.Close()
		if err != nil {
			lastErr = fmt.Errorf("write failed on attempt %d: %w", attempt+1, err)
			continue
		}
		return nil
	}

	log.Error().Err(lastErr).Str("host", m.cfg.Host).Msg("Lock unit did not accept command")
	return errors.Join(ErrModbusWriteFailed, lastErr)
}

func writeAll(client registerWriter, regs []register) error {
	for _, r := range regs {
		if _, err := client.WriteSingleRegister(r.address, r.value); err != nil {
			return fmt.Errorf("register %d: %w", r.address, err)
		}
	}
	return nil
}

func ping(host string) (bool, time.Duration, error) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return false, 0, err
	}

	pinger.Count = 1
	pinger.Timeout = 2 * time.Second
	pinger.SetPrivileged(false) // UDP-based, no root needed

	err = pinger.Run()
	if err != nil {
		return false, 0, err
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv > 0 {
		return true, stats.AvgRtt, nil
	}

	return false, 0, ErrHostUnreachable
}
