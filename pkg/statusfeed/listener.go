package statusfeed

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/controller"
)

var ErrMaxRetries = errors.New("statusfeed: max retries reached")

// Backoff controls how the listener reconnects.
type Backoff struct {
	MaxRetries int
	Base       time.Duration
	Max        time.Duration
}

func DefaultBackoff() Backoff {
	return Backoff{
		MaxRetries: 10,
		Base:       2 * time.Second,
		Max:        60 * time.Second,
	}
}

// Delay returns the wait before the given retry, counting from 1.
func (b Backoff) Delay(retry int) time.Duration {
	if retry <= 0 {
		return 0
	}
	if retry > 30 {
		return b.Max
	}
	d := time.Duration(1<<(retry-1)) * b.Base
	if d > b.Max {
		d = b.Max
	}
	return d
}

const (
	pingInterval = 5 * time.Second
	readTimeout  = 15 * time.Second
)

// StartListener subscribes to the controller at host and calls handle for
// every snapshot until ctx is done. Lost connections are retried with
// backoff; it gives up after MaxRetries failed attempts in a row.
func StartListener(ctx context.Context, host string, backoff Backoff, handle func(controller.Snapshot)) error {
	u := url.URL{Scheme: "ws", Host: host, Path: "/ws"}
	retryCount := 0

	for {
		if retryCount > 0 {
			delay := backoff.Delay(retryCount)
			log.Info().Dur("delay", delay).Int("attempt", retryCount+1).Int("max", backoff.MaxRetries).Msg("Retrying connection")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		log.Info().Str("url", u.String()).Msg("Connecting to lock controller")

		dialer := websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: 10 * time.Second,
		}
		c, _, err := dialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn().Err(err).Msg("Connection failed")
			retryCount++
			if retryCount >= backoff.MaxRetries {
				log.Error().Int("max", backoff.MaxRetries).Msg("Max retries reached, giving up")
				return ErrMaxRetries
			}
			continue
		}

		log.Info().Msg("Connected, receiving lock status")
		retryCount = 0

		broken := handleConnection(ctx, c, handle)
		c.Close()
		if !broken {
			return ctx.Err()
		}
		log.Warn().Msg("Connection lost, will retry")
		retryCount = 1
	}
}

// handleConnection reads snapshots until the connection breaks (true) or ctx
// is done (false).
func handleConnection(ctx context.Context, c *websocket.Conn, handle func(controller.Snapshot)) bool {
	done := make(chan struct{})

	c.SetReadDeadline(time.Now().Add(readTimeout))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go func() {
		defer close(done)
		for {
			messageType, message, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Msg("WebSocket error")
				} else {
					log.Debug().Err(err).Msg("Connection closed")
				}
				return
			}
			c.SetReadDeadline(time.Now().Add(readTimeout))

			if messageType != websocket.TextMessage {
				log.Debug().Int("type", messageType).Msg("Received unexpected message type")
				continue
			}
			var snap controller.Snapshot
			if err := json.Unmarshal(message, &snap); err != nil {
				log.Warn().Err(err).Str("message", string(message)).Msg("Failed to parse snapshot")
				continue
			}
			handle(snap)
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return true
		case <-ticker.C:
			if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				log.Debug().Err(err).Msg("Failed to send ping")
			}
		case <-ctx.Done():
			err := c.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			if err != nil {
				log.Debug().Err(err).Msg("Error sending close message")
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return false
		}
	}
}
