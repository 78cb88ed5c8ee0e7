package controller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/types"
)

// Validate checks the keycode and caps.
func (c Config) Validate() error {
	if len(c.Keycode) == 0 {
		return fmt.Errorf("%w: empty keycode", ErrInvalidConfig)
	}
	for i := 0; i < len(c.Keycode); i++ {
		if c.Keycode[i] != types.Button1.Digit() && c.Keycode[i] != types.Button2.Digit() {
			return fmt.Errorf("%w: keycode digit %q is not on the keypad", ErrInvalidConfig, c.Keycode[i])
		}
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1", ErrInvalidConfig)
	}
	if c.Degrees <= 0 {
		return fmt.Errorf("%w: actuation degrees must be positive", ErrInvalidConfig)
	}
	if c.EntryTimeout < 0 {
		return fmt.Errorf("%w: negative code entry timeout", ErrInvalidConfig)
	}
	return nil
}

// New creates a controller in the locked state. observer may be nil.
func New(cfg Config, queue Queue, actuator Actuator, display Display, keypad Keypad, observer Observer) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Controller{
		cfg:      cfg,
		queue:    queue,
		actuator: actuator,
		display:  display,
		keypad:   keypad,
		observer: observer,
		state:    types.StateLocked,
		entered:  make([]byte, 0, len(cfg.Keycode)),
	}, nil
}

// ProcessStep is the extract-and-process scheduler task: it frames whatever
// the reader buffered, then runs one controller step.
func (c *Controller) ProcessStep(_ context.Context) (bool, error) {
	framed := c.queue.ExtractPackets()
	return c.Step(time.Now()) || framed > 0, nil
}

// Step runs one controller turn. While a code entry is in progress it only
// samples the keypad; otherwise it evaluates at most one queued packet.
func (c *Controller) Step(now time.Time) bool {
	if c.state == types.StateAwaitCode {
		return c.stepCodeEntry(now)
	}

	packet, ok := c.queue.Next()
	if !ok {
		return false
	}
	c.frameCRC = c.queue.LastCRC()
	c.evaluate(packet, now)
	return true
}

func (c *Controller) evaluate(p types.Packet, now time.Time) {
	switch p.Allow {
	case types.AllowNoSignal:
		log.Trace().Str("command", string(p.Command)).Msg("Heartbeat")

	case types.AllowFalse:
		log.Info().Str("command", string(p.Command)).Msg("Access denied by host")
		c.command = p.Command
		c.display.Show(string(p.Command), "Access denied")
		c.setIndicator(types.ColorDeny)
		c.soundAlarm()
		c.outcome = OutcomeDenied
		c.publish(now)

	case types.AllowTrue:
		log.Info().Str("command", string(p.Command)).Msg("Access granted by host, awaiting code")
		c.prior = c.state
		c.state = types.StateAwaitCode
		c.command = p.Command
		c.outcome = OutcomeAwaitingCode
		c.entered = c.entered[:0]
		c.attempts = 0
		c.entryStart = now
		if r, ok := c.keypad.(KeypadResetter); ok {
			r.Reset()
		}
		// A button already down when entry starts must be released first.
		c.held[0] = c.keypad.ButtonPressed(types.Button1)
		c.held[1] = c.keypad.ButtonPressed(types.Button2)
		c.display.Show(string(p.Command), "Enter code")
		c.setIndicator(types.ColorBlue)
		c.publish(now)
	}
}

// stepCodeEntry samples both buttons once and registers at most one digit,
// on the press edge. Button 1 wins when both go down together.
func (c *Controller) stepCodeEntry(now time.Time) bool {
	if c.cfg.EntryTimeout > 0 && now.Sub(c.entryStart) >= c.cfg.EntryTimeout {
		c.fail(OutcomeTimedOut, now)
		return true
	}

	var digit byte
	for i, b := range [2]types.Button{types.Button1, types.Button2} {
		pressed := c.keypad.ButtonPressed(b)
		if pressed && !c.held[i] && digit == 0 {
			digit = b.Digit()
		}
		c.held[i] = pressed
	}
	if digit == 0 {
		return false
	}

	pos := len(c.entered)
	c.entered = append(c.entered, digit)
	if digit != c.cfg.Keycode[pos] {
		c.attempts++
	}
	c.display.Show(string(c.command), "Enter code", c.enteredText())

	switch {
	case string(c.entered) == c.cfg.Keycode:
		c.grant(now)
	case c.attempts >= c.cfg.MaxAttempts:
		c.fail(OutcomeTooManyAttempts, now)
	case len(c.entered) >= len(c.cfg.Keycode):
		c.fail(OutcomeIncorrectCode, now)
	default:
		c.publish(now)
	}
	return true
}

func (c *Controller) grant(now time.Time) {
	dir, color, next := types.Forward, types.ColorGreen, types.StateGrantedUnlocked
	if c.command == types.CommandLock {
		dir, color, next = types.Reverse, types.ColorRed, types.StateGrantedLocked
	}

	if err := c.actuator.Actuate(dir, c.cfg.Degrees); err != nil {
		log.Error().Err(err).Str("direction", dir.String()).Msg("Actuation failed")
		c.display.Show(string(c.command), "Enter code", c.enteredText(), "Lock fault")
		c.setIndicator(types.ColorDeny)
		c.soundAlarm()
		c.state = c.prior
		c.outcome = OutcomeActuatorFault
		c.publish(now)
		return
	}

	c.setIndicator(color)
	c.state = next
	c.outcome = OutcomeGranted
	log.Info().Str("command", string(c.command)).Str("state", next.String()).Msg("Code accepted")
	c.publish(now)
}

func (c *Controller) fail(outcome Outcome, now time.Time) {
	lines := []string{string(c.command), "Enter code", "Incorrect code"}
	switch outcome {
	case OutcomeTooManyAttempts:
		lines = append(lines, "Too many attempts")
	case OutcomeTimedOut:
		lines = append(lines, "Code entry timed out")
	}
	c.display.Show(lines...)
	c.setIndicator(types.ColorDeny)
	c.soundAlarm()

	log.Warn().
		Str("command", string(c.command)).
		Str("outcome", string(outcome)).
		Int("attempts", c.attempts).
		Msg("Code entry failed")

	c.state = types.StateDenied
	c.outcome = outcome
	c.publish(now)

	c.state = c.prior
	c.publish(now)
}

func (c *Controller) setIndicator(color types.Color) {
	if err := c.actuator.SetIndicator(color); err != nil {
		log.Error().Err(err).Str("color", color.String()).Msg("Failed to set indicator")
		return
	}
	c.indicator = color
}

func (c *Controller) soundAlarm() {
	if err := c.actuator.SoundAlarm(); err != nil {
		log.Error().Err(err).Msg("Failed to sound alarm")
	}
}

func (c *Controller) enteredText() string {
	parts := make([]string, len(c.entered))
	for i, d := range c.entered {
		parts[i] = string(d)
	}
	return strings.Join(parts, " ")
}

// State returns the current controller state.
func (c *Controller) State() types.ControllerState {
	return c.state
}

// Snapshot returns the current status.
func (c *Controller) Snapshot(now time.Time) Snapshot {
	return Snapshot{
		Timestamp: now,
		State:     c.state,
		Indicator: c.indicator,
		Command:   c.command,
		Outcome:   c.outcome,
		Entered:   len(c.entered),
		Attempts:  c.attempts,
		Pending:   c.queue.Pending(),
		FrameCRC:  c.frameCRC,
		Counters:  c.queue.Counters(),
	}
}

func (c *Controller) publish(now time.Time) {
	if c.observer != nil {
		c.observer(c.Snapshot(now))
	}
}
