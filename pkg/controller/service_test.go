package controller

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/keypad"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/port_reader"
	"github.com/NotCoffee418/rfid_bike_lock/pkg/types"
)

type actuation struct {
	dir     types.Direction
	degrees float64
}

type fakeActuator struct {
	actuations []actuation
	colors     []types.Color
	alarms     int
	actuateErr error
}

func (f *fakeActuator) Actuate(dir types.Direction, degrees float64) error {
	if f.actuateErr != nil {
		return f.actuateErr
	}
	f.actuations = append(f.actuations, actuation{dir, degrees})
	return nil
}

func (f *fakeActuator) SetIndicator(color types.Color) error {
	f.colors = append(f.colors, color)
	return nil
}

func (f *fakeActuator) SoundAlarm() error {
	f.alarms++
	return nil
}

func (f *fakeActuator) lastColor() types.Color {
	if len(f.colors) == 0 {
		return types.ColorOff
	}
	return f.colors[len(f.colors)-1]
}

type fakeDisplay struct {
	screens [][]string
}

func (f *fakeDisplay) Show(lines ...string) {
	f.screens = append(f.screens, lines)
}

func (f *fakeDisplay) last() []string {
	if len(f.screens) == 0 {
		return nil
	}
	return f.screens[len(f.screens)-1]
}

type fakeKeypad struct {
	down map[types.Button]bool
}

func (f *fakeKeypad) ButtonPressed(id types.Button) bool {
	return f.down[id]
}

type harness struct {
	t         *testing.T
	framer    *port_reader.Framer
	actuator  *fakeActuator
	display   *fakeDisplay
	keypad    *fakeKeypad
	ctrl      *Controller
	snapshots []Snapshot
	now       time.Time
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		framer:   port_reader.NewFramer(port_reader.DefaultLimits()),
		actuator: &fakeActuator{},
		display:  &fakeDisplay{},
		keypad:   &fakeKeypad{down: map[types.Button]bool{}},
		now:      time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	ctrl, err := New(cfg, h.framer, h.actuator, h.display, h.keypad, func(s Snapshot) {
		h.snapshots = append(h.snapshots, s)
	})
	require.NoError(t, err)
	h.ctrl = ctrl
	return h
}

// receive frames wire text and runs one controller step.
func (h *harness) receive(wire string) {
	h.t.Helper()
	require.NoError(h.t, h.framer.Append([]byte(wire)))
	h.framer.ExtractPackets()
	require.True(h.t, h.ctrl.Step(h.now))
}

// press sends one press edge per button. The release step is skipped once
// the entry has resolved so queued packets stay queued.
func (h *harness) press(buttons ...types.Button) {
	for _, b := range buttons {
		h.keypad.down[b] = true
		h.ctrl.Step(h.now)
		h.keypad.down[b] = false
		if h.ctrl.State() != types.StateAwaitCode {
			continue
		}
		h.ctrl.Step(h.now)
	}
}

func (h *harness) sawState(s types.ControllerState) bool {
	for _, snap := range h.snapshots {
		if snap.State == s {
			return true
		}
	}
	return false
}

func TestLockWithCorrectCode(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	h.receive("M:lock,true:E\n")
	assert.Equal(t, types.StateAwaitCode, h.ctrl.State())
	assert.Equal(t, []string{"lock", "Enter code"}, h.display.last())

	h.press(types.Button1, types.Button2, types.Button2, types.Button1)

	assert.Equal(t, types.StateGrantedLocked, h.ctrl.State())
	assert.Equal(t, []actuation{{types.Reverse, 60}}, h.actuator.actuations)
	assert.Equal(t, types.ColorRed, h.actuator.lastColor())
	assert.Equal(t, 0, h.actuator.alarms)
	assert.Equal(t, []string{"lock", "Enter code", "1 2 2 1"}, h.display.last())

	last := h.snapshots[len(h.snapshots)-1]
	assert.Equal(t, OutcomeGranted, last.Outcome)
	assert.Equal(t, types.ColorRed, last.Indicator)
	assert.Equal(t, 4, last.Entered)
	assert.Equal(t, 0, last.Attempts)
}

func TestUnlockWithCorrectCode(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	h.receive("M:unlock,true:E\n")
	h.press(types.Button1, types.Button2, types.Button2, types.Button1)

	assert.Equal(t, types.StateGrantedUnlocked, h.ctrl.State())
	assert.Equal(t, []actuation{{types.Forward, 60}}, h.actuator.actuations)
	assert.Equal(t, types.ColorGreen, h.actuator.lastColor())
	assert.Equal(t, 0, h.actuator.alarms)
}

func TestDeniedPacket(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	before := h.ctrl.State()

	h.receive("M:unlock,false:E\n")

	assert.Equal(t, before, h.ctrl.State())
	assert.Equal(t, []types.Color{types.ColorDeny}, h.actuator.colors)
	assert.Equal(t, 1, h.actuator.alarms)
	assert.Empty(t, h.actuator.actuations)
	require.Len(t, h.snapshots, 1)
	assert.Equal(t, OutcomeDenied, h.snapshots[0].Outcome)
}

func TestDeniedPacketKeepsGrantedState(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.receive("M:unlock,true:E\n")
	h.press(types.Button1, types.Button2, types.Button2, types.Button1)
	require.Equal(t, types.StateGrantedUnlocked, h.ctrl.State())

	h.receive("M:lock,false:E\n")
	assert.Equal(t, types.StateGrantedUnlocked, h.ctrl.State())
	assert.Len(t, h.actuator.actuations, 1)
}

func TestNoSignalPacketIsSilent(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	h.receive("M:lock,:E\n")

	assert.Equal(t, types.StateLocked, h.ctrl.State())
	assert.Empty(t, h.actuator.colors)
	assert.Empty(t, h.actuator.actuations)
	assert.Equal(t, 0, h.actuator.alarms)
	assert.Empty(t, h.snapshots)
}

func TestThreeIncorrectEntries(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.receive("M:unlock,true:E\n")

	// 2,1,1 against 1,2,2,1: three wrong digits before the fourth
	h.press(types.Button2, types.Button1, types.Button1)

	assert.Equal(t, types.StateLocked, h.ctrl.State())
	assert.True(t, h.sawState(types.StateDenied))
	assert.Empty(t, h.actuator.actuations)
	assert.Equal(t, 1, h.actuator.alarms)
	assert.Equal(t, types.ColorDeny, h.actuator.lastColor())
	assert.Equal(t, []string{"unlock", "Enter code", "Incorrect code", "Too many attempts"}, h.display.last())

	last := h.snapshots[len(h.snapshots)-1]
	assert.Equal(t, OutcomeTooManyAttempts, last.Outcome)
	assert.Equal(t, 3, last.Attempts)
	assert.Equal(t, 3, last.Entered)
}

func TestFullLengthMismatch(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.receive("M:lock,true:E\n")

	h.press(types.Button1, types.Button2, types.Button2, types.Button2)

	assert.Equal(t, types.StateLocked, h.ctrl.State())
	assert.Empty(t, h.actuator.actuations)
	assert.Equal(t, []string{"lock", "Enter code", "Incorrect code"}, h.display.last())
	assert.Equal(t, OutcomeIncorrectCode, h.snapshots[len(h.snapshots)-1].Outcome)
}

func TestFailedEntryReturnsToPriorState(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.receive("M:unlock,true:E\n")
	h.press(types.Button1, types.Button2, types.Button2, types.Button1)
	require.Equal(t, types.StateGrantedUnlocked, h.ctrl.State())

	h.receive("M:lock,true:E\n")
	h.press(types.Button2, types.Button1, types.Button1)

	assert.Equal(t, types.StateGrantedUnlocked, h.ctrl.State())
	assert.Len(t, h.actuator.actuations, 1)
}

func TestHeldButtonCountsOnce(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.receive("M:lock,true:E\n")

	h.keypad.down[types.Button1] = true
	for i := 0; i < 50; i++ {
		h.ctrl.Step(h.now)
	}
	h.keypad.down[types.Button1] = false
	h.ctrl.Step(h.now)

	assert.Equal(t, types.StateAwaitCode, h.ctrl.State())
	assert.Equal(t, 1, h.ctrl.Snapshot(h.now).Entered)
}

func TestButtonHeldAtEntryStartIsIgnored(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.keypad.down[types.Button2] = true
	h.receive("M:lock,true:E\n")

	h.ctrl.Step(h.now)
	assert.Equal(t, 0, h.ctrl.Snapshot(h.now).Entered)

	h.keypad.down[types.Button2] = false
	h.press(types.Button1, types.Button2, types.Button2, types.Button1)
	assert.Equal(t, types.StateGrantedLocked, h.ctrl.State())
}

func TestStrayKeypadInputDroppedAtEntryStart(t *testing.T) {
	framer := port_reader.NewFramer(port_reader.DefaultLimits())
	act := &fakeActuator{}
	keys := keypad.NewLineKeypad()
	ctrl, err := New(DefaultConfig(), framer, act, &fakeDisplay{}, keys, nil)
	require.NoError(t, err)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	// typed before any tag was presented
	keys.Press(types.Button2)
	keys.Press(types.Button2)

	require.NoError(t, framer.Append([]byte("M:lock,true:E\n")))
	framer.ExtractPackets()
	require.True(t, ctrl.Step(now))

	for _, b := range []types.Button{types.Button1, types.Button2, types.Button2, types.Button1} {
		keys.Press(b)
	}
	for i := 0; i < 20 && ctrl.State() == types.StateAwaitCode; i++ {
		ctrl.Step(now)
	}

	assert.Equal(t, types.StateGrantedLocked, ctrl.State())
	assert.Equal(t, 0, ctrl.Snapshot(now).Attempts)
	assert.Equal(t, []actuation{{types.Reverse, 60}}, act.actuations)
}

func TestPacketsWaitDuringCodeEntry(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.framer.Append([]byte("M:lock,true:E\nM:unlock,false:E\nM:unlock,:E\n")))
	h.framer.ExtractPackets()

	require.True(t, h.ctrl.Step(h.now))
	for i := 0; i < 10; i++ {
		h.ctrl.Step(h.now)
	}
	assert.Equal(t, 2, h.framer.Pending())
	assert.Equal(t, 0, h.actuator.alarms)

	h.press(types.Button1, types.Button2, types.Button2, types.Button1)
	require.Equal(t, types.StateGrantedLocked, h.ctrl.State())
	assert.Equal(t, 2, h.framer.Pending())
	assert.Equal(t, 0, h.actuator.alarms)

	require.True(t, h.ctrl.Step(h.now))
	assert.Equal(t, 1, h.actuator.alarms)
	require.True(t, h.ctrl.Step(h.now))
	assert.Equal(t, 0, h.framer.Pending())
	assert.False(t, h.ctrl.Step(h.now))
}

func TestCodeEntryTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EntryTimeout = 30 * time.Second
	h := newHarness(t, cfg)
	h.receive("M:unlock,true:E\n")
	h.press(types.Button1)

	h.now = h.now.Add(31 * time.Second)
	h.ctrl.Step(h.now)

	assert.Equal(t, types.StateLocked, h.ctrl.State())
	assert.Equal(t, OutcomeTimedOut, h.snapshots[len(h.snapshots)-1].Outcome)
	assert.Equal(t, "Code entry timed out", h.display.last()[3])
	assert.Empty(t, h.actuator.actuations)
}

func TestActuatorFaultFailsClosed(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.actuator.actuateErr = errors.New("modbus timeout")
	h.receive("M:unlock,true:E\n")
	h.press(types.Button1, types.Button2, types.Button2, types.Button1)

	assert.Equal(t, types.StateLocked, h.ctrl.State())
	assert.Equal(t, OutcomeActuatorFault, h.snapshots[len(h.snapshots)-1].Outcome)
	assert.Equal(t, 1, h.actuator.alarms)
}

func TestSnapshotCarriesFramerCounters(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.receive("junk:EM:unlock,false:E\n")

	snap := h.snapshots[0]
	assert.Equal(t, uint64(1), snap.Counters.EncodeErrors)
	assert.NotZero(t, snap.FrameCRC)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := []Config{
		{Keycode: "", MaxAttempts: 3, Degrees: 60},
		{Keycode: "1231", MaxAttempts: 3, Degrees: 60},
		{Keycode: "1221", MaxAttempts: 0, Degrees: 60},
		{Keycode: "1221", MaxAttempts: 3, Degrees: 0},
		{Keycode: "1221", MaxAttempts: 3, Degrees: 60, EntryTimeout: -time.Second},
	}
	for _, cfg := range bad {
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig, "%+v", cfg)
	}
}
