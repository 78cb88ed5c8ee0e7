package actuator

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/NotCoffee418/rfid_bike_lock/pkg/types"
)

func (LogSink) Actuate(dir types.Direction, degrees float64) error {
	log.Info().Str("direction", dir.String()).Float64("degrees", degrees).Msg("Motor moved")
	return nil
}

func (LogSink) SetIndicator(color types.Color) error {
	log.Info().Str("color", color.String()).Msg("Indicator set")
	return nil
}

func (LogSink) SoundAlarm() error {
	log.Warn().Msg("Alarm sounded")
	return nil
}

func (LogDisplay) Show(lines ...string) {
	log.Info().Str("display", strings.Join(lines, " | ")).Msg("Display updated")
}
