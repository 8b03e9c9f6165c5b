package world

import (
	"playasim/internal/sim/gametime"
	"playasim/internal/sim/ports"
	"playasim/internal/sim/tuning"
)

func (w Weather) SpeedFactor(t tuning.Weather) float64 {
	if w.Kind == WeatherDustStorm && t.DustStormSpeedFactor > 0 {
		return t.DustStormSpeedFactor
	}
	return 1
}

func (w Weather) ThirstFactor(t tuning.Weather) float64 {
	if w.Kind == WeatherDustStorm && t.DustStormThirstFactor > 0 {
		return t.DustStormThirstFactor
	}
	return 1
}

// rollWeather runs once per simulated hour. A running storm only ends; the dice are rolled in
// clear weather alone, so the rng draw count depends on nothing but the clock.
func (e *Engine) rollWeather() {
	s := &e.state
	t := e.tuning.Weather
	switch s.Weather.Kind {
	case WeatherDustStorm:
		if s.Time.TotalMinutes >= s.Weather.UntilMinute {
			s.Weather = Weather{Kind: WeatherClear}
			e.notify("The dust settles", ports.CategoryInfo, 0, s.Player.Pos)
		}
	default:
		if e.rng.Float64() < t.DustStormChance {
			s.Weather = Weather{
				Kind:        WeatherDustStorm,
				UntilMinute: s.Time.TotalMinutes + int64(t.DustStormHours)*gametime.MinutesPerHour,
			}
			e.notify("Dust storm! Visibility drops", ports.CategoryWarning, float64(t.DustStormHours), s.Player.Pos)
			e.play("wind", 1)
		}
	}
}
