// Package interpolate provides the temporal resampling primitives used to
// align lower-resolution hourly series to the finer target cadence. All
// functions are pure: they never mutate their inputs and hold no state.
package interpolate

import (
	"math"
	"time"

	"fishcast/internal/types"
)

// SlotsPerHour is the target cadence: four sub-slots per hourly record.
const SlotsPerHour = 4

// Linear resamples values uniformly to target points, preserving the first
// and last values exactly. Inputs shorter than 2 points pass through
// unchanged, as does a target smaller than 2.
func Linear(values []float64, target int) []float64 {
	if len(values) < 2 || target < 2 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}

	out := make([]float64, target)
	step := float64(len(values)-1) / float64(target-1)
	for i := 0; i < target; i++ {
		pos := float64(i) * step
		lo := int(math.Floor(pos))
		hi := int(math.Ceil(pos))
		if hi >= len(values) {
			hi = len(values) - 1
		}
		frac := pos - float64(lo)
		out[i] = values[lo] + (values[hi]-values[lo])*frac
	}
	// Guard against float drift at the endpoints.
	out[0] = values[0]
	out[target-1] = values[len(values)-1]
	return out
}

// Angular resamples 0-360 degree quantities (wind/current/wave directions)
// along the shortest arc, normalizing results back into [0,360).
func Angular(degrees []float64, target int) []float64 {
	if len(degrees) < 2 || target < 2 {
		out := make([]float64, len(degrees))
		copy(out, degrees)
		return out
	}

	out := make([]float64, target)
	step := float64(len(degrees)-1) / float64(target-1)
	for i := 0; i < target; i++ {
		pos := float64(i) * step
		lo := int(math.Floor(pos))
		hi := int(math.Ceil(pos))
		if hi >= len(degrees) {
			hi = len(degrees) - 1
		}
		frac := pos - float64(lo)
		out[i] = lerpAngle(degrees[lo], degrees[hi], frac)
	}
	out[0] = normalizeDeg(degrees[0])
	out[target-1] = normalizeDeg(degrees[len(degrees)-1])
	return out
}

// lerpAngle interpolates between two angles along the shortest arc.
func lerpAngle(a, b, frac float64) float64 {
	diff := math.Mod(b-a, 360)
	if diff > 180 {
		diff -= 360
	} else if diff < -180 {
		diff += 360
	}
	return normalizeDeg(a + diff*frac)
}

func normalizeDeg(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// ExpandHourly converts a full hourly sample series to perHour sub-slots by
// fractional position within each hour pair. Direction fields interpolate
// along the shortest arc; all other fields linearly. Fields absent at either
// end of an hour pair stay absent in the sub-slots it produces.
func ExpandHourly(samples []types.Sample, perHour int) []types.Sample {
	if len(samples) < 2 || perHour < 2 {
		out := make([]types.Sample, len(samples))
		copy(out, samples)
		return out
	}

	out := make([]types.Sample, 0, (len(samples)-1)*perHour+1)
	for i := 0; i < len(samples)-1; i++ {
		a, b := samples[i], samples[i+1]
		span := b.Timestamp.Sub(a.Timestamp)
		for slot := 0; slot < perHour; slot++ {
			frac := float64(slot) / float64(perHour)
			s := lerpSample(a, b, frac)
			s.Timestamp = a.Timestamp.Add(time.Duration(float64(span) * frac)).Truncate(time.Second)
			out = append(out, s)
		}
	}
	out = append(out, samples[len(samples)-1])
	return out
}

// lerpSample interpolates every optional field present on both endpoints.
func lerpSample(a, b types.Sample, frac float64) types.Sample {
	s := types.Sample{}
	s.TemperatureC = lerpPtr(a.TemperatureC, b.TemperatureC, frac)
	s.PressureHPa = lerpPtr(a.PressureHPa, b.PressureHPa, frac)
	s.WindSpeedMS = lerpPtr(a.WindSpeedMS, b.WindSpeedMS, frac)
	s.WindGustMS = lerpPtr(a.WindGustMS, b.WindGustMS, frac)
	s.WindDirectionDeg = lerpAnglePtr(a.WindDirectionDeg, b.WindDirectionDeg, frac)
	s.PrecipitationMM = lerpPtr(a.PrecipitationMM, b.PrecipitationMM, frac)
	s.CloudCoverPct = lerpPtr(a.CloudCoverPct, b.CloudCoverPct, frac)
	s.VisibilityM = lerpPtr(a.VisibilityM, b.VisibilityM, frac)
	s.SunshineDurationS = lerpPtr(a.SunshineDurationS, b.SunshineDurationS, frac)
	s.CAPE = lerpPtr(a.CAPE, b.CAPE, frac)
	s.LightningPoten = lerpPtr(a.LightningPoten, b.LightningPoten, frac)
	s.SeaSurfaceTempC = lerpPtr(a.SeaSurfaceTempC, b.SeaSurfaceTempC, frac)
	s.WaveHeightM = lerpPtr(a.WaveHeightM, b.WaveHeightM, frac)
	s.WavePeriodS = lerpPtr(a.WavePeriodS, b.WavePeriodS, frac)
	s.WaveDirectionDeg = lerpAnglePtr(a.WaveDirectionDeg, b.WaveDirectionDeg, frac)
	s.SwellHeightM = lerpPtr(a.SwellHeightM, b.SwellHeightM, frac)
	s.SwellPeriodS = lerpPtr(a.SwellPeriodS, b.SwellPeriodS, frac)
	s.SwellDirectionDeg = lerpAnglePtr(a.SwellDirectionDeg, b.SwellDirectionDeg, frac)
	s.CurrentSpeedMS = lerpPtr(a.CurrentSpeedMS, b.CurrentSpeedMS, frac)
	s.CurrentDirectionDeg = lerpAnglePtr(a.CurrentDirectionDeg, b.CurrentDirectionDeg, frac)
	return s
}

func lerpPtr(a, b *float64, frac float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	v := *a + (*b-*a)*frac
	return &v
}

func lerpAnglePtr(a, b *float64, frac float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	v := lerpAngle(*a, *b, frac)
	return &v
}
