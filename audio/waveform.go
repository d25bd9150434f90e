// Package audio turns arbitrary input recordings into the canonical mono
// waveform the diarization stages work on.
//
// Normalization transcodes non-WAV input with ffmpeg, reads the channel
// layout from the WAV header, averages all channels into one and resamples
// to the canonical rate. The result is held in memory as a [Waveform] and
// written next to the run's other intermediates as a 16-bit mono WAV so the
// speech recognizer can address the same signal.
package audio

import "math"

// Waveform is a mono PCM signal with samples normalized to [-1, 1].
// A Waveform must not be modified after the normalizer returns it.
type Waveform struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the signal length in seconds.
func (w *Waveform) Duration() float64 {
	if w == nil || w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Clip bounds [start, end] to the waveform. The returned end never exceeds
// Duration() and the returned start never exceeds the returned end.
func (w *Waveform) Clip(start, end float64) (float64, float64) {
	dur := w.Duration()
	if end > dur {
		end = dur
	}
	if end < 0 {
		end = 0
	}
	if start < 0 {
		start = 0
	}
	if start > end {
		start = end
	}
	return start, end
}

// Crop returns the samples covering [start, end] seconds after clipping.
// The slice aliases the waveform and is capped so appends cannot write
// into it.
func (w *Waveform) Crop(start, end float64) []float32 {
	start, end = w.Clip(start, end)
	i := int(math.Floor(start * float64(w.SampleRate)))
	j := int(math.Ceil(end * float64(w.SampleRate)))
	if j > len(w.Samples) {
		j = len(w.Samples)
	}
	if i > j {
		i = j
	}
	return w.Samples[i:j:j]
}
