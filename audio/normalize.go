package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	resampling "github.com/tphakala/go-audio-resampling"
)

// DefaultSampleRate is the rate speaker embedding models are trained on.
const DefaultSampleRate = 16000

const (
	convertedName  = "converted.wav"
	normalizedName = "normalized.wav"
)

// Normalizer converts input recordings to a canonical mono waveform.
type Normalizer struct {
	SampleRate int
	FFmpegPath string
	Log        logrus.FieldLogger
}

// Normalized is the outcome of one normalization.
type Normalized struct {
	Waveform *Waveform
	// Path is the canonical mono WAV inside the run's work directory.
	Path string
	// Source describes the WAV that was decoded (after any transcode).
	Source Header

	Transcoded bool
	Downmixed  bool
	Resampled  bool
}

// NewNormalizer returns a Normalizer with defaults applied.
func NewNormalizer(sampleRate int, ffmpegPath string, log logrus.FieldLogger) *Normalizer {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Normalizer{SampleRate: sampleRate, FFmpegPath: ffmpegPath, Log: log}
}

// Normalize decodes src into a mono waveform at n.SampleRate. Every file it
// writes goes into workDir, which the caller owns and removes.
func (n *Normalizer) Normalize(ctx context.Context, src, workDir string) (*Normalized, error) {
	out := &Normalized{}
	path := src

	riff, err := isRIFF(src)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	if riff {
		h, err := ReadHeader(src)
		if err != nil {
			return nil, err
		}
		riff = h.PCM()
	}
	if !riff {
		converted := filepath.Join(workDir, convertedName)
		n.Log.WithField("src", src).Debug("transcoding to wav")
		if err := n.transcode(ctx, src, converted); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &UnsupportedFormatError{Path: src, Err: err}
		}
		path = converted
		out.Transcoded = true
	}

	h, buf, err := decodeWAV(path)
	if err != nil {
		return nil, err
	}
	out.Source = h

	samples := monoSamples(buf.Data, h.Channels, h.BitDepth)
	out.Downmixed = h.Channels > 1

	if h.SampleRate != n.SampleRate {
		samples, err = resample(samples, h.SampleRate, n.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("resample %d->%d: %w", h.SampleRate, n.SampleRate, err)
		}
		out.Resampled = true
	}

	out.Waveform = &Waveform{Samples: samples, SampleRate: n.SampleRate}
	out.Path = filepath.Join(workDir, normalizedName)
	if err := WriteWAV(out.Path, out.Waveform); err != nil {
		return nil, fmt.Errorf("write normalized wav: %w", err)
	}

	n.Log.WithFields(logrus.Fields{
		"channels":    h.Channels,
		"sample_rate": h.SampleRate,
		"duration":    fmt.Sprintf("%.2fs", out.Waveform.Duration()),
		"transcoded":  out.Transcoded,
		"downmixed":   out.Downmixed,
		"resampled":   out.Resampled,
	}).Info("audio normalized")
	return out, nil
}

// transcode runs ffmpeg to produce a PCM16 WAV keeping channels and rate.
func (n *Normalizer) transcode(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, n.FFmpegPath,
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-y", "-i", src,
		"-vn", "-acodec", "pcm_s16le",
		"-f", "wav",
		dst,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("ffmpeg: %w: %s", err, msg)
		}
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}

// monoSamples converts interleaved integer frames to float samples,
// averaging all channels of each frame. Mono data is converted one to one.
func monoSamples(data []int, channels, bitDepth int) []float32 {
	if channels <= 1 {
		out := make([]float32, len(data))
		for i, v := range data {
			out[i] = intToFloat(v, bitDepth)
		}
		return out
	}
	frames := len(data) / channels
	out := make([]float32, frames)
	for f := 0; f < frames; f++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += intToFloat(data[f*channels+c], bitDepth)
		}
		out[f] = sum / float32(channels)
	}
	return out
}

// resample converts in from one rate to another. The result always holds
// round(len(in)*to/from) samples: the flushed filter tail is appended and
// anything past that length is dropped.
func resample(in []float32, from, to int) ([]float32, error) {
	if len(in) == 0 {
		return in, nil
	}
	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(from),
		OutputRate: float64(to),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, err
	}
	out, err := r.ProcessFloat32(in)
	if err != nil {
		return nil, err
	}
	tail, err := r.Flush()
	if err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}
	for _, s := range tail {
		out = append(out, float32(s))
	}

	want := resampledLen(len(in), from, to)
	if len(out) > want {
		out = out[:want]
	}
	for len(out) < want {
		out = append(out, 0)
	}
	for i, s := range out {
		if s > 1 {
			out[i] = 1
		} else if s < -1 {
			out[i] = -1
		}
	}
	return out, nil
}

func resampledLen(n, from, to int) int {
	return int((int64(n)*int64(to) + int64(from)/2) / int64(from))
}
