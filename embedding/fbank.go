package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrClipTooShort is returned when a clip yields fewer than two frames.
var ErrClipTooShort = errors.New("clip too short")

// FbankConfig controls the log mel front end of [FbankModel].
type FbankConfig struct {
	SampleRate  int     // expected input rate in Hz (default 16000)
	WindowSize  int     // frame length in samples (default 400 = 25ms)
	HopSize     int     // frame shift in samples (default 160 = 10ms)
	FFTSize     int     // FFT size, >= WindowSize (default 512)
	NumMels     int     // mel bands (default 96, giving D = 192)
	LowFreq     float64 // lowest mel edge in Hz (default 20)
	HighFreq    float64 // highest mel edge in Hz (default 7600)
	PreEmphasis float64 // pre-emphasis coefficient (default 0.97)
	EnergyFloor float64 // floor applied before log (default 1e-10)
}

// DefaultFbankConfig returns the 16 kHz configuration.
func DefaultFbankConfig() FbankConfig {
	return FbankConfig{
		SampleRate:  16000,
		WindowSize:  400,
		HopSize:     160,
		FFTSize:     512,
		NumMels:     96,
		LowFreq:     20,
		HighFreq:    7600,
		PreEmphasis: 0.97,
		EnergyFloor: 1e-10,
	}
}

// FbankModel embeds a clip as the per-band mean and standard deviation of
// its log mel filterbank energies, L2-normalized. The embedding length is
// 2 * NumMels.
//
// FbankModel has no mutable state after construction and is safe for
// concurrent use.
type FbankModel struct {
	cfg     FbankConfig
	window  []float64
	melBank [][]float64
}

// NewFbankModel precomputes the window and filterbank.
func NewFbankModel(cfg FbankConfig) (*FbankModel, error) {
	if cfg.WindowSize <= 0 || cfg.HopSize <= 0 || cfg.NumMels <= 0 || cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("fbank: invalid config %+v", cfg)
	}
	if cfg.FFTSize < cfg.WindowSize {
		return nil, fmt.Errorf("fbank: fft size %d smaller than window %d", cfg.FFTSize, cfg.WindowSize)
	}
	if cfg.HighFreq <= cfg.LowFreq || cfg.HighFreq > float64(cfg.SampleRate)/2 {
		return nil, fmt.Errorf("fbank: invalid mel range %.0f-%.0f Hz", cfg.LowFreq, cfg.HighFreq)
	}
	return &FbankModel{
		cfg:     cfg,
		window:  hammingWindow(cfg.WindowSize),
		melBank: melFilterBank(cfg.NumMels, cfg.FFTSize, cfg.SampleRate, cfg.LowFreq, cfg.HighFreq),
	}, nil
}

func (m *FbankModel) Dimension() int { return 2 * m.cfg.NumMels }

func (m *FbankModel) Close() error { return nil }

func (m *FbankModel) Extract(ctx context.Context, samples []float32, sampleRate int) ([]float64, error) {
	if sampleRate != m.cfg.SampleRate {
		return nil, fmt.Errorf("fbank: sample rate %d, want %d", sampleRate, m.cfg.SampleRate)
	}
	feats := m.features(samples)
	if len(feats) < 2 {
		return nil, ErrClipTooShort
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	numMels := m.cfg.NumMels
	out := make([]float64, 2*numMels)
	band := make([]float64, len(feats))
	for b := 0; b < numMels; b++ {
		for f := range feats {
			band[f] = feats[f][b]
		}
		mean, std := stat.MeanStdDev(band, nil)
		out[b] = mean
		out[numMels+b] = std
	}
	if norm := floats.Norm(out, 2); norm > 0 {
		floats.Scale(1/norm, out)
	}
	return out, nil
}

// features computes [T][NumMels] log mel energies.
func (m *FbankModel) features(pcm []float32) [][]float64 {
	cfg := m.cfg
	n := len(pcm)
	if n < cfg.WindowSize {
		return nil
	}
	numFrames := (n-cfg.WindowSize)/cfg.HopSize + 1

	fft := fourier.NewFFT(cfg.FFTSize)
	frame := make([]float64, cfg.FFTSize)
	var coeffs []complex128
	power := make([]float64, cfg.FFTSize/2+1)

	out := make([][]float64, numFrames)
	for f := 0; f < numFrames; f++ {
		offset := f * cfg.HopSize
		for i := range frame {
			frame[i] = 0
		}
		// Pre-emphasis inside the frame, then window.
		prev := 0.0
		if offset > 0 {
			prev = float64(pcm[offset-1])
		}
		for i := 0; i < cfg.WindowSize; i++ {
			s := float64(pcm[offset+i])
			frame[i] = (s - cfg.PreEmphasis*prev) * m.window[i]
			prev = s
		}

		coeffs = fft.Coefficients(coeffs, frame)
		for k := range power {
			re, im := real(coeffs[k]), imag(coeffs[k])
			power[k] = re*re + im*im
		}

		mels := make([]float64, cfg.NumMels)
		for b, weights := range m.melBank {
			energy := floats.Dot(weights, power)
			if energy < cfg.EnergyFloor {
				energy = cfg.EnergyFloor
			}
			mels[b] = math.Log(energy)
		}
		out[f] = mels
	}
	return out
}

func hammingWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

func hzToMel(hz float64) float64 { return 2595.0 * math.Log10(1.0+hz/700.0) }

func melToHz(mel float64) float64 { return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0) }

// melFilterBank builds [numMels][fftSize/2+1] triangular filters.
func melFilterBank(numMels, fftSize, sampleRate int, lowHz, highHz float64) [][]float64 {
	half := fftSize/2 + 1
	lo, hi := hzToMel(lowHz), hzToMel(highHz)

	bins := make([]float64, numMels+2)
	for i := range bins {
		mel := lo + float64(i)*(hi-lo)/float64(numMels+1)
		bins[i] = melToHz(mel) * float64(fftSize) / float64(sampleRate)
	}

	bank := make([][]float64, numMels)
	for b := 0; b < numMels; b++ {
		left, center, right := bins[b], bins[b+1], bins[b+2]
		w := make([]float64, half)
		for k := 0; k < half; k++ {
			x := float64(k)
			switch {
			case x > left && x <= center && center > left:
				w[k] = (x - left) / (center - left)
			case x > center && x < right && right > center:
				w[k] = (right - x) / (right - center)
			}
		}
		bank[b] = w
	}
	return bank
}
