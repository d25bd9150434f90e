package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// Header is the subset of the WAV fmt chunk the normalizer acts on.
type Header struct {
	Channels   int
	SampleRate int
	BitDepth   int
	Format     int
}

// PCM reports whether the header describes integer PCM data the decoder
// can read directly.
func (h Header) PCM() bool {
	if h.Format != wavFormatPCM && h.Format != wavFormatExtensible {
		return false
	}
	switch h.BitDepth {
	case 8, 16, 24, 32:
		return true
	}
	return false
}

// isRIFF reports whether the file starts with a RIFF/WAVE signature.
func isRIFF(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	magic := make([]byte, 12)
	if _, err := io.ReadFull(f, magic); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(magic[0:4], []byte("RIFF")) && bytes.Equal(magic[8:12], []byte("WAVE")), nil
}

// ReadHeader reads channel count, rate and sample layout from the fmt chunk.
func ReadHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, &ChannelReadError{Path: path, Err: err}
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return Header{}, &ChannelReadError{Path: path, Err: err}
	}
	h := Header{
		Channels:   int(d.NumChans),
		SampleRate: int(d.SampleRate),
		BitDepth:   int(d.BitDepth),
		Format:     int(d.WavAudioFormat),
	}
	if h.Channels < 1 {
		return Header{}, &ChannelReadError{Path: path, Err: fmt.Errorf("invalid channel count %d", h.Channels)}
	}
	if h.SampleRate <= 0 {
		return Header{}, &ChannelReadError{Path: path, Err: fmt.Errorf("invalid sample rate %d", h.SampleRate)}
	}
	return h, nil
}

// decodeWAV reads the whole PCM payload as interleaved integers.
func decodeWAV(path string) (Header, *goaudio.IntBuffer, error) {
	h, err := ReadHeader(path)
	if err != nil {
		return Header{}, nil, err
	}
	if !h.PCM() {
		return Header{}, nil, &ChannelReadError{Path: path, Err: fmt.Errorf("unsupported sample layout format=%d bits=%d", h.Format, h.BitDepth)}
	}

	f, err := os.Open(path)
	if err != nil {
		return Header{}, nil, &ChannelReadError{Path: path, Err: err}
	}
	defer f.Close()

	buf, err := wav.NewDecoder(f).FullPCMBuffer()
	if err != nil {
		return Header{}, nil, &ChannelReadError{Path: path, Err: err}
	}
	return h, buf, nil
}

// sampleScale returns the divisor mapping an integer sample to [-1, 1].
func sampleScale(bitDepth int) float32 {
	return float32(int64(1) << (bitDepth - 1))
}

// intToFloat converts one decoded sample. 8-bit WAV data is unsigned.
func intToFloat(v, bitDepth int) float32 {
	if bitDepth == 8 {
		v -= 128
	}
	return float32(v) / sampleScale(bitDepth)
}

// WriteWAV encodes a waveform as 16-bit mono PCM.
func WriteWAV(path string, w *Waveform) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	data := make([]int, len(w.Samples))
	for i, s := range w.Samples {
		v := int(s * 32768)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		data[i] = v
	}
	enc := wav.NewEncoder(f, w.SampleRate, 16, 1, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: w.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize wav: %w", err)
	}
	return f.Close()
}
