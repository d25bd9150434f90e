package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultModelSize is used when the caller does not pick a tier.
const DefaultModelSize = "base"

// WhisperCPP runs the whisper.cpp command line recognizer as a subprocess.
//
// Model files are resolved as <ModelDir>/ggml-<size>.bin. The JSON result is
// written next to the input WAV, which lives in the run's own work directory.
type WhisperCPP struct {
	Command  string
	ModelDir string
	Threads  int
}

func NewWhisperCPP(command, modelDir string, threads int) *WhisperCPP {
	if command == "" {
		command = "whisper-cli"
	}
	return &WhisperCPP{Command: command, ModelDir: modelDir, Threads: threads}
}

func (w *WhisperCPP) Name() string { return "whisper-cpp" }

// ModelPath returns the model file for a quality tier.
func (w *WhisperCPP) ModelPath(size string) string {
	if size == "" {
		size = DefaultModelSize
	}
	return filepath.Join(w.ModelDir, "ggml-"+size+".bin")
}

func (w *WhisperCPP) Segment(ctx context.Context, wavPath string, opts Options) ([]Segment, error) {
	model := w.ModelPath(opts.ModelSize)
	if _, err := os.Stat(model); err != nil {
		return nil, fmt.Errorf("whisper model: %w", err)
	}

	prefix := strings.TrimSuffix(wavPath, filepath.Ext(wavPath))
	args := []string{"-m", model, "-f", wavPath, "-oj", "-of", prefix, "-np"}
	if opts.Language != "" {
		args = append(args, "-l", opts.Language)
	}
	if w.Threads > 0 {
		args = append(args, "-t", fmt.Sprint(w.Threads))
	}

	cmd := exec.CommandContext(ctx, w.Command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("whisper-cpp failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	out, err := os.ReadFile(prefix + ".json")
	if err != nil {
		return nil, fmt.Errorf("read whisper output: %w", err)
	}
	return ParseWhisperJSON(out)
}

type whisperOut struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"` // ms
			To   int64 `json:"to"`   // ms
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// ParseWhisperJSON decodes whisper.cpp's -oj output.
func ParseWhisperJSON(b []byte) ([]Segment, error) {
	var parsed whisperOut
	if err := json.Unmarshal(b, &parsed); err != nil {
		return nil, fmt.Errorf("parse whisper output: %w", err)
	}
	segs := make([]Segment, 0, len(parsed.Transcription))
	for _, t := range parsed.Transcription {
		segs = append(segs, Segment{
			Start: float64(t.Offsets.From) / 1000,
			End:   float64(t.Offsets.To) / 1000,
			Text:  t.Text,
		})
	}
	return segs, nil
}
