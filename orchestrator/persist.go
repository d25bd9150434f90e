package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/maastricht-university/mom-pipeline/speech"
	"github.com/maastricht-university/mom-pipeline/transcript"
)

const (
	transcriptFile  = "transcript.txt"
	diarizationFile = "diarization.json"
	minutesFile     = "minutes.md"
)

type PersistBundle struct {
	SessionID   string             `json:"session_id"`
	RunID       string             `json:"run_id"`
	AudioPath   string             `json:"audio_path"`
	GeneratedAt time.Time          `json:"generated_at"`
	NumSpeakers int                `json:"num_speakers"`
	Linkage     string             `json:"linkage"`
	Metric      string             `json:"metric"`
	Segments    []speech.Segment   `json:"segments"`
	Labels      []int              `json:"labels"`
	Failed      []int              `json:"failed,omitempty"`
	Sanitized   []int              `json:"sanitized,omitempty"`
	Speakers    []SpeakerStat      `json:"speakers"`
	Overlap     float64            `json:"overlap_seconds"`
	Blocks      []transcript.Block `json:"blocks"`
}

func mkSessionDir(outputsRoot, runID string, now time.Time) (string, string, error) {
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	sid := "session_" + now.Format("20060102-150405") + "_" + short
	dir := filepath.Join(outputsRoot, sid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}
	return sid, dir, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// persist writes the run's artifacts into a fresh session directory and
// returns its path. minutes.md is only written when minutes is non-empty.
func persist(outputsRoot string, bundle PersistBundle, text, minutes string) (string, error) {
	sid, outDir, err := mkSessionDir(outputsRoot, bundle.RunID, bundle.GeneratedAt)
	if err != nil {
		return "", err
	}
	bundle.SessionID = sid

	if err = os.WriteFile(filepath.Join(outDir, transcriptFile), []byte(text), 0o644); err != nil {
		return "", err
	}
	if err = writeJSON(filepath.Join(outDir, diarizationFile), bundle); err != nil {
		return "", err
	}
	if minutes != "" {
		if err = os.WriteFile(filepath.Join(outDir, minutesFile), []byte(minutes), 0o644); err != nil {
			return "", err
		}
	}
	return outDir, nil
}
