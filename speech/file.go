package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// File replays segments saved from an earlier recognition. It accepts
// either a bare JSON array of segments or an object with a "segments" key.
type File struct {
	Path string
}

func (f *File) Name() string { return "json" }

func (f *File) Segment(ctx context.Context, _ string, _ Options) ([]Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	return ParseSegmentsJSON(b)
}

// ParseSegmentsJSON decodes a segments document.
func ParseSegmentsJSON(b []byte) ([]Segment, error) {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var segs []Segment
		if err := json.Unmarshal(b, &segs); err != nil {
			return nil, fmt.Errorf("parse segments: %w", err)
		}
		return segs, nil
	}
	var doc struct {
		Segments []Segment `json:"segments"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse segments: %w", err)
	}
	return doc.Segments, nil
}
