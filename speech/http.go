package speech

import (
	"context"

	"github.com/maastricht-university/mom-pipeline/clients"
)

// Service delegates recognition to a remote ASR service speaking the
// multipart /transcribe contract.
type Service struct {
	http *clients.HTTP
	url  string
}

func NewService(h *clients.HTTP, url string) *Service {
	return &Service{http: h, url: url}
}

func (s *Service) Name() string { return "http" }

func (s *Service) Segment(ctx context.Context, wavPath string, opts Options) ([]Segment, error) {
	resp, err := s.http.ASR(ctx, s.url, wavPath, clients.ASRReq{Model: opts.ModelSize, Language: opts.Language})
	if err != nil {
		return nil, err
	}
	segs := make([]Segment, 0, len(resp.Segments))
	for _, t := range resp.Segments {
		segs = append(segs, Segment{Start: t.Start, End: t.End, Text: t.Text})
	}
	return segs, nil
}
