// Package embedding extracts one speaker embedding per transcript segment.
//
// # Pipeline
//
//  1. Clip the segment to the waveform (never past the end of the recording)
//  2. Crop the mono samples and hand them to a [Model]
//  3. Collect vectors into an N x D matrix in segment order
//  4. [Sanitize] the matrix: any row with a NaN or Inf becomes all zeros
//
// A segment whose extraction fails is recorded as an [ExtractionError] and
// gets a zero row; the run carries on so the matrix shape stays fixed.
//
// # Models
//
// [FbankModel] is a built-in statistics embedding (per-band mean and
// standard deviation of log mel energies). [ServiceModel] forwards clips to
// a remote embedding service, typically a pretrained ECAPA-TDNN.
package embedding

import "context"

// Model maps a mono clip to a fixed-length speaker embedding.
//
// Implementations must be safe for concurrent use: the embedder calls
// Extract from several goroutines and the registry shares one Model
// across runs.
type Model interface {
	// Extract computes an embedding from normalized float samples at
	// sampleRate. The result has length Dimension().
	Extract(ctx context.Context, samples []float32, sampleRate int) ([]float64, error)

	// Dimension is the embedding length D.
	Dimension() int

	// Close releases model resources.
	Close() error
}
