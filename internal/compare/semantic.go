package compare

import (
	"context"
	"log/slog"
	"math"

	"github.com/snapdeck/snapdeck/internal/compare/embed"
	"github.com/snapdeck/snapdeck/internal/errors"
	"github.com/snapdeck/snapdeck/internal/frame"
)

// embedComparator scores the cosine distance between sidecar embeddings.
// The encoder is loaded once at session start; byte-identical frames never
// reach the encoder, since embedding distance of identical input is not
// guaranteed to be exactly zero under floating-point inference.
type embedComparator struct {
	threshold float64
	client    embed.Embedder

	// cache holds the vectors from the previous call. The next baseline is
	// always one of those two frames (the old baseline on reject, the new
	// capture on accept), so a hit halves sidecar traffic.
	cache [2]cachedEmbedding
}

type cachedEmbedding struct {
	frame frame.Frame
	vec   []float32
}

// newEmbedComparator dials the embedding sidecar. A dial or handshake
// failure is a comparator initialization error that aborts session start.
func newEmbedComparator(ctx context.Context, opts Options) (Comparator, error) {
	if opts.EmbedAddr == "" {
		return nil, errors.New(errors.CodeComparatorInit, "embed method requires a sidecar address")
	}
	client, err := embed.Dial(ctx, opts.EmbedAddr)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeComparatorInit, "embedding model initialization failed")
	}
	return &embedComparator{threshold: opts.Threshold, client: client}, nil
}

// NewSemanticWith builds the semantic comparator around an existing
// embedder. Used by tests and by callers that manage the sidecar themselves.
func NewSemanticWith(embedder embed.Embedder, threshold float64) (Comparator, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, errors.Newf(errors.CodeConfigInvalid, "threshold %v out of range (0,1]", threshold)
	}
	return &embedComparator{threshold: threshold, client: embedder}, nil
}

func (c *embedComparator) Method() Method { return MethodEmbed }

func (c *embedComparator) Close() error { return c.client.Close() }

func (c *embedComparator) Score(ctx context.Context, prev, curr frame.Frame) (Result, error) {
	if prev.Equal(curr) {
		return decide(0, c.threshold), nil
	}

	vecA, err := c.embedCached(ctx, prev)
	if err != nil {
		return Result{}, err
	}
	vecB, err := c.embedCached(ctx, curr)
	if err != nil {
		return Result{}, err
	}
	if len(vecA) != len(vecB) {
		return Result{}, errors.Newf(errors.CodeCompareFailed,
			"embedding dimension mismatch: %d vs %d", len(vecA), len(vecB))
	}
	c.cache = [2]cachedEmbedding{{prev, vecA}, {curr, vecB}}

	score := clamp01(cosineDistance(vecA, vecB))
	slog.Debug("embed score", "score", score, "threshold", c.threshold, "dim", len(vecA))
	return decide(score, c.threshold), nil
}

// embedCached reuses a vector from the previous call when the frame is
// byte-identical, otherwise asks the sidecar.
func (c *embedComparator) embedCached(ctx context.Context, f frame.Frame) ([]float32, error) {
	for _, entry := range c.cache {
		if entry.vec != nil && entry.frame.Equal(f) {
			return entry.vec, nil
		}
	}
	return c.embedFrame(ctx, f)
}

func (c *embedComparator) embedFrame(ctx context.Context, f frame.Frame) ([]float32, error) {
	data, err := f.EncodePNG()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCompareFailed, "frame encode for embedding failed")
	}
	return c.client.Embed(ctx, data)
}

// cosineDistance computes 1 - cosine similarity. Zero-magnitude vectors are
// treated as maximally different from everything except another zero vector.
func cosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 && normB == 0 {
		return 0
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
