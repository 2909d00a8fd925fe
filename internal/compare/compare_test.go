package compare

import (
	"context"
	"image"
	"image/color"
	"math"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/snapdeck/snapdeck/internal/errors"
	"github.com/snapdeck/snapdeck/internal/frame"
)

// makePattern creates test frames with distinct visual content.
func makePattern(pattern, size int) frame.Frame {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			var c color.RGBA
			switch pattern {
			case 0: // solid gray
				c = color.RGBA{R: 128, G: 128, B: 128, A: 255}
			case 1: // checkerboard
				if (x/8+y/8)%2 == 0 {
					c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
				} else {
					c = color.RGBA{R: 0, G: 0, B: 0, A: 255}
				}
			case 2: // horizontal gradient
				c = color.RGBA{R: uint8(x * 255 / size), G: 0, B: uint8(255 - x*255/size), A: 255}
			case 3: // solid black
				c = color.RGBA{A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return frame.New(img, time.Now())
}

func stateless(t *testing.T, method Method, threshold float64) Comparator {
	t.Helper()
	c, err := New(context.Background(), method, Options{Threshold: threshold})
	if err != nil {
		t.Fatalf("New(%s): %v", method, err)
	}
	return c
}

func TestNewValidation(t *testing.T) {
	ctx := context.Background()

	if _, err := New(ctx, Method("histogram"), Options{Threshold: 0.1}); err == nil {
		t.Error("unknown method should fail")
	}
	for _, bad := range []float64{0, -0.5, 1.5} {
		if _, err := New(ctx, MethodMSE, Options{Threshold: bad}); err == nil {
			t.Errorf("threshold %v should fail", bad)
		} else if !errors.IsCode(err, errors.CodeConfigInvalid) {
			t.Errorf("threshold %v: expected CONFIG_INVALID, got %v", bad, err)
		}
	}
	if _, err := New(ctx, MethodEmbed, Options{Threshold: 0.1}); err == nil {
		t.Error("embed without sidecar address should fail")
	}
}

func TestIdenticalFramesScoreZero(t *testing.T) {
	a := makePattern(1, 64)
	b := makePattern(1, 64)

	for _, method := range []Method{MethodMSE, MethodSSIM, MethodPHash} {
		c := stateless(t, method, 0.005)
		res, err := c.Score(context.Background(), a, b)
		if err != nil {
			t.Fatalf("%s: %v", method, err)
		}
		if res.Score != 0 {
			t.Errorf("%s: identical frames scored %v, want exactly 0", method, res.Score)
		}
		if res.IsDifferent {
			t.Errorf("%s: identical frames flagged different", method)
		}
	}
}

func TestIdenticalFramesScoreZeroSemantic(t *testing.T) {
	// The fake embedder adds per-call noise; the exact-equality fast path
	// must keep identical frames at score 0 regardless.
	c, err := NewSemanticWith(&noisyEmbedder{}, 0.005)
	if err != nil {
		t.Fatalf("NewSemanticWith: %v", err)
	}
	a := makePattern(2, 64)
	b := makePattern(2, 64)

	res, err := c.Score(context.Background(), a, b)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.Score != 0 {
		t.Errorf("identical frames scored %v, want exactly 0", res.Score)
	}
}

func TestMSEKnownValue(t *testing.T) {
	gray := makePattern(0, 32)  // luma 128/255
	black := makePattern(3, 32) // luma 0

	c := stateless(t, MethodMSE, 0.005)
	res, err := c.Score(context.Background(), gray, black)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	want := math.Pow(128.0/255.0, 2)
	if math.Abs(res.Score-want) > 1e-6 {
		t.Errorf("mse = %v, want %v", res.Score, want)
	}
	if !res.IsDifferent {
		t.Error("gray vs black should exceed threshold 0.005")
	}
}

func TestScoresStayInUnitRange(t *testing.T) {
	patterns := []frame.Frame{makePattern(0, 64), makePattern(1, 64), makePattern(2, 64), makePattern(3, 64)}
	for _, method := range []Method{MethodMSE, MethodSSIM, MethodPHash} {
		c := stateless(t, method, 0.5)
		for i, a := range patterns {
			for j, b := range patterns {
				res, err := c.Score(context.Background(), a, b)
				if err != nil {
					t.Fatalf("%s(%d,%d): %v", method, i, j, err)
				}
				if res.Score < 0 || res.Score > 1 {
					t.Errorf("%s(%d,%d): score %v outside [0,1]", method, i, j, res.Score)
				}
			}
		}
	}
}

func TestSSIMDetectsStructuralChange(t *testing.T) {
	c := stateless(t, MethodSSIM, 0.02)

	res, err := c.Score(context.Background(), makePattern(1, 64), makePattern(3, 64))
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if !res.IsDifferent {
		t.Errorf("checkerboard vs black should be different (score %v)", res.Score)
	}
}

func TestPHashDetectsPatternChange(t *testing.T) {
	c := stateless(t, MethodPHash, 0.10)

	res, err := c.Score(context.Background(), makePattern(1, 64), makePattern(2, 64))
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if !res.IsDifferent {
		t.Errorf("checkerboard vs gradient should be different (score %v)", res.Score)
	}
}

func TestMismatchedSizesAreResized(t *testing.T) {
	// Same content at different sizes must compare without error and score low.
	small := makePattern(0, 32)
	large := makePattern(0, 64)

	c := stateless(t, MethodMSE, 0.5)
	res, err := c.Score(context.Background(), small, large)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.Score > 0.01 {
		t.Errorf("same solid content at different sizes scored %v", res.Score)
	}
}

func TestThresholdMonotonicity(t *testing.T) {
	a := makePattern(1, 64)
	b := makePattern(2, 64)

	rapid.Check(t, func(rt *rapid.T) {
		lo := rapid.Float64Range(0.001, 0.5).Draw(rt, "lo")
		hi := rapid.Float64Range(lo, 1.0).Draw(rt, "hi")

		cLo := stateless(t, MethodMSE, lo)
		cHi := stateless(t, MethodMSE, hi)

		resLo, err := cLo.Score(context.Background(), a, b)
		if err != nil {
			rt.Fatalf("Score: %v", err)
		}
		resHi, err := cHi.Score(context.Background(), a, b)
		if err != nil {
			rt.Fatalf("Score: %v", err)
		}

		// Raising the threshold can only flip the decision true -> false.
		if resHi.IsDifferent && !resLo.IsDifferent {
			rt.Errorf("threshold %v flagged different but lower %v did not", hi, lo)
		}
		if resLo.Score != resHi.Score {
			rt.Errorf("score changed with threshold: %v vs %v", resLo.Score, resHi.Score)
		}
	})
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 0},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"both zero", []float32{0, 0}, []float32{0, 0}, 0},
		{"one zero", []float32{1, 0}, []float32{0, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineDistance(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosineDistance = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSemanticScoring(t *testing.T) {
	emb := &scriptedEmbedder{vectors: [][]float32{{1, 0}, {0, 1}}}
	c, err := NewSemanticWith(emb, 0.05)
	if err != nil {
		t.Fatalf("NewSemanticWith: %v", err)
	}

	res, err := c.Score(context.Background(), makePattern(1, 32), makePattern(2, 32))
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	// Orthogonal embeddings: cosine distance 1, clamped in range.
	if math.Abs(res.Score-1) > 1e-9 {
		t.Errorf("score = %v, want 1", res.Score)
	}
	if !res.IsDifferent {
		t.Error("orthogonal embeddings should be flagged different")
	}
}

func TestSemanticDimensionMismatch(t *testing.T) {
	emb := &scriptedEmbedder{vectors: [][]float32{{1, 0}, {0, 1, 0}}}
	c, err := NewSemanticWith(emb, 0.05)
	if err != nil {
		t.Fatalf("NewSemanticWith: %v", err)
	}

	_, err = c.Score(context.Background(), makePattern(1, 32), makePattern(2, 32))
	if !errors.IsCode(err, errors.CodeCompareFailed) {
		t.Errorf("expected COMPARE_FAILED, got %v", err)
	}
}

// noisyEmbedder returns a slightly different vector on every call.
func TestSemanticReusesBaselineEmbedding(t *testing.T) {
	emb := &noisyEmbedder{}
	c, err := NewSemanticWith(emb, 0.05)
	if err != nil {
		t.Fatalf("NewSemanticWith: %v", err)
	}

	a := makePattern(0, 32)
	b := makePattern(1, 32)
	cc := makePattern(2, 32)

	if _, err := c.Score(context.Background(), a, b); err != nil {
		t.Fatalf("Score(a,b): %v", err)
	}
	if emb.calls != 2 {
		t.Fatalf("embed calls after first score = %d, want 2", emb.calls)
	}

	// b was embedded last tick; only the new frame goes to the sidecar.
	if _, err := c.Score(context.Background(), b, cc); err != nil {
		t.Fatalf("Score(b,c): %v", err)
	}
	if emb.calls != 3 {
		t.Errorf("embed calls after second score = %d, want 3", emb.calls)
	}
}

type noisyEmbedder struct{ calls int }

func (e *noisyEmbedder) Embed(context.Context, []byte) ([]float32, error) {
	e.calls++
	return []float32{1, float32(e.calls) * 0.001}, nil
}

func (e *noisyEmbedder) Close() error { return nil }

// scriptedEmbedder returns preset vectors in sequence.
type scriptedEmbedder struct {
	vectors [][]float32
	calls   int
}

func (e *scriptedEmbedder) Embed(context.Context, []byte) ([]float32, error) {
	v := e.vectors[e.calls%len(e.vectors)]
	e.calls++
	return v, nil
}

func (e *scriptedEmbedder) Close() error { return nil }
