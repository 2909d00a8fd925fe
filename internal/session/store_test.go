package session

import (
	"image"
	"image/color"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/snapdeck/snapdeck/internal/frame"
)

func testFrame(shade uint8) frame.Frame {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, color.RGBA{R: shade, G: shade, B: shade, A: 255})
		}
	}
	return frame.New(img, time.Now())
}

func TestStoreAppendAssignsContiguousIndices(t *testing.T) {
	s := NewStore()

	for i := 0; i < 5; i++ {
		slide, err := s.Append(testFrame(uint8(i * 40)))
		if err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
		if slide.Index != i {
			t.Errorf("slide index = %d, want %d", slide.Index, i)
		}
	}

	slides := s.Slides()
	if len(slides) != 5 {
		t.Fatalf("len = %d, want 5", len(slides))
	}
	for i, slide := range slides {
		if slide.Index != i {
			t.Errorf("slides[%d].Index = %d", i, slide.Index)
		}
	}
}

func TestStoreIndexContiguityProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 50).Draw(rt, "appends")
		s := NewStore()
		for i := 0; i < n; i++ {
			if _, err := s.Append(testFrame(uint8(i))); err != nil {
				rt.Fatalf("Append: %v", err)
			}
		}
		slides := s.Slides()
		if len(slides) != n {
			rt.Fatalf("len = %d, want %d", len(slides), n)
		}
		for i, slide := range slides {
			if slide.Index != i {
				rt.Errorf("slides[%d].Index = %d", i, slide.Index)
			}
		}
	})
}

func TestStoreFreezeRejectsAppend(t *testing.T) {
	s := NewStore()
	if _, err := s.Append(testFrame(10)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	s.Freeze()
	if !s.Frozen() {
		t.Fatal("store should report frozen")
	}

	if _, err := s.Append(testFrame(20)); err == nil {
		t.Error("append to frozen store should fail")
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}

	// Freeze is one-way and idempotent.
	s.Freeze()
	if !s.Frozen() {
		t.Error("store should stay frozen")
	}
}

func TestStoreAccessors(t *testing.T) {
	s := NewStore()

	if _, ok := s.Last(); ok {
		t.Error("empty store should have no last slide")
	}
	if _, ok := s.Slide(0); ok {
		t.Error("empty store should have no slide 0")
	}

	s.Append(testFrame(1))
	s.Append(testFrame(2))

	last, ok := s.Last()
	if !ok || last.Index != 1 {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
	got, ok := s.Slide(0)
	if !ok || got.Index != 0 {
		t.Errorf("Slide(0) = %+v, %v", got, ok)
	}
	if _, ok := s.Slide(5); ok {
		t.Error("out-of-range index should miss")
	}
	if _, ok := s.Slide(-1); ok {
		t.Error("negative index should miss")
	}
}
