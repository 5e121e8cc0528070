package preprocess

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestPreprocessUpscalesSmallImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}

	tensor, err := Preprocess(encodePNG(t, img), 256, 256)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(tensor.Data) != 3*256*256 {
		t.Fatalf("expected %d values, got %d", 3*256*256, len(tensor.Data))
	}
	for i, v := range tensor.Data {
		if v < 0 || v > 1 {
			t.Fatalf("value at %d out of range: %f", i, v)
		}
	}
}

func TestPreprocessCoverFitCropsWideImage(t *testing.T) {
	// Left half red, right half blue. A cover fit to a square keeps the
	// center of the wide image, so both halves must survive the crop.
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			if x < 100 {
				img.Set(x, y, color.RGBA{R: 255, A: 255})
			} else {
				img.Set(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}

	tensor, err := Preprocess(encodePNG(t, img), 64, 64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pixels := 64 * 64
	left := tensor.Data[0]                // red channel, first row, left edge
	rightBlue := tensor.Data[2*pixels+63] // blue channel, first row, right edge
	if left < 0.9 {
		t.Fatalf("expected red on left side after crop, got %f", left)
	}
	if rightBlue < 0.9 {
		t.Fatalf("expected blue on right side after crop, got %f", rightBlue)
	}
}

func TestPreprocessPlanarLayout(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}

	tensor, err := Preprocess(encodePNG(t, img), 4, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 16; i++ {
		if tensor.Data[i] < 0.99 {
			t.Fatalf("red plane value %d too low: %f", i, tensor.Data[i])
		}
	}
	for i := 16; i < 48; i++ {
		if tensor.Data[i] > 0.01 {
			t.Fatalf("green/blue plane value %d too high: %f", i, tensor.Data[i])
		}
	}
}

func TestPreprocessDiscardsAlpha(t *testing.T) {
	// Fully transparent pixels must keep their stored RGB; premultiplying
	// by alpha would collapse them to black.
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 0})
		}
	}

	tensor, err := Preprocess(encodePNG(t, img), 8, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tensor.Data) != 3*8*8 {
		t.Fatalf("expected 3 channels, got %d values", len(tensor.Data))
	}

	pixels := 8 * 8
	wantR := float32(200) / 255
	wantG := float32(100) / 255
	wantB := float32(50) / 255
	if diff := tensor.Data[0] - wantR; diff < -0.01 || diff > 0.01 {
		t.Fatalf("red channel %f, expected ~%f", tensor.Data[0], wantR)
	}
	if diff := tensor.Data[pixels] - wantG; diff < -0.01 || diff > 0.01 {
		t.Fatalf("green channel %f, expected ~%f", tensor.Data[pixels], wantG)
	}
	if diff := tensor.Data[2*pixels] - wantB; diff < -0.01 || diff > 0.01 {
		t.Fatalf("blue channel %f, expected ~%f", tensor.Data[2*pixels], wantB)
	}
}

func TestPreprocessRejectsGarbage(t *testing.T) {
	if _, err := Preprocess([]byte("not an image"), 256, 256); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestPreprocessRejectsEmptyBuffer(t *testing.T) {
	if _, err := Preprocess(nil, 256, 256); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}
