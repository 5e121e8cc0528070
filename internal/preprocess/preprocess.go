package preprocess

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "github.com/gen2brain/avif"
	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
)

// ErrDecode reports that the uploaded bytes are not a decodable image. It is
// a client-input failure, not a server one.
var ErrDecode = errors.New("image could not be decoded")

// Tensor is a planar channel-first (CHW) float32 image tensor: all red
// samples, then all green, then all blue, each scaled to [0, 1].
type Tensor struct {
	Data   []float32
	Width  int
	Height int
}

// Shape returns the NCHW dimensions of the tensor.
func (t *Tensor) Shape() []int64 {
	return []int64{1, 3, int64(t.Height), int64(t.Width)}
}

// Preprocess decodes imageBytes and converts it into a model-ready tensor of
// exactly targetWidth x targetHeight. The image is resized with a cover fit:
// scaled to fill the target box and center-cropped, never letterboxed. Alpha
// is discarded.
func Preprocess(imageBytes []byte, targetWidth, targetHeight int) (*Tensor, error) {
	if len(imageBytes) == 0 {
		return nil, ErrDecode
	}

	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	filled := imaging.Fill(img, targetWidth, targetHeight, imaging.Center, imaging.Lanczos)

	pixels := targetWidth * targetHeight
	data := make([]float32, 3*pixels)
	rBase := 0
	gBase := pixels
	bBase := 2 * pixels

	// Read non-premultiplied samples: alpha is dropped, the stored RGB
	// stays untouched even for transparent pixels.
	for y := 0; y < targetHeight; y++ {
		for x := 0; x < targetWidth; x++ {
			pixel := filled.NRGBAAt(x, y)
			data[rBase] = float32(pixel.R) / 255.0
			data[gBase] = float32(pixel.G) / 255.0
			data[bBase] = float32(pixel.B) / 255.0
			rBase++
			gBase++
			bBase++
		}
	}

	return &Tensor{Data: data, Width: targetWidth, Height: targetHeight}, nil
}
