package loaders

import (
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"io"
	"math"
	"os"

	_ "golang.org/x/image/bmp"  // BMP decoder
	_ "golang.org/x/image/tiff" // TIFF decoder

	"github.com/df07/go-light-transport/pkg/core"
)

// ImageData is a decoded image as linear RGB in row-major order, top row first
type ImageData struct {
	Width  int
	Height int
	Pixels []core.Vec3
}

// LoadImage loads a PNG, JPEG, BMP or TIFF file. With srgb set, 8-bit style
// encoded values are converted to linear radiance.
func LoadImage(filename string, srgb bool) (*ImageData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("loaders: open image: %w", err)
	}
	defer file.Close()

	data, err := DecodeImage(file, srgb)
	if err != nil {
		return nil, fmt.Errorf("loaders: %s: %w", filename, err)
	}
	return data, nil
}

// DecodeImage decodes any registered image format from r
func DecodeImage(r io.Reader, srgb bool) (*ImageData, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	pixels := make([]core.Vec3, width*height)
	decode := func(c uint32) float64 {
		v := float64(c) / 65535.0
		if srgb {
			return srgbToLinear(v)
		}
		return v
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			pixels[y*width+x] = core.NewVec3(decode(r), decode(g), decode(b))
		}
	}

	logger.Debugf("decoded %s image %dx%d", format, width, height)
	return &ImageData{Width: width, Height: height, Pixels: pixels}, nil
}

func srgbToLinear(v float64) float64 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}
