package assets

import (
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/nou/engine/core"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Image holds tightly packed RGBA8 pixels, row by row from the top.
type Image struct {
	Width  uint32
	Height uint32
	Pixels []byte
}

// LoadImage decodes the file at path into RGBA8. Images with a side larger
// than maxDimension are scaled down to fit, keeping the aspect ratio. A zero
// maxDimension disables the limit.
func LoadImage(path string, maxDimension uint32) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open image %s", path)
	}
	defer f.Close()

	src, format, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode image %s", path)
	}
	core.LogDebug("Decoded %s image %s (%dx%d)", format, path, src.Bounds().Dx(), src.Bounds().Dy())

	return toRGBA(src, maxDimension), nil
}

func toRGBA(src image.Image, maxDimension uint32) *Image {
	bounds := src.Bounds()
	width, height := fitWithin(uint32(bounds.Dx()), uint32(bounds.Dy()), maxDimension)

	dst := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	if int(width) == bounds.Dx() && int(height) == bounds.Dy() {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	} else {
		core.LogInfo("Scaling image from %dx%d to %dx%d", bounds.Dx(), bounds.Dy(), width, height)
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
	}
	return &Image{Width: width, Height: height, Pixels: dst.Pix}
}

// fitWithin scales (width, height) so the longest side is at most limit.
func fitWithin(width, height, limit uint32) (uint32, uint32) {
	longest := max(width, height)
	if limit == 0 || longest <= limit {
		return width, height
	}
	scaled := func(side uint32) uint32 {
		return max(1, uint32(uint64(side)*uint64(limit)/uint64(longest)))
	}
	return scaled(width), scaled(height)
}

// Checkerboard generates a size x size texture of alternating cells, used
// when no texture file is available.
func Checkerboard(size, cells uint32) *Image {
	if cells == 0 {
		cells = 1
	}
	light := color.RGBA{R: 230, G: 230, B: 230, A: 255}
	dark := color.RGBA{R: 200, G: 40, B: 160, A: 255}

	img := image.NewRGBA(image.Rect(0, 0, int(size), int(size)))
	cell := max(1, size/cells)
	for y := uint32(0); y < size; y++ {
		for x := uint32(0); x < size; x++ {
			c := light
			if (x/cell+y/cell)%2 == 1 {
				c = dark
			}
			img.SetRGBA(int(x), int(y), c)
		}
	}
	return &Image{Width: size, Height: size, Pixels: img.Pix}
}

// White is a single opaque white pixel. Sampling it leaves vertex colors unchanged.
func White() *Image {
	return &Image{Width: 1, Height: 1, Pixels: []byte{255, 255, 255, 255}}
}
