package assets

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
)

func writeImage(t *testing.T, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	switch filepath.Ext(name) {
	case ".png":
		err = png.Encode(f, img)
	case ".bmp":
		err = bmp.Encode(f, img)
	}
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func solid(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestLoadImage(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	for _, name := range []string{"texture.png", "texture.bmp"} {
		t.Run(name, func(t *testing.T) {
			path := writeImage(t, name, solid(4, 2, red))
			img, err := LoadImage(path, 0)
			if err != nil {
				t.Fatalf("LoadImage: %v", err)
			}
			if img.Width != 4 || img.Height != 2 {
				t.Fatalf("size = %dx%d, want 4x2", img.Width, img.Height)
			}
			if len(img.Pixels) != 4*2*4 {
				t.Fatalf("%d pixel bytes, want %d", len(img.Pixels), 4*2*4)
			}
			for i := 0; i < len(img.Pixels); i += 4 {
				if img.Pixels[i] != 255 || img.Pixels[i+1] != 0 || img.Pixels[i+3] != 255 {
					t.Fatalf("pixel %d = %v, want opaque red", i/4, img.Pixels[i:i+4])
				}
			}
		})
	}
}

func TestLoadImageDownscales(t *testing.T) {
	path := writeImage(t, "large.png", solid(64, 32, color.RGBA{G: 255, A: 255}))
	img, err := LoadImage(path, 16)
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if img.Width != 16 || img.Height != 8 {
		t.Errorf("size = %dx%d, want 16x8", img.Width, img.Height)
	}
	if len(img.Pixels) != 16*8*4 {
		t.Errorf("%d pixel bytes for a 16x8 image", len(img.Pixels))
	}
}

func TestLoadImageErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadImage(filepath.Join(dir, "missing.png"), 0); err == nil {
		t.Error("expected an error for a missing file")
	}
	garbage := filepath.Join(dir, "garbage.png")
	if err := os.WriteFile(garbage, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadImage(garbage, 0); err == nil {
		t.Error("expected an error for undecodable data")
	}
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		width, height, limit uint32
		wantW, wantH         uint32
	}{
		{100, 50, 0, 100, 50},
		{100, 50, 200, 100, 50},
		{100, 50, 100, 100, 50},
		{200, 100, 100, 100, 50},
		{100, 400, 100, 25, 100},
		{1000, 1, 10, 10, 1},
	}
	for _, tt := range tests {
		w, h := fitWithin(tt.width, tt.height, tt.limit)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("fitWithin(%d, %d, %d) = %d, %d, want %d, %d", tt.width, tt.height, tt.limit, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestCheckerboard(t *testing.T) {
	img := Checkerboard(8, 2)
	if img.Width != 8 || img.Height != 8 || len(img.Pixels) != 8*8*4 {
		t.Fatalf("checkerboard is %dx%d with %d bytes", img.Width, img.Height, len(img.Pixels))
	}
	at := func(x, y int) []byte {
		offset := (y*8 + x) * 4
		return img.Pixels[offset : offset+4]
	}
	if string(at(0, 0)) != string(at(7, 7)) {
		t.Error("diagonal cells differ")
	}
	if string(at(0, 0)) == string(at(4, 0)) {
		t.Error("neighbouring cells match")
	}
}
