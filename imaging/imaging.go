// Package imaging converts between PNG images and [1,3,H,W] float32 tensors
// with channel values scaled to [-1, 1].
package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/SiriEielsen/diffusion/tensor"
)

// Load reads a PNG into a [1,3,H,W] tensor, mapping 8-bit channels to [-1,1].
func Load(path string) (*tensor.Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return FromImage(img), nil
}

// Save clamps a [1,3,H,W] tensor back to 8-bit and writes it as PNG.
func Save(t *tensor.Tensor, path string) error {
	rgba, err := ToRGBA(t)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, rgba)
}

// FromImage converts any image to a [1,3,H,W] tensor in [-1,1].
func FromImage(img image.Image) *tensor.Tensor {
	bounds := img.Bounds()
	W := bounds.Dx()
	H := bounds.Dy()
	t := tensor.New(1, 3, H, W)

	for y := 0; y < H; y++ {
		for x := 0; x < W; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			t.Data[0*H*W+y*W+x] = float32(r)/32767.5 - 1
			t.Data[1*H*W+y*W+x] = float32(g)/32767.5 - 1
			t.Data[2*H*W+y*W+x] = float32(b)/32767.5 - 1
		}
	}
	return t
}

// ToRGBA converts a [1,3,H,W] float32 tensor to image.RGBA
func ToRGBA(t *tensor.Tensor) (*image.RGBA, error) {
	if len(t.Shape) != 4 || t.Shape[0] != 1 || t.Shape[1] != 3 {
		return nil, fmt.Errorf("imaging: expected [1,3,H,W] tensor, got %v", t.Shape)
	}
	H := t.Shape[2]
	W := t.Shape[3]
	rgba := image.NewRGBA(image.Rect(0, 0, W, H))

	for y := 0; y < H; y++ {
		for x := 0; x < W; x++ {
			r := t.Data[0*H*W+y*W+x]
			g := t.Data[1*H*W+y*W+x]
			b := t.Data[2*H*W+y*W+x]
			rgba.SetRGBA(x, y, color.RGBA{
				R: clampByte((r + 1) / 2),
				G: clampByte((g + 1) / 2),
				B: clampByte((b + 1) / 2),
				A: 255,
			})
		}
	}
	return rgba, nil
}

// clampByte maps [0,1] to [0,255], rounding to nearest and clamping
// out-of-range values.
func clampByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
