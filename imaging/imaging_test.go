package imaging

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SiriEielsen/diffusion/tensor"
)

func TestImageRoundTrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x * 60),
				G: uint8(y * 80),
				B: uint8(x*y*20 + 5),
				A: 255,
			})
		}
	}

	ten := FromImage(img)
	require.Equal(t, []int{1, 3, 3, 4}, ten.Shape)

	back, err := ToRGBA(ten)
	require.NoError(t, err)
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			assert.Equal(t, img.RGBAAt(x, y), back.RGBAAt(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestToRGBAClamps(t *testing.T) {
	ten := tensor.New(1, 3, 1, 1)
	ten.Data[0] = 5  // red far above range
	ten.Data[1] = -5 // green far below
	ten.Data[2] = 0  // blue mid-gray

	rgba, err := ToRGBA(ten)
	require.NoError(t, err)
	px := rgba.RGBAAt(0, 0)
	assert.Equal(t, uint8(255), px.R)
	assert.Equal(t, uint8(0), px.G)
	assert.Equal(t, uint8(128), px.B)
}

func TestToRGBAShape(t *testing.T) {
	_, err := ToRGBA(tensor.New(3, 4, 4))
	require.Error(t, err)
	_, err = ToRGBA(tensor.New(1, 1, 4, 4))
	require.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	ten := tensor.New(1, 3, 2, 2)
	for i := range ten.Data {
		ten.Data[i] = float32(i)/6 - 1
	}

	path := filepath.Join(t.TempDir(), "roundtrip.png")
	require.NoError(t, Save(ten, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ten.Shape, loaded.Shape)
	for i := range ten.Data {
		// 8-bit quantization tolerance
		assert.InDelta(t, ten.Data[i], loaded.Data[i], 1.0/127)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.png"))
	require.Error(t, err)
}
