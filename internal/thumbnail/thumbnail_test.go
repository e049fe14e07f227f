package thumbnail

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestPNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 100, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestGenerateDownsizesLargeImage(t *testing.T) {
	root := t.TempDir()
	mainImage := filepath.Join(root, "main_image")
	thumb := filepath.Join(root, "thumbnail")
	writeTestPNG(t, mainImage, "a_large.png", 512, 300)

	dest, err := Generate(mainImage, thumb)
	require.NoError(t, err)
	require.NotEmpty(t, dest)

	f, err := os.Open(dest)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	assert.LessOrEqual(t, cfg.Width, MaxDimension)
	assert.LessOrEqual(t, cfg.Height, MaxDimension)
}

func TestGenerateReturnsEmptyWhenNoImage(t *testing.T) {
	root := t.TempDir()
	mainImage := filepath.Join(root, "main_image")
	thumb := filepath.Join(root, "thumbnail")
	require.NoError(t, os.MkdirAll(mainImage, 0o755))

	dest, err := Generate(mainImage, thumb)
	require.NoError(t, err)
	assert.Empty(t, dest)
}

func TestGeneratePicksFirstLexicographically(t *testing.T) {
	root := t.TempDir()
	mainImage := filepath.Join(root, "main_image")
	thumb := filepath.Join(root, "thumbnail")
	writeTestPNG(t, mainImage, "b.png", 64, 64)
	writeTestPNG(t, mainImage, "a.png", 64, 64)

	dest, err := Generate(mainImage, thumb)
	require.NoError(t, err)
	assert.Contains(t, dest, "a.jpg")
}
