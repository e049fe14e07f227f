// =============================================================================
// rdeconv - Thumbnail Generator Module
// =============================================================================
//
// Generate reads the first image under a tile's main_image directory (by
// the same deterministic lexicographic sort used everywhere else in this
// module) and writes a downsized JPEG into the tile's thumbnail
// directory. No third-party image-resize library appears anywhere in the
// example corpus, so the resize step is a small local box-sampling
// implementation on top of stdlib image/draw - see DESIGN.md.
//
// =============================================================================

package thumbnail

import (
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png" // registers the PNG decoder
	"os"
	"path/filepath"
	"sort"

	"github.com/ginjaninja78/rdeconv/internal/rdeerr"
)

// MaxDimension bounds the generated thumbnail's longer edge, in pixels.
const MaxDimension = 256

// Generate picks the first image in mainImageDir and writes its thumbnail
// to thumbnailDir/<name>. Returns "" with a nil error when mainImageDir
// holds no recognizable image.
func Generate(mainImageDir, thumbnailDir string) (string, error) {
	source, err := firstImage(mainImageDir)
	if err != nil {
		return "", err
	}
	if source == "" {
		return "", nil
	}

	img, err := decode(source)
	if err != nil {
		return "", &rdeerr.IOError{Path: source, Op: "decode image", Err: err}
	}

	thumb := boxResize(img, MaxDimension)

	if err := os.MkdirAll(thumbnailDir, 0o755); err != nil {
		return "", &rdeerr.IOError{Path: thumbnailDir, Op: "create thumbnail dir", Err: err}
	}

	destName := fileNameWithoutExt(source) + ".jpg"
	destPath := filepath.Join(thumbnailDir, destName)
	if err := encodeJPEG(destPath, thumb); err != nil {
		return "", &rdeerr.IOError{Path: destPath, Op: "write thumbnail", Err: err}
	}
	return destPath, nil
}

func firstImage(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", &rdeerr.IOError{Path: dir, Op: "list main_image", Err: err}
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && isImageExt(filepath.Ext(e.Name())) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names)
	return filepath.Join(dir, names[0]), nil
}

func isImageExt(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".JPG", ".JPEG", ".png", ".PNG":
		return true
	default:
		return false
	}
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

func encodeJPEG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return jpeg.Encode(f, img, &jpeg.Options{Quality: 85})
}

func fileNameWithoutExt(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

// boxResize downsizes src so its longer edge is maxDim, averaging each
// destination pixel over the source box it covers. src is returned
// unchanged when already within bounds.
func boxResize(src image.Image, maxDim int) image.Image {
	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW <= maxDim && srcH <= maxDim {
		return src
	}

	scale := float64(maxDim) / float64(srcW)
	if srcH > srcW {
		scale = float64(maxDim) / float64(srcH)
	}
	dstW := max(1, int(float64(srcW)*scale))
	dstH := max(1, int(float64(srcH)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	for dy := 0; dy < dstH; dy++ {
		for dx := 0; dx < dstW; dx++ {
			dst.Set(dx, dy, averageBox(src, bounds, srcW, srcH, dstW, dstH, dx, dy))
		}
	}
	return dst
}

func averageBox(src image.Image, bounds image.Rectangle, srcW, srcH, dstW, dstH, dx, dy int) color.Color {
	x0 := bounds.Min.X + dx*srcW/dstW
	x1 := bounds.Min.X + (dx+1)*srcW/dstW
	y0 := bounds.Min.Y + dy*srcH/dstH
	y1 := bounds.Min.Y + (dy+1)*srcH/dstH
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}

	var rSum, gSum, bSum, aSum, count uint64
	for y := y0; y < y1 && y < bounds.Max.Y; y++ {
		for x := x0; x < x1 && x < bounds.Max.X; x++ {
			r, g, b, a := src.At(x, y).RGBA()
			rSum += uint64(r)
			gSum += uint64(g)
			bSum += uint64(b)
			aSum += uint64(a)
			count++
		}
	}
	if count == 0 {
		return color.White
	}
	return rgba64{
		r: uint16(rSum / count),
		g: uint16(gSum / count),
		b: uint16(bSum / count),
		a: uint16(aSum / count),
	}
}

// rgba64 implements color.Color over the already 16-bit-scaled channel
// averages produced by averageBox.
type rgba64 struct{ r, g, b, a uint16 }

func (c rgba64) RGBA() (r, g, b, a uint32) {
	return uint32(c.r), uint32(c.g), uint32(c.b), uint32(c.a)
}
