package ocr

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Adaptive threshold parameters that keep diacritics intact on scanned pages.
const (
	DefaultBlockSize = 15
	DefaultOffset    = 8.0
)

// EnhanceOptions controls pre-processing of a page before recognition.
type EnhanceOptions struct {
	// Contrast is a PIL-style enhancement factor; 1.0 leaves the image unchanged.
	Contrast float64
	// Binarize switches to adaptive Gaussian thresholding instead of contrast.
	Binarize  bool
	BlockSize int
	Offset    float64
}

// Enhance converts img to grayscale and then either binarizes it or stretches
// its contrast.
func Enhance(img image.Image, opts EnhanceOptions) *image.Gray {
	gray := Grayscale(img)
	if opts.Binarize {
		block := opts.BlockSize
		if block <= 0 {
			block = DefaultBlockSize
		}
		offset := opts.Offset
		if offset == 0 {
			offset = DefaultOffset
		}
		return AdaptiveThreshold(gray, block, offset)
	}
	if opts.Contrast > 0 && opts.Contrast != 1 {
		return AdjustContrast(gray, opts.Contrast)
	}
	return gray
}

// Grayscale returns img as *image.Gray, converting other color models.
func Grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// AdjustContrast blends every pixel with the image's mean luminance:
// out = mean + factor*(in-mean).
func AdjustContrast(src *image.Gray, factor float64) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	if b.Empty() {
		return dst
	}

	var sum float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := src.Pix[(y-b.Min.Y)*src.Stride:]
		for x := 0; x < b.Dx(); x++ {
			sum += float64(row[x])
		}
	}
	mean := math.Floor(sum/float64(b.Dx()*b.Dy()) + 0.5)

	var lut [256]uint8
	for i := range lut {
		lut[i] = clamp8(mean + factor*(float64(i)-mean))
	}
	for y := 0; y < b.Dy(); y++ {
		s := src.Pix[y*src.Stride : y*src.Stride+b.Dx()]
		d := dst.Pix[y*dst.Stride : y*dst.Stride+b.Dx()]
		for x, v := range s {
			d[x] = lut[v]
		}
	}
	return dst
}

// AdaptiveThreshold sets a pixel white when it is brighter than the
// Gaussian-weighted mean of its block x block neighbourhood minus offset,
// black otherwise. Borders replicate edge pixels.
func AdaptiveThreshold(src *image.Gray, block int, offset float64) *image.Gray {
	if block%2 == 0 {
		block++
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(b)
	if w == 0 || h == 0 {
		return dst
	}

	kernel := gaussianKernel(block)
	radius := block / 2

	// Horizontal pass into tmp, vertical pass into mean.
	tmp := make([]float32, w*h)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < w; x++ {
			var acc float32
			for k := -radius; k <= radius; k++ {
				acc += kernel[k+radius] * float32(row[clampInt(x+k, 0, w-1)])
			}
			tmp[y*w+x] = acc
		}
	}
	for y := 0; y < h; y++ {
		s := src.Pix[y*src.Stride:]
		d := dst.Pix[y*dst.Stride:]
		for x := 0; x < w; x++ {
			var mean float32
			for k := -radius; k <= radius; k++ {
				mean += kernel[k+radius] * tmp[clampInt(y+k, 0, h-1)*w+x]
			}
			if float64(s[x]) > float64(mean)-offset {
				d[x] = 255
			} else {
				d[x] = 0
			}
		}
	}
	return dst
}

// FitWidth downscales img so it is at most maxWidth pixels wide. Smaller
// images are returned unchanged.
func FitWidth(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}
	h := int(math.Round(float64(b.Dy()) * float64(maxWidth) / float64(b.Dx())))
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// gaussianKernel uses the sigma OpenCV derives from the kernel size.
func gaussianKernel(size int) []float32 {
	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	radius := size / 2
	k := make([]float32, size)
	var sum float64
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		k[i+radius] = float32(v)
		sum += v
	}
	for i := range k {
		k[i] = float32(float64(k[i]) / sum)
	}
	return k
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
