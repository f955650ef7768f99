package conversion

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"thermo-gui/internal/models"
)

// ToDisplay turns an engine frame into an RGBA image. Edge maps are single-channel
// gray and get replicated into R, G and B; every other kind is BGR and gets swapped.
func ToDisplay(kind models.FrameKind, frame models.Frame) (*image.RGBA, error) {
	if err := frame.Validate(); err != nil {
		return nil, fmt.Errorf("%s frame: %w", kind, err)
	}
	if want := kind.Channels(); frame.Channels != want {
		return nil, fmt.Errorf("%w: %s frame has %d channels, want %d",
			models.ErrMalformedFrame, kind, frame.Channels, want)
	}

	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	switch frame.Channels {
	case 1:
		grayToRGBA(frame, img)
	case 3:
		bgrToRGBA(frame, img)
	default:
		return nil, fmt.Errorf("%w: unsupported channel count %d", models.ErrMalformedFrame, frame.Channels)
	}
	return img, nil
}

func grayToRGBA(frame models.Frame, dst *image.RGBA) {
	for y := 0; y < frame.Height; y++ {
		src := frame.Pix[y*frame.Stride():]
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < frame.Width; x++ {
			v := src[x]
			o := 4 * x
			row[o], row[o+1], row[o+2], row[o+3] = v, v, v, 0xff
		}
	}
}

func bgrToRGBA(frame models.Frame, dst *image.RGBA) {
	for y := 0; y < frame.Height; y++ {
		src := frame.Pix[y*frame.Stride():]
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < frame.Width; x++ {
			i, o := 3*x, 4*x
			row[o], row[o+1], row[o+2], row[o+3] = src[i+2], src[i+1], src[i], 0xff
		}
	}
}

// FitToPanel scales img to the largest size that fits inside w x h while keeping its
// aspect ratio. Images smaller than the panel are enlarged.
func FitToPanel(img image.Image, w, h int) image.Image {
	if img == nil || w <= 0 || h <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return img
	}

	width, height := fitSize(b.Dx(), b.Dy(), w, h)
	if width == b.Dx() && height == b.Dy() {
		return img
	}
	return imaging.Resize(img, width, height, imaging.Lanczos)
}

// fitSize computes the aspect-preserving size of srcW x srcH inside maxW x maxH
func fitSize(srcW, srcH, maxW, maxH int) (int, int) {
	srcAspect := float64(srcW) / float64(srcH)
	maxAspect := float64(maxW) / float64(maxH)

	var w, h int
	if srcAspect > maxAspect {
		w = maxW
		h = int(float64(maxW)/srcAspect + 0.5)
	} else {
		h = maxH
		w = int(float64(maxH)*srcAspect + 0.5)
	}
	return max(w, 1), max(h, 1)
}
