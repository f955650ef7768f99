package models

import "fmt"

// FrameKind names one output of the processing engine and the panel it is painted on
type FrameKind int

const (
	FrameInput FrameKind = iota
	FrameAttention
	FrameEdges
	FrameSegments
	FrameRectangles
	FrameClasses
	FrameModuleMap
)

// FrameKinds lists every kind in panel order
var FrameKinds = []FrameKind{
	FrameInput,
	FrameAttention,
	FrameEdges,
	FrameSegments,
	FrameRectangles,
	FrameClasses,
	FrameModuleMap,
}

func (k FrameKind) String() string {
	switch k {
	case FrameInput:
		return "input"
	case FrameAttention:
		return "attention"
	case FrameEdges:
		return "edges"
	case FrameSegments:
		return "segments"
	case FrameRectangles:
		return "rectangles"
	case FrameClasses:
		return "classes"
	case FrameModuleMap:
		return "module_map"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Caption is the placeholder text shown on an empty panel
func (k FrameKind) Caption() string {
	switch k {
	case FrameInput:
		return "Input Image"
	case FrameAttention:
		return "Attention Image"
	case FrameEdges:
		return "Edges Image"
	case FrameSegments:
		return "Segment Image"
	case FrameRectangles:
		return "Rectangle Image"
	case FrameClasses:
		return "Class Image"
	case FrameModuleMap:
		return "Module Map"
	default:
		return k.String()
	}
}

// Channels is the channel count the engine emits for this kind.
// Edge maps are single-channel gray, everything else is 3-channel BGR.
func (k FrameKind) Channels() int {
	if k == FrameEdges {
		return 1
	}
	return 3
}

// NativeSize reports whether the panel takes the buffer's size instead of scaling it
func (k FrameKind) NativeSize() bool {
	return k == FrameClasses
}

// Frame is an interleaved, row-major 8-bit pixel buffer
type Frame struct {
	Width    int
	Height   int
	Channels int
	Pix      []byte
}

// NewFrame allocates a zeroed frame
func NewFrame(width, height, channels int) Frame {
	return Frame{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]byte, width*height*channels),
	}
}

// Stride is the byte length of one row
func (f Frame) Stride() int {
	return f.Width * f.Channels
}

// Validate checks that the buffer length matches the declared shape
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: invalid dimensions %dx%d", ErrMalformedFrame, f.Width, f.Height)
	}
	if f.Channels != 1 && f.Channels != 3 {
		return fmt.Errorf("%w: unsupported channel count %d", ErrMalformedFrame, f.Channels)
	}
	if want := f.Width * f.Height * f.Channels; len(f.Pix) != want {
		return fmt.Errorf("%w: buffer length %d, want %d", ErrMalformedFrame, len(f.Pix), want)
	}
	return nil
}

// Clone returns a frame with its own pixel storage
func (f Frame) Clone() Frame {
	out := f
	out.Pix = append([]byte(nil), f.Pix...)
	return out
}
