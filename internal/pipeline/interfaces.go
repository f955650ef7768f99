package pipeline

import (
	"context"

	"thermo-gui/internal/models"
)

// Output is one named result the engine produced for a frame
type Output struct {
	Kind  models.FrameKind
	Frame models.Frame
}

// Engine runs the thermography stages over one input frame. Implementations must
// return buffers the caller may keep; params is a private snapshot.
type Engine interface {
	Process(ctx context.Context, input models.Frame, params models.Parameters) ([]Output, error)
}

// FrameSource yields input frames in order
type FrameSource interface {
	// Next returns the next frame, or ok == false when the source is exhausted
	Next() (frame models.Frame, ok bool, err error)
	// Len is the number of frames the source will yield, or -1 for live capture
	Len() int
	Close() error
}

// SourceOpener binds a source descriptor to a readable FrameSource
type SourceOpener interface {
	Open(src models.Source) (FrameSource, error)
}

// SourceOpenerFunc adapts a function to SourceOpener
type SourceOpenerFunc func(src models.Source) (FrameSource, error)

func (f SourceOpenerFunc) Open(src models.Source) (FrameSource, error) { return f(src) }

// EngineFunc adapts a function to Engine
type EngineFunc func(ctx context.Context, input models.Frame, params models.Parameters) ([]Output, error)

func (f EngineFunc) Process(ctx context.Context, input models.Frame, params models.Parameters) ([]Output, error) {
	return f(ctx, input, params)
}
