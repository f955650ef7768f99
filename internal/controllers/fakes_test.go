package controllers

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"thermo-gui/internal/models"
	"thermo-gui/internal/pipeline"
)

type fakeView struct {
	mu          sync.Mutex
	title       string
	progressMax int
	progress    []int
	enabled     map[models.Control]bool
	values      map[models.Control][]float64
	painted     map[models.FrameKind]image.Image
	paints      int
	captions    map[models.FrameKind]string
	sizes       map[models.FrameKind]image.Point
	scaling     string
}

func newFakeView() *fakeView {
	return &fakeView{
		enabled:  make(map[models.Control]bool),
		values:   make(map[models.Control][]float64),
		painted:  make(map[models.FrameKind]image.Image),
		captions: make(map[models.FrameKind]string),
		sizes:    make(map[models.FrameKind]image.Point),
	}
}

func (v *fakeView) SetControlValue(c models.Control, value float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.values[c] = append(v.values[c], value)
}

func (v *fakeView) SetControlEnabled(c models.Control, enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.enabled[c] = enabled
}

func (v *fakeView) SetTitle(title string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.title = title
}

func (v *fakeView) SetProgressRange(upper int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.progressMax = upper
}

func (v *fakeView) SetProgress(value int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.progress = append(v.progress, value)
}

func (v *fakeView) SetScalingLabel(label string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scaling = label
}

func (v *fakeView) PaintPanel(kind models.FrameKind, img image.Image) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.painted[kind] = img
	delete(v.captions, kind)
	v.paints++
}

func (v *fakeView) ResizePanel(kind models.FrameKind, width, height int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sizes[kind] = image.Pt(width, height)
}

func (v *fakeView) PanelSize(kind models.FrameKind) (int, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if size, ok := v.sizes[kind]; ok {
		return size.X, size.Y
	}
	return 40, 40
}

func (v *fakeView) ClearPanel(kind models.FrameKind, caption string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.painted, kind)
	v.captions[kind] = caption
}

func (v *fakeView) isEnabled(c models.Control) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.enabled[c]
}

func (v *fakeView) lastValue(c models.Control) (float64, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	vals := v.values[c]
	if len(vals) == 0 {
		return 0, false
	}
	return vals[len(vals)-1], true
}

func (v *fakeView) progressValues() []int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]int(nil), v.progress...)
}

func (v *fakeView) paintCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.paints
}

func (v *fakeView) image(kind models.FrameKind) image.Image {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.painted[kind]
}

func (v *fakeView) snapshot() (title string, progressMax int, captions map[models.FrameKind]string, painted int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	captions = make(map[models.FrameKind]string, len(v.captions))
	for k, c := range v.captions {
		captions[k] = c
	}
	return v.title, v.progressMax, captions, len(v.painted)
}

type frameSource struct {
	mu     sync.Mutex
	frames int
	pos    int
	live   bool
	closed bool
}

func (s *frameSource) Next() (models.Frame, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live && s.pos >= s.frames {
		return models.Frame{}, false, nil
	}
	s.pos++
	return models.NewFrame(8, 4, 3), true, nil
}

func (s *frameSource) Len() int {
	if s.live {
		return models.UnboundedFrame
	}
	return s.frames
}

func (s *frameSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// openerOf opens a fresh source of n frames on every call, live for webcams
func openerOf(n int) pipeline.SourceOpener {
	return pipeline.SourceOpenerFunc(func(src models.Source) (pipeline.FrameSource, error) {
		return &frameSource{frames: n, live: src.Kind == models.SourceWebcam}, nil
	})
}

func passthrough() pipeline.Engine {
	return pipeline.EngineFunc(func(_ context.Context, in models.Frame, _ models.Parameters) ([]pipeline.Output, error) {
		return []pipeline.Output{
			{Kind: models.FrameInput, Frame: in},
			{Kind: models.FrameEdges, Frame: models.NewFrame(in.Width, in.Height, 1)},
		}, nil
	})
}

// gate blocks every frame until released or cancelled
type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}, 64), release: make(chan struct{})}
}

func (g *gate) Process(ctx context.Context, in models.Frame, _ models.Parameters) ([]pipeline.Output, error) {
	g.entered <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return []pipeline.Output{{Kind: models.FrameInput, Frame: in}}, nil
}

// failingOpener fails the calls listed in failOn (1-based) and opens n-frame sources otherwise
func failingOpener(n int, failOn ...int) pipeline.SourceOpener {
	var calls atomic.Int32
	return pipeline.SourceOpenerFunc(func(src models.Source) (pipeline.FrameSource, error) {
		call := int(calls.Add(1))
		for _, f := range failOn {
			if call == f {
				return nil, errors.New("device busy")
			}
		}
		return &frameSource{frames: n}, nil
	})
}

// stubbornEngine ignores cancellation and holds each frame for delay
type stubbornEngine struct {
	delay   time.Duration
	entered chan struct{}
	busy    atomic.Int32
}

func newStubbornEngine(delay time.Duration) *stubbornEngine {
	return &stubbornEngine{delay: delay, entered: make(chan struct{}, 64)}
}

func (e *stubbornEngine) Process(_ context.Context, in models.Frame, _ models.Parameters) ([]pipeline.Output, error) {
	e.busy.Add(1)
	defer e.busy.Add(-1)
	e.entered <- struct{}{}
	time.Sleep(e.delay)
	return []pipeline.Output{{Kind: models.FrameInput, Frame: in}}, nil
}
