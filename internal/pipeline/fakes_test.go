package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"thermo-gui/internal/models"
)

type sliceSource struct {
	frames []models.Frame
	pos    int
	live   bool
	closed atomic.Bool
	err    error
	errAt  int
}

func newSliceSource(n int) *sliceSource {
	frames := make([]models.Frame, n)
	for i := range frames {
		f := models.NewFrame(2, 2, 3)
		f.Pix[0] = byte(i)
		frames[i] = f
	}
	return &sliceSource{frames: frames, errAt: -1}
}

func (s *sliceSource) Next() (models.Frame, bool, error) {
	if s.err != nil && s.pos == s.errAt {
		return models.Frame{}, false, s.err
	}
	if s.pos >= len(s.frames) {
		return models.Frame{}, false, nil
	}
	f := s.frames[s.pos]
	s.pos++
	return f, true, nil
}

func (s *sliceSource) Len() int {
	if s.live {
		return -1
	}
	return len(s.frames)
}

func (s *sliceSource) Close() error {
	s.closed.Store(true)
	return nil
}

func openerFor(src FrameSource) SourceOpener {
	return SourceOpenerFunc(func(models.Source) (FrameSource, error) { return src, nil })
}

var errOpen = errors.New("device busy")

func failingOpener() SourceOpener {
	return SourceOpenerFunc(func(models.Source) (FrameSource, error) { return nil, errOpen })
}

// passthrough emits the input frame and a gray edge map of the same size
func passthrough() Engine {
	return EngineFunc(func(_ context.Context, in models.Frame, _ models.Parameters) ([]Output, error) {
		return []Output{
			{Kind: models.FrameInput, Frame: in},
			{Kind: models.FrameEdges, Frame: models.NewFrame(in.Width, in.Height, 1)},
		}, nil
	})
}

type recorder struct {
	mu       sync.Mutex
	events   []Event
	finished chan struct{}
	once     sync.Once
}

func newRecorder() *recorder {
	return &recorder{finished: make(chan struct{})}
}

func (r *recorder) handle(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	if ev.Type == EventFinished && ev.Finished {
		r.once.Do(func() { close(r.finished) })
	}
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) ofType(t EventType) []Event {
	var out []Event
	for _, ev := range r.snapshot() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
