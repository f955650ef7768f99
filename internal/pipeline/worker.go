package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"thermo-gui/internal/logger"
	"thermo-gui/internal/models"
)

const workerComponent = "Worker"

// RunStats counts what a worker has done so far
type RunStats struct {
	Processed    uint64
	Failed       uint64
	AvgFrameTime time.Duration
}

// Worker runs the engine over one source, frame by frame, and publishes the results
// on its Bus. A worker is single use: once stopped or finished it is replaced, never restarted.
//
// Pause is cooperative and checked between frames. Stop is a hard cancel: the context
// handed to the engine is cancelled and the bus is closed, so nothing from the current
// frame is delivered.
type Worker struct {
	generation uint64
	config     *models.ProcessingConfiguration
	engine     Engine
	opener     SourceOpener
	bus        *Bus
	logger     logger.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	doneOnce sync.Once

	mu      sync.Mutex
	resume  *sync.Cond
	paused  bool
	started bool
	source  FrameSource
	bound   models.Source
	length  int

	processed  atomic.Uint64
	failed     atomic.Uint64
	frameNanos atomic.Uint64
}

// NewWorker creates an idle worker publishing on a new bus
func NewWorker(generation uint64, config *models.ProcessingConfiguration, engine Engine, opener SourceOpener, dispatch Dispatcher, log logger.Logger) *Worker {
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		generation: generation,
		config:     config,
		engine:     engine,
		opener:     opener,
		bus:        NewBus(generation, dispatch),
		logger:     log,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		length:     -1,
	}
	w.resume = sync.NewCond(&w.mu)
	return w
}

// Generation identifies this worker among its replacements
func (w *Worker) Generation() uint64 { return w.generation }

// Bus returns the event bus subscribers attach to
func (w *Worker) Bus() *Bus { return w.bus }

// Configuration returns the parameters this worker reads each frame
func (w *Worker) Configuration() *models.ProcessingConfiguration { return w.config }

// Done is closed when the run loop exits
func (w *Worker) Done() <-chan struct{} { return w.done }

// Load opens src and returns the number of frames it will yield (-1 for live capture).
// Loading again before Start replaces the previous source.
func (w *Worker) Load(src models.Source) (int, error) {
	if err := src.Validate(); err != nil {
		return 0, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return 0, fmt.Errorf("%w: worker already started", models.ErrInvalidTransition)
	}
	if w.ctx.Err() != nil {
		return 0, fmt.Errorf("%w: worker stopped", models.ErrInvalidTransition)
	}

	fs, err := w.opener.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open %s source: %w", src.Kind, err)
	}
	if w.source != nil {
		_ = w.source.Close()
	}
	w.source = fs
	w.bound = src
	w.length = fs.Len()

	w.logger.Info(workerComponent, "source loaded", map[string]interface{}{
		"generation": w.generation,
		"kind":       src.Kind.String(),
		"path":       src.Path,
		"device":     src.Device,
		"frames":     w.length,
	})
	return w.length, nil
}

// Source returns the bound source descriptor
func (w *Worker) Source() models.Source {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bound
}

// Len is the frame count of the loaded source
func (w *Worker) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.length
}

// Start launches the run loop, or resumes it when paused
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ctx.Err() != nil {
		return fmt.Errorf("%w: worker stopped", models.ErrInvalidTransition)
	}
	if w.source == nil {
		return models.ErrNoSource
	}

	w.paused = false
	if w.started {
		w.resume.Broadcast()
		return nil
	}

	w.started = true
	go w.run(w.source, w.config.Snapshot().Preprocessing.ImageScaling)
	return nil
}

// Pause asks the run loop to block before the next frame
func (w *Worker) Pause() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.paused = true
}

// Paused reports whether a pause has been requested
func (w *Worker) Paused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.paused
}

// Stop cancels the run without draining. It does not wait for the loop to exit.
func (w *Worker) Stop() {
	w.cancel()
	w.bus.Close()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.resume.Broadcast()
	if !w.started {
		if w.source != nil {
			_ = w.source.Close()
			w.source = nil
		}
		w.closeDone()
	}
}

func (w *Worker) closeDone() {
	w.doneOnce.Do(func() { close(w.done) })
}

// Stopped reports whether Stop was called
func (w *Worker) Stopped() bool {
	return w.ctx.Err() != nil
}

// Stats reports per-run counters
func (w *Worker) Stats() RunStats {
	processed := w.processed.Load()
	stats := RunStats{Processed: processed, Failed: w.failed.Load()}
	if processed > 0 {
		stats.AvgFrameTime = time.Duration(w.frameNanos.Load() / processed)
	}
	return stats
}

// waitWhilePaused blocks until resumed or cancelled; false means cancelled
func (w *Worker) waitWhilePaused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.paused && w.ctx.Err() == nil {
		w.resume.Wait()
	}
	return w.ctx.Err() == nil
}

// run owns the source. The scaling factor is latched for the whole run.
func (w *Worker) run(source FrameSource, scaling float64) {
	defer w.closeDone()
	defer func() {
		if err := source.Close(); err != nil {
			w.logger.Warning(workerComponent, "source close failed", map[string]interface{}{"error": err.Error()})
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error(workerComponent, fmt.Errorf("worker panic: %v", r), map[string]interface{}{
				"stack": string(debug.Stack()),
			})
			w.bus.Publish(Event{Type: EventFinished, Finished: true})
		}
	}()

	w.bus.Publish(Event{Type: EventFinished, Finished: false})

	for index := 0; ; index++ {
		if !w.waitWhilePaused() {
			return
		}

		frame, ok, err := source.Next()
		if w.ctx.Err() != nil {
			return
		}
		if err != nil {
			w.logger.Error(workerComponent, fmt.Errorf("read frame %d: %w", index, err), nil)
			break
		}
		if !ok {
			break
		}

		params := w.config.Snapshot()
		params.Preprocessing.ImageScaling = scaling

		start := time.Now()
		outputs, err := w.engine.Process(w.ctx, frame, params)
		if w.ctx.Err() != nil {
			return
		}
		w.frameNanos.Add(uint64(time.Since(start).Nanoseconds()))
		w.processed.Add(1)

		if err != nil {
			w.failed.Add(1)
			w.logger.Warning(workerComponent, "frame processing failed", map[string]interface{}{
				"index": index,
				"error": err.Error(),
			})
		} else {
			for _, out := range outputs {
				w.bus.Publish(Event{Type: EventFrame, Kind: out.Kind, Frame: out.Frame, Index: index})
			}
		}
		w.bus.Publish(Event{Type: EventProgress, Index: index})
	}

	stats := w.Stats()
	w.logger.Info(workerComponent, "source exhausted", map[string]interface{}{
		"generation":     w.generation,
		"processed":      stats.Processed,
		"failed":         stats.Failed,
		"avg_frame_time": stats.AvgFrameTime.String(),
	})
	w.bus.Publish(Event{Type: EventFinished, Finished: true})
}
