package agent

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type FlagKind int

const (
	FlagNormal FlagKind = iota
	FlagAlert
	FlagSuccess
)

func (k FlagKind) String() string {
	switch k {
	case FlagAlert:
		return "alert"
	case FlagSuccess:
		return "success"
	default:
		return "normal"
	}
}

// VisualFlag is the transient visual state of a surface. Deadline is zero
// for FlagNormal.
type VisualFlag struct {
	Kind     FlagKind
	Color    Color
	Deadline time.Time
}

// Stopper cancels a scheduled callback. Stop reports whether the callback
// was prevented from running.
type Stopper interface {
	Stop() bool
}

// Scheduler runs f once after d of wall-clock time. f must not be invoked
// before AfterFunc returns.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// WallClock schedules on real time, independent of the simulation time scale.
var WallClock Scheduler = wallClock{}

// FeedbackTimer flashes a surface and reverts it after a fixed real-time
// delay. The flag cell is shared with the revert callbacks and guarded by mu.
type FeedbackTimer struct {
	surface   Surface
	renderer  Renderer
	delay     time.Duration
	scheduler Scheduler
	logger    *zap.Logger

	mu           sync.Mutex
	defaultColor Color
	flag         VisualFlag
	seq          uint64
	pending      map[uint64]*Flash
	wg           sync.WaitGroup
}

// Flash is the handle of one scheduled revert.
type Flash struct {
	Flag VisualFlag

	id       uint64
	revertTo Color
	timer    *FeedbackTimer
	stop     Stopper
	done     chan struct{}
}

func NewFeedbackTimer(surface Surface, renderer Renderer, delay time.Duration, scheduler Scheduler, logger *zap.Logger) *FeedbackTimer {
	if scheduler == nil {
		scheduler = WallClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &FeedbackTimer{
		surface:   surface,
		renderer:  renderer,
		delay:     delay,
		scheduler: scheduler,
		logger:    logger,
		pending:   make(map[uint64]*Flash),
	}
	t.CaptureDefault()
	return t
}

// CaptureDefault records the renderer's current color as the revert target
// of later flashes. Flashes already scheduled keep the value they captured.
func (t *FeedbackTimer) CaptureDefault() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.renderer != nil {
		t.defaultColor = t.renderer.Color(t.surface)
	}
	t.flag = VisualFlag{Kind: FlagNormal, Color: t.defaultColor}
}

// Flash paints the surface and schedules the revert.
func (t *FeedbackTimer) Flash(kind FlagKind, c Color) *Flash {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	f := &Flash{
		Flag:     VisualFlag{Kind: kind, Color: c, Deadline: time.Now().Add(t.delay)},
		id:       t.seq,
		revertTo: t.defaultColor,
		timer:    t,
		done:     make(chan struct{}),
	}
	t.flag = f.Flag
	t.paint(c)
	t.pending[f.id] = f
	t.wg.Add(1)
	f.stop = t.scheduler.AfterFunc(t.delay, func() { t.revert(f) })

	t.logger.Debug("feedback flash scheduled",
		zap.String("surface", string(t.surface)),
		zap.Stringer("kind", kind),
		zap.Duration("delay", t.delay),
	)
	return f
}

func (t *FeedbackTimer) revert(f *Flash) {
	t.mu.Lock()
	if _, ok := t.pending[f.id]; !ok {
		t.mu.Unlock()
		return
	}
	t.settle(f)
	t.mu.Unlock()
}

// settle reverts the flash if it still owns the surface and releases it.
// A newer flash leaves the surface to its own revert. Caller holds mu.
func (t *FeedbackTimer) settle(f *Flash) {
	delete(t.pending, f.id)
	if f.id == t.seq {
		t.flag = VisualFlag{Kind: FlagNormal, Color: f.revertTo}
		t.paint(f.revertTo)
	}
	close(f.done)
	t.wg.Done()
}

func (t *FeedbackTimer) paint(c Color) {
	if t.renderer == nil {
		return
	}
	t.renderer.SetColor(t.surface, c)
}

// Flag returns the current visual state.
func (t *FeedbackTimer) Flag() VisualFlag {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flag
}

// Pending is the number of reverts that have not run yet.
func (t *FeedbackTimer) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Stop cancels every pending revert and restores the default color.
func (t *FeedbackTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, f := range t.pending {
		if f.stop.Stop() {
			t.settle(f)
		}
	}
	t.flag = VisualFlag{Kind: FlagNormal, Color: t.defaultColor}
	t.paint(t.defaultColor)
}

// Wait blocks until every scheduled revert has run or been cancelled.
func (t *FeedbackTimer) Wait() {
	t.wg.Wait()
}

// Done is closed once the revert has run or the flash was cancelled.
func (f *Flash) Done() <-chan struct{} {
	return f.done
}

// Cancel drops the scheduled revert and reverts right away. It returns
// false if the revert already ran or is running.
func (f *Flash) Cancel() bool {
	t := f.timer
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.pending[f.id]; !ok {
		return false
	}
	if !f.stop.Stop() {
		return false
	}
	t.settle(f)
	return true
}
