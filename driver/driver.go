// Package driver turns wall-clock time into wheel ticks. It is the single
// goroutine allowed to call TimeWheel.Update.
package driver

import (
	"errors"
	"log"
	"math"
	"os"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/atomic"

	"github.com/hongker/go-timewheel/timewheel"
)

// DefaultResolution is one centisecond per tick.
const DefaultResolution = 10 * time.Millisecond

const (
	stateIdle = iota
	stateRunning
	stateStopped
)

// Logger is the subset of *log.Logger the driver needs.
type Logger interface {
	Printf(format string, v ...interface{})
}

// Driver 用墙钟驱动时间轮
type Driver struct {
	tw         *timewheel.TimeWheel
	fire       timewheel.Callback
	clock      clock.Clock
	resolution time.Duration
	logger     Logger

	base  uint64    // Start时时间轮的tick
	start time.Time // Start时的墙钟

	mu       sync.Mutex // 保护Start/Stop之间的ticker
	state    atomic.Int32
	ticker   *clock.Ticker
	stopOnce sync.Once
	stop     chan struct{}
	wg       waitGroupWrapper
}

// Option 驱动选项
type Option func(d *Driver)

// WithResolution 每个tick代表的时长
func WithResolution(resolution time.Duration) Option {
	return func(d *Driver) {
		if resolution > 0 {
			d.resolution = resolution
		}
	}
}

// WithClock 替换时钟, 测试时传入clock.NewMock()
func WithClock(c clock.Clock) Option {
	return func(d *Driver) {
		d.clock = c
	}
}

// WithLogger 设置日志
func WithLogger(logger Logger) Option {
	return func(d *Driver) {
		d.logger = logger
	}
}

// New creates a driver that advances tw and passes fired handles to fire.
func New(tw *timewheel.TimeWheel, fire timewheel.Callback, opts ...Option) *Driver {
	d := &Driver{
		tw:         tw,
		fire:       fire,
		clock:      clock.New(),
		resolution: DefaultResolution,
		logger:     log.New(os.Stderr, "[driver] ", log.LstdFlags),
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Resolution returns the duration of one tick.
func (d *Driver) Resolution() time.Duration {
	return d.resolution
}

// Ticks converts a duration to a tick delay, rounding up.
func (d *Driver) Ticks(dur time.Duration) uint32 {
	if dur <= 0 {
		return 0
	}
	n := (dur + d.resolution - 1) / d.resolution
	if n > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(n)
}

// Start launches the update loop. It is a no-op if already started.
func (d *Driver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.Load() != stateIdle {
		return
	}
	d.base = d.tw.CurrentTick()
	d.start = d.clock.Now()
	d.ticker = d.clock.Ticker(d.resolution)
	d.state.Store(stateRunning)
	d.wg.Wrap(d.run)
}

// Stop halts the update loop and waits for it to exit. Timers still armed
// stay in the wheel. Stop is safe to call more than once.
func (d *Driver) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		if d.state.Swap(stateStopped) == stateRunning {
			d.ticker.Stop()
		}
		d.mu.Unlock()
		close(d.stop)
		d.wg.Wait()
	})
}

func (d *Driver) run() {
	for {
		select {
		case <-d.ticker.C:
			if !d.advance(d.clock.Now()) {
				return
			}
		case <-d.stop:
			return
		}
	}
}

// advance 把墙钟换算成目标tick并推进时间轮, 返回false时退出循环
func (d *Driver) advance(now time.Time) bool {
	elapsed := now.Sub(d.start)
	if elapsed < 0 {
		return true
	}
	target := d.base + uint64(elapsed/d.resolution)
	err := d.tw.Update(target, d.fire)
	switch {
	case err == nil:
		return true
	case errors.Is(err, timewheel.ErrReleased):
		d.logger.Printf("wheel released, stopping at tick %d", target)
		return false
	default:
		d.logger.Printf("update to tick %d: %v", target, err)
		return true
	}
}
