// Package dispatch gives meaning to the opaque handles a time wheel fires.
//
// A Registry allocates handles, remembers which task each handle stands for
// and runs the task when the wheel fires it. Cancelling only forgets the
// handle: the wheel still fires it later and the Registry drops it as stale.
package dispatch

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sony/sonyflake"
	"github.com/uber-go/atomic"

	"github.com/hongker/go-timewheel/hashmap"
	"github.com/hongker/go-timewheel/mailbox"
	"github.com/hongker/go-timewheel/timewheel"
)

var (
	// ErrIDGenerator is returned by New when no handle generator can be built.
	ErrIDGenerator = errors.New("dispatch: cannot create handle generator")
	// ErrInvalidPeriod is returned by Every for a zero period.
	ErrInvalidPeriod = errors.New("dispatch: period must be at least one tick")
)

// Logger is the subset of *log.Logger the registry needs.
type Logger interface {
	Printf(format string, v ...interface{})
}

type task struct {
	fn     func()
	period uint32 // 0表示一次性任务
}

// Registry 分配句柄并保存句柄对应的任务
type Registry struct {
	tw    *timewheel.TimeWheel
	flake *sonyflake.Sonyflake

	mu    sync.Mutex
	tasks *hashmap.HashMap // handle -> *task

	pool   *ants.Pool
	logger Logger

	fired atomic.Uint64
	stale atomic.Uint64

	// options
	poolSize  int
	machineID *uint16
	startTime time.Time
}

// Option 注册表选项
type Option func(r *Registry)

// WithPool runs tasks on an ants pool of the given size instead of the
// driver goroutine. Tasks then lose their firing order.
func WithPool(size int) Option {
	return func(r *Registry) {
		r.poolSize = size
	}
}

// WithLogger 设置日志
func WithLogger(logger Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithMachineID 指定sonyflake的机器号, 不指定时取内网IP的低16位
func WithMachineID(id uint16) Option {
	return func(r *Registry) {
		r.machineID = &id
	}
}

// WithStartTime 指定sonyflake的起始时间
func WithStartTime(t time.Time) Option {
	return func(r *Registry) {
		r.startTime = t
	}
}

// New creates a registry that arms its tasks on tw.
func New(tw *timewheel.TimeWheel, opts ...Option) (*Registry, error) {
	r := &Registry{
		tw:     tw,
		tasks:  hashmap.New(64),
		logger: log.New(os.Stderr, "[dispatch] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(r)
	}

	st := sonyflake.Settings{StartTime: r.startTime}
	if r.machineID != nil {
		id := *r.machineID
		st.MachineID = func() (uint16, error) { return id, nil }
	}
	if r.flake = sonyflake.NewSonyflake(st); r.flake == nil {
		return nil, ErrIDGenerator
	}

	if r.poolSize > 0 {
		pool, err := ants.NewPool(r.poolSize,
			ants.WithNonblocking(true), // 池满时退化为新起goroutine
			ants.WithPanicHandler(r.panicHandler),
		)
		if err != nil {
			return nil, fmt.Errorf("dispatch: create pool: %w", err)
		}
		r.pool = pool
	}
	return r, nil
}

// AfterFunc arms fn to run once after delay ticks and returns its handle.
func (r *Registry) AfterFunc(delay uint32, fn func()) (uint64, error) {
	return r.arm(delay, &task{fn: fn})
}

// Every arms fn to run every period ticks until cancelled.
func (r *Registry) Every(period uint32, fn func()) (uint64, error) {
	if period == 0 {
		return 0, ErrInvalidPeriod
	}
	return r.arm(period, &task{fn: fn, period: period})
}

// AfterPost arms a timer that posts msg into mb once it fires.
func (r *Registry) AfterPost(delay uint32, mb *mailbox.Mailbox, msg interface{}) (uint64, error) {
	return r.AfterFunc(delay, func() {
		if err := mb.Put(msg); err != nil {
			r.logger.Printf("post %v: %v", msg, err)
		}
	})
}

func (r *Registry) arm(delay uint32, t *task) (uint64, error) {
	handle, err := r.flake.NextID()
	if err != nil {
		return 0, fmt.Errorf("dispatch: next handle: %w", err)
	}

	r.mu.Lock()
	r.tasks.Set(handle, t)
	r.mu.Unlock()

	if err := r.tw.Add(handle, delay); err != nil {
		r.forget(handle)
		return 0, err
	}
	return handle, nil
}

// Cancel forgets handle. It reports whether the handle was still pending.
func (r *Registry) Cancel(handle uint64) bool {
	_, ok := r.forget(handle)
	return ok
}

func (r *Registry) forget(handle uint64) (*task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.tasks.Delete(handle)
	if !ok {
		return nil, false
	}
	return v.(*task), true
}

// Fire is the timewheel.Callback of the registry.
func (r *Registry) Fire(handle uint64) {
	r.mu.Lock()
	v, ok := r.tasks.Get(handle)
	if !ok {
		r.mu.Unlock()
		r.stale.Inc()
		return
	}
	t := v.(*task)
	if t.period == 0 {
		r.tasks.Delete(handle)
	}
	r.mu.Unlock()

	// 周期任务先重新挂载, 任务里可以直接Cancel
	if t.period > 0 {
		if err := r.tw.Add(handle, t.period); err != nil {
			r.forget(handle)
			r.logger.Printf("re-arm %d: %v", handle, err)
		}
	}

	r.fired.Inc()
	r.run(t.fn)
}

func (r *Registry) run(fn func()) {
	if r.pool == nil {
		r.safeRun(fn)
		return
	}
	if err := r.pool.Submit(fn); err != nil {
		go r.safeRun(fn)
	}
}

func (r *Registry) safeRun(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			r.panicHandler(p)
		}
	}()
	fn()
}

func (r *Registry) panicHandler(p interface{}) {
	r.logger.Printf("task panic: %v", p)
}

// Pending returns the number of handles still registered.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.tasks.Len())
}

// Fired returns how many tasks have been started.
func (r *Registry) Fired() uint64 {
	return r.fired.Load()
}

// Stale returns how many fired handles were ignored because they had been
// cancelled.
func (r *Registry) Stale() uint64 {
	return r.stale.Load()
}

// Close releases the worker pool. Armed timers are left to the wheel.
func (r *Registry) Close() {
	if r.pool != nil {
		r.pool.Release()
	}
}
