// Package timewheel implements a hierarchical timer wheel: a 256-slot near
// wheel, four 64-slot far levels and an overflow list, driven by explicit
// tick updates.
//
// Producers arm timers with Add from any goroutine. A single driver calls
// Update to advance the tick counter; expired handles are passed to the
// callback in expiry order, FIFO within one tick, outside the wheel lock.
package timewheel

import (
	"fmt"
	"sync"

	"github.com/uber-go/atomic"

	"github.com/hongker/go-timewheel/bitarray"
)

const (
	nearShift = 8
	nearSize  = 1 << nearShift
	nearMask  = nearSize - 1
	farShift  = 6
	farSize   = 1 << farShift
	farMask   = farSize - 1
	farLevels = 4
)

// Callback receives the handle of every fired timer.
type Callback func(handle uint64)

// TimeWheel 分层时间轮
type TimeWheel struct {
	mu         sync.Mutex
	now        uint64 // 当前tick, 低32位即轮子的计数器
	startEpoch uint64
	released   bool

	near     [nearSize]timeList
	far      [farLevels][farSize]timeList
	overflow timeList

	nearBits [nearSize / 64]bitarray.Bitmap // near槽位是否有节点
	farBits  [farLevels]bitarray.Bitmap     // far各层槽位是否有节点
	nearLen  int
	farLen   [farLevels]int

	armed     int
	maxTimers int

	added    uint64
	fired    uint64
	cascaded uint64

	updating atomic.Int32 // 只允许一个Update在执行
}

// New creates a wheel whose current tick is initialTick.
func New(initialTick uint64, opts ...Option) *TimeWheel {
	tw := &TimeWheel{
		now:        initialTick,
		startEpoch: initialTick,
	}
	for _, opt := range opts {
		opt(tw)
	}
	return tw
}

// CurrentTick returns the last tick reached by Update.
func (tw *TimeWheel) CurrentTick() uint64 {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.now
}

// StartEpoch returns the epoch recorded at creation.
func (tw *TimeWheel) StartEpoch() uint64 {
	return tw.startEpoch
}

// Len returns the number of armed timers.
func (tw *TimeWheel) Len() int {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.armed
}

// Add arms a timer that fires handle once Update reaches the current tick
// plus delay. A zero delay fires on the next tick Update steps through.
func (tw *TimeWheel) Add(handle uint64, delay uint32) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.add(handle, tw.now+uint64(delay))
}

// AddAt arms a timer for an absolute tick. Ticks that are already reached
// behave like a zero delay. Expiries beyond the current 2^32 block are
// parked in the overflow list until the low 32 bits of the counter wrap.
func (tw *TimeWheel) AddAt(handle uint64, expire uint64) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if expire < tw.now {
		expire = tw.now
	}
	return tw.add(handle, expire)
}

func (tw *TimeWheel) add(handle, expire uint64) error {
	if tw.released {
		return ErrReleased
	}
	if tw.maxTimers > 0 && tw.armed >= tw.maxTimers {
		return fmt.Errorf("%w: %d timers armed", ErrAllocation, tw.armed)
	}
	tw.place(newNode(handle, expire))
	tw.armed++
	tw.added++
	return nil
}

// place 按到期tick与当前tick所在的块选择层级: 同一个256块进near,
// 同一个2^(14+6i)块进far[i], 否则进overflow. 层级只取决于(now, expire),
// 所以到期tick相同的节点总在同一个链表里, 保持插入顺序
func (tw *TimeWheel) place(n *timeNode) {
	if n.expire>>nearShift == tw.now>>nearShift {
		idx := n.expire & nearMask
		tw.near[idx].push(n)
		tw.nearBits[idx>>6] = tw.nearBits[idx>>6].Set(idx & 63)
		tw.nearLen++
		return
	}

	for i := 0; i < farLevels; i++ {
		shift := nearShift + uint(i)*farShift
		if n.expire>>(shift+farShift) == tw.now>>(shift+farShift) {
			idx := (n.expire >> shift) & farMask
			tw.far[i][idx].push(n)
			tw.farBits[i] = tw.farBits[i].Set(idx)
			tw.farLen[i]++
			return
		}
	}

	tw.overflow.push(n)
}

// Update advances the wheel tick by tick up to target and calls cb for
// every timer that expires on the way. The lock is released before cb runs,
// so cb may call Add. Only one Update may run at a time.
func (tw *TimeWheel) Update(target uint64, cb Callback) error {
	if !tw.updating.CAS(0, 1) {
		return ErrConcurrentUpdate
	}
	defer tw.updating.Store(0)

	tw.mu.Lock()
	if tw.released {
		tw.mu.Unlock()
		return ErrReleased
	}
	if target < tw.now {
		now := tw.now
		tw.mu.Unlock()
		return fmt.Errorf("%w: target %d, current %d", ErrTickBackward, target, now)
	}
	tw.mu.Unlock()

	for {
		tw.mu.Lock()
		if tw.released {
			tw.mu.Unlock()
			return ErrReleased
		}
		if tw.now >= target {
			tw.mu.Unlock()
			return nil
		}
		tw.fastForward(target)
		expired := tw.step()
		tw.mu.Unlock()

		tw.dispatch(expired, cb)
	}
}

// step 前进一个tick: 先取出当前槽里零延迟的节点, 再推进计数、级联、取出新槽
func (tw *TimeWheel) step() timeList {
	expired := tw.drainNear(tw.now)
	tw.now++
	tw.cascade()
	expired.splice(tw.drainNear(tw.now))
	tw.armed -= expired.len
	tw.fired += uint64(expired.len)
	return expired
}

func (tw *TimeWheel) drainNear(tick uint64) timeList {
	idx := tick & nearMask
	if !tw.nearBits[idx>>6].Has(idx & 63) {
		return timeList{}
	}
	tw.nearBits[idx>>6] = tw.nearBits[idx>>6].Clear(idx & 63)
	l := tw.near[idx].drain()
	tw.nearLen -= l.len
	return l
}

// cascade 近轮走完一圈时, 从最高的到期层级往下把节点重新分配到更低的层级.
// 先高后低, 早插入的节点先被追加到目标链表
func (tw *TimeWheel) cascade() {
	now := tw.now
	if now&nearMask != 0 {
		return
	}
	top := 0
	for top < farLevels-1 && (now>>(nearShift+uint(top)*farShift))&farMask == 0 {
		top++
	}
	// 32位计数器回绕
	if uint32(now) == 0 && !tw.overflow.empty() {
		l := tw.overflow.drain()
		tw.cascaded += uint64(l.len)
		tw.reschedule(l)
	}
	for i := top; i >= 0; i-- {
		tw.moveList(i, (now>>(nearShift+uint(i)*farShift))&farMask)
	}
}

func (tw *TimeWheel) moveList(level int, idx uint64) {
	if !tw.farBits[level].Has(idx) {
		return
	}
	tw.farBits[level] = tw.farBits[level].Clear(idx)
	l := tw.far[level][idx].drain()
	tw.farLen[level] -= l.len
	tw.cascaded += uint64(l.len)
	tw.reschedule(l)
}

func (tw *TimeWheel) reschedule(l timeList) {
	for n := l.head; n != nil; {
		next := n.next
		tw.place(n)
		n = next
	}
}

// fastForward skips ticks in which nothing can fire and no non-empty level
// cascades, stopping one tick short of the next tick that has work.
func (tw *TimeWheel) fastForward(target uint64) {
	next := target
	if tw.nearLen > 0 {
		d := tw.nextNear()
		if d == 0 {
			return
		}
		if tw.now+d < next {
			next = tw.now + d
		}
	}

	shift, pending := uint(0), false
	for i := 0; i < farLevels; i++ {
		if tw.farLen[i] > 0 {
			shift, pending = nearShift+uint(i)*farShift, true
			break
		}
	}
	if !pending && !tw.overflow.empty() {
		shift, pending = 32, true
	}
	if pending {
		if b := (tw.now>>shift + 1) << shift; b < next {
			next = b
		}
	}

	if next > tw.now+1 {
		tw.now = next - 1
	}
}

// nextNear 当前tick到下一个非空near槽的距离, 0表示当前槽非空
func (tw *TimeWheel) nextNear() uint64 {
	p := tw.now & nearMask
	for d := uint64(0); d < nearSize; {
		i := (p + d) & nearMask
		if bit, ok := tw.nearBits[i>>6].Next(i & 63); ok {
			return d + bit - i&63
		}
		d += 64 - i&63
	}
	return nearSize
}

func (tw *TimeWheel) dispatch(l timeList, cb Callback) {
	for n := l.head; n != nil; {
		next := n.next
		handle := n.handle
		freeNode(n)
		if cb != nil {
			cb(handle)
		}
		n = next
	}
}

// Release cancels every armed timer without firing it. The wheel cannot be
// used afterwards; further calls return ErrReleased.
func (tw *TimeWheel) Release() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.released {
		return ErrReleased
	}
	tw.released = true

	for i := range tw.near {
		tw.discard(tw.near[i].drain())
	}
	for i := range tw.far {
		for j := range tw.far[i] {
			tw.discard(tw.far[i][j].drain())
		}
		tw.farBits[i] = 0
		tw.farLen[i] = 0
	}
	tw.discard(tw.overflow.drain())
	tw.nearBits = [nearSize / 64]bitarray.Bitmap{}
	tw.nearLen = 0
	tw.armed = 0
	return nil
}

func (tw *TimeWheel) discard(l timeList) {
	for n := l.head; n != nil; {
		next := n.next
		freeNode(n)
		n = next
	}
}
