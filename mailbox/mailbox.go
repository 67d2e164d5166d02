// Package mailbox is an unbounded FIFO that hands fired timer messages to a
// consumer in batches. Put never blocks, so it is safe to call from the
// goroutine that drives a time wheel.
package mailbox

import (
	"errors"
	"sync"
	"time"

	"github.com/eapache/queue"
)

// ErrDisposed is returned after Dispose.
var ErrDisposed = errors.New("mailbox: disposed")

// Mailbox 收集到期消息, 按批取出
type Mailbox struct {
	mu       sync.Mutex
	items    *queue.Queue  // 待消费的消息
	notify   chan struct{} // 有新消息时通知消费者
	disposed bool          // 弃用
	option   Option        // 选项
}

// Option 批量取出的条件
type Option struct {
	maxTime  time.Duration // 按时间
	maxItems uint          // 按数量
}

// WithMaxTime Get最多等待的时间, 到时返回已有的消息
func WithMaxTime(maxTime time.Duration) Option {
	return Option{maxTime: maxTime}
}

// WithMaxItems 每批最多返回的消息数, 攒够才返回
func WithMaxItems(maxItems uint) Option {
	return Option{maxItems: maxItems}
}

// Merge 合并两个选项
func (o Option) Merge(other Option) Option {
	if other.maxTime > 0 {
		o.maxTime = other.maxTime
	}
	if other.maxItems > 0 {
		o.maxItems = other.maxItems
	}
	return o
}

// New 初始化
func New(option Option) *Mailbox {
	return &Mailbox{
		items:  queue.New(),
		notify: make(chan struct{}, 1),
		option: option,
	}
}

// Put 投递一条消息
func (m *Mailbox) Put(item interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return ErrDisposed
	}
	m.items.Add(item)
	select {
	case m.notify <- struct{}{}:
	default:
	}
	return nil
}

// Get 阻塞直到攒够maxItems条消息、超过maxTime或者被弃用.
// 没有设置maxItems时有消息就返回全部
func (m *Mailbox) Get() ([]interface{}, error) {
	var timeout <-chan time.Time
	if m.option.maxTime > 0 {
		timer := time.NewTimer(m.option.maxTime)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		m.mu.Lock()
		if m.disposed {
			m.mu.Unlock()
			return nil, ErrDisposed
		}
		if m.ready() {
			items := m.take()
			m.mu.Unlock()
			return items, nil
		}
		m.mu.Unlock()

		select {
		case <-m.notify:
		case <-timeout:
			// 超时直接取当前数据
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.disposed {
				return nil, ErrDisposed
			}
			return m.take(), nil
		}
	}
}

// Len 当前积压的消息数
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items.Length()
}

func (m *Mailbox) ready() bool {
	n := m.items.Length()
	if m.option.maxItems != 0 {
		return uint(n) >= m.option.maxItems
	}
	return n > 0
}

// take 取出最多maxItems条消息
func (m *Mailbox) take() []interface{} {
	n := m.items.Length()
	if m.option.maxItems != 0 && uint(n) > m.option.maxItems {
		n = int(m.option.maxItems)
	}
	items := make([]interface{}, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, m.items.Remove())
	}
	return items
}

// Dispose 丢弃所有消息并唤醒等待的消费者
func (m *Mailbox) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return
	}
	m.disposed = true
	m.items = queue.New()
	close(m.notify)
}

// IsDisposed reports whether Dispose has been called.
func (m *Mailbox) IsDisposed() bool {
	m.mu.Lock()
	disposed := m.disposed
	m.mu.Unlock()
	return disposed
}
