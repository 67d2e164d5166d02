package driver

import "sync"

type waitGroupWrapper struct {
	sync.WaitGroup
}

// Wrap 在新的goroutine里执行cb, Wait等待其结束
func (w *waitGroupWrapper) Wrap(cb func()) {
	w.Add(1)
	go func() {
		defer w.Done()
		cb()
	}()
}
