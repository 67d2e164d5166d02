package timewheel

// Option 创建时间轮时的可选配置
type Option func(tw *TimeWheel)

// WithMaxTimers 限制同时挂载的定时器数量, 超出后Add返回ErrAllocation. 0表示不限制
func WithMaxTimers(n int) Option {
	return func(tw *TimeWheel) {
		if n > 0 {
			tw.maxTimers = n
		}
	}
}

// WithStartEpoch 记录创建时的墙钟值, 仅用于展示
func WithStartEpoch(epoch uint64) Option {
	return func(tw *TimeWheel) {
		tw.startEpoch = epoch
	}
}
