package timewheel

import "sync"

// timeNode 一个已挂载的定时器
type timeNode struct {
	expire uint64 // 绝对到期tick, 低32位决定落在哪个槽
	handle uint64 // 调用方定义的句柄, 原样回传
	next   *timeNode
}

var nodePool = sync.Pool{
	New: func() interface{} {
		return new(timeNode)
	},
}

func newNode(handle, expire uint64) *timeNode {
	n := nodePool.Get().(*timeNode)
	n.handle = handle
	n.expire = expire
	n.next = nil
	return n
}

func freeNode(n *timeNode) {
	*n = timeNode{}
	nodePool.Put(n)
}

// timeList 槽位里的先进先出链表, 零值即为空链表
type timeList struct {
	head *timeNode // 头节点
	tail *timeNode // 尾节点
	len  int       // 节点数量
}

// push 在链表尾部追加一个节点
func (l *timeList) push(n *timeNode) {
	n.next = nil
	if l.tail == nil { // 空链表
		l.head = n
	} else {
		l.tail.next = n
	}
	l.tail = n
	l.len++
}

// splice 把另一条链表整体接到尾部
func (l *timeList) splice(o timeList) {
	if o.head == nil {
		return
	}
	if l.tail == nil {
		*l = o
		return
	}
	l.tail.next = o.head
	l.tail = o.tail
	l.len += o.len
}

// drain 取出整条链表并重置为空
func (l *timeList) drain() timeList {
	d := *l
	*l = timeList{}
	return d
}

func (l *timeList) empty() bool {
	return l.head == nil
}
