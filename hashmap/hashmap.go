// Package hashmap is an open-addressing map keyed by uint64 timer handles.
// It is not safe for concurrent use.
package hashmap

const loadFactor = 0.65 // 负载因子，控制扩容的触发

// roundUp 返回邻近的2的N次方的数
func roundUp(v uint64) uint64 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32
	v++
	return v
}

type HashMap struct {
	count uint64 // 元素数量
	slots slots  // 槽位, 长度为2的N次方
}

func New(hint uint64) *HashMap {
	if hint == 0 {
		hint = 16
	}
	return &HashMap{
		slots: make(slots, roundUp(hint)),
	}
}

// Get 查询，返回值以及是否存在
func (hm *HashMap) Get(key uint64) (interface{}, bool) {
	idx := hm.slots.find(key)
	if hm.slots[idx] == nil {
		return nil, false
	}
	return hm.slots[idx].val, true
}

// Set 赋值, key已存在时覆盖
func (hm *HashMap) Set(key uint64, val interface{}) {
	idx := hm.slots.find(key)
	if hm.slots[idx] != nil {
		hm.slots[idx].val = val
		return
	}

	// 负载因子超过阈值时扩容并重新分配
	if float64(hm.count+1)/float64(len(hm.slots)) > loadFactor {
		hm.rebuild()
		idx = hm.slots.find(key)
	}
	hm.slots[idx] = &entry{key: key, val: val}
	hm.count++
}

// Delete 删除key并返回原来的值
func (hm *HashMap) Delete(key uint64) (interface{}, bool) {
	idx := hm.slots.find(key)
	e := hm.slots[idx]
	if e == nil {
		return nil, false
	}
	hm.slots[idx] = nil
	hm.count--

	// 线性探测下不能直接留空, 把后面同一探测链上的元素往前挪
	mask := uint64(len(hm.slots)) - 1
	hole := idx
	for i := (idx + 1) & mask; hm.slots[i] != nil; i = (i + 1) & mask {
		home := hm.slots.hashFor(hashcode(hm.slots[i].key))
		// home不在(hole, i]区间内时, 该元素可以移到hole
		if (i-home)&mask >= (i-hole)&mask {
			hm.slots[hole] = hm.slots[i]
			hm.slots[i] = nil
			hole = i
		}
	}
	return e.val, true
}

// Len 元素数量
func (hm *HashMap) Len() uint64 {
	return hm.count
}

// Range 遍历所有元素, fn返回false时停止
func (hm *HashMap) Range(fn func(key uint64, val interface{}) bool) {
	for _, e := range hm.slots {
		if e != nil && !fn(e.key, e.val) {
			return
		}
	}
}

// rebuild 扩容并重新分配
func (hm *HashMap) rebuild() {
	temp := make(slots, roundUp(uint64(len(hm.slots)+1)))
	for _, e := range hm.slots {
		if e == nil {
			continue
		}
		temp[temp.find(e.key)] = e
	}
	hm.slots = temp
}

// find 返回key所在位置, 不存在时返回可插入的空位
func (s slots) find(key uint64) uint64 {
	idx := s.hashFor(hashcode(key))
	// 开放地址法，冲突后线性探测下一个位置
	for s[idx] != nil && s[idx].key != key {
		idx = (idx + 1) & (uint64(len(s)) - 1)
	}
	return idx
}

// hashFor 通过位运算确定hashcode对应的位置
func (s slots) hashFor(hashcode uint64) uint64 {
	return hashcode & (uint64(len(s)) - 1)
}

type entry struct {
	key uint64
	val interface{}
}

type slots []*entry

// hashcode murmur3的64位finalizer, 打散连续的id
func hashcode(key uint64) uint64 {
	key ^= key >> 33
	key *= 0xff51afd7ed558ccd
	key ^= key >> 33
	key *= 0xc4ceb9fe1a85ec53
	key ^= key >> 33
	return key
}
