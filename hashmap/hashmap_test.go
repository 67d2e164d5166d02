package hashmap

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashMap(t *testing.T) {
	hmap := New(8)
	for i := uint64(0); i < 100; i++ {
		hmap.Set(i, fmt.Sprintf("val:%d", i))
	}
	assert.Equal(t, uint64(100), hmap.Len())

	val, exist := hmap.Get(88)
	assert.True(t, exist)
	assert.Equal(t, "val:88", val)

	// 覆盖不增加数量
	hmap.Set(88, "again")
	val, _ = hmap.Get(88)
	assert.Equal(t, "again", val)
	assert.Equal(t, uint64(100), hmap.Len())

	_, exist = hmap.Get(1000)
	assert.False(t, exist)
}

func TestHashMapDelete(t *testing.T) {
	hmap := New(4)
	for i := uint64(0); i < 500; i++ {
		hmap.Set(i*7, i)
	}

	for i := uint64(0); i < 500; i += 2 {
		val, ok := hmap.Delete(i * 7)
		assert.True(t, ok)
		assert.Equal(t, i, val)
	}
	assert.Equal(t, uint64(250), hmap.Len())

	// 删除后探测链仍然完整
	for i := uint64(0); i < 500; i++ {
		val, ok := hmap.Get(i * 7)
		if i%2 == 0 {
			assert.False(t, ok, "key %d", i*7)
			continue
		}
		assert.True(t, ok, "key %d", i*7)
		assert.Equal(t, i, val)
	}

	_, ok := hmap.Delete(3)
	assert.False(t, ok)
}

func TestHashMapRange(t *testing.T) {
	hmap := New(0)
	for i := uint64(1); i <= 10; i++ {
		hmap.Set(i, i)
	}
	var sum uint64
	hmap.Range(func(key uint64, val interface{}) bool {
		sum += val.(uint64)
		return true
	})
	assert.Equal(t, uint64(55), sum)

	visited := 0
	hmap.Range(func(uint64, interface{}) bool {
		visited++
		return false
	})
	assert.Equal(t, 1, visited)
}

func TestRoundUp(t *testing.T) {
	assert.Equal(t, uint64(1), roundUp(1))
	assert.Equal(t, uint64(2), roundUp(2))
	assert.Equal(t, uint64(4), roundUp(3))
	assert.Equal(t, uint64(8), roundUp(5))
	assert.Equal(t, uint64(16), roundUp(9))
	assert.Equal(t, uint64(32), roundUp(31))
	assert.Equal(t, uint64(64), roundUp(63))
}
