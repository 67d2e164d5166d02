package bitarray

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitmap(t *testing.T) {
	b := Bitmap(0)
	assert.True(t, b.Empty())

	b = b.Set(0)
	assert.True(t, b.Has(0))
	assert.Equal(t, 1, b.Count())

	b = b.Set(4).Set(63)
	assert.True(t, b.Has(63))
	assert.Equal(t, 3, b.Count())

	b = b.Clear(4)
	assert.False(t, b.Has(4))
	assert.Equal(t, 2, b.Count())

	b = b.Clear(0).Clear(63)
	assert.True(t, b.Empty())
}

func TestBitmapNext(t *testing.T) {
	b := Bitmap(0).Set(3).Set(40)

	pos, ok := b.Next(0)
	assert.True(t, ok)
	assert.Equal(t, uint64(3), pos)

	pos, ok = b.Next(3)
	assert.True(t, ok)
	assert.Equal(t, uint64(3), pos)

	pos, ok = b.Next(4)
	assert.True(t, ok)
	assert.Equal(t, uint64(40), pos)

	_, ok = b.Next(41)
	assert.False(t, ok)

	_, ok = b.Next(64)
	assert.False(t, ok)

	pos, ok = Bitmap(0).Set(63).Next(63)
	assert.True(t, ok)
	assert.Equal(t, uint64(63), pos)
}
