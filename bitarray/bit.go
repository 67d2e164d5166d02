package bitarray

import "math/bits"

// Bitmap 64位的位图，每一位记录一个槽位是否被占用
type Bitmap uint64

// Set 将指定位置设为1
func (b Bitmap) Set(pos uint64) Bitmap {
	// 位移得到只有pos位为1的数，再按位或
	return b | (1 << pos)
}

// Clear 将指定位置设为0
func (b Bitmap) Clear(pos uint64) Bitmap {
	// 取反后按位与，只清掉pos位
	return b &^ (1 << pos)
}

// Has 判断指定位置是否为1
func (b Bitmap) Has(pos uint64) bool {
	return b&(1<<pos) != 0
}

// Empty 是否所有位都为0
func (b Bitmap) Empty() bool {
	return b == 0
}

// Count 值为1的位数
func (b Bitmap) Count() int {
	// http://graphics.stanford.edu/~seander/bithacks.html#CountBitsSetParallel
	val := b
	val -= (val >> 1) & 0x5555555555555555
	val = (val>>2)&0x3333333333333333 + val&0x3333333333333333
	val += val >> 4
	val &= 0x0f0f0f0f0f0f0f0f
	val *= 0x0101010101010101
	return int(byte(val >> 56))
}

// Next 返回大于等于pos的第一个为1的位置
func (b Bitmap) Next(pos uint64) (uint64, bool) {
	if pos >= 64 {
		return 0, false
	}
	// 把低于pos的位清掉，剩下的最低位就是结果
	masked := uint64(b) & (^uint64(0) << pos)
	if masked == 0 {
		return 0, false
	}
	return uint64(bits.TrailingZeros64(masked)), true
}
