package hotpatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeUint32LE(t *testing.T) {
	assert.Equal(t, []byte{0x78, 0x56, 0x34, 0x12}, EncodeUint32LE(0x12345678))
	assert.Equal(t, []byte{0x73, 0, 0, 0}, EncodeUint32LE(0x73))
}

func TestUint32LERoundTrip(t *testing.T) {
	values := []uint32{0, 1, 0xff, 0x100, 0x7fffffff, 0x80000000, 0xfffffffe, 0xffffffff}
	for v := uint64(0); v < 1<<32; v += 0x01010101 * 7 {
		values = append(values, uint32(v))
	}
	for _, v := range values {
		if actual := DecodeUint32LE(EncodeUint32LE(v)); actual != v {
			t.Errorf("Expected %#x but got %#x", v, actual)
		}
	}
}
