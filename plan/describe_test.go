package plan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribeNops(t *testing.T) {
	assert.Equal(t, "nop; nop; nop", Describe([]byte{0x90, 0x90, 0x90}, 0x404f42))
}

func TestDescribeCall(t *testing.T) {
	out := strings.ToLower(Describe([]byte{0xe8, 0x10, 0x00, 0x00, 0x00}, 0x404f42))
	assert.Contains(t, out, "call")
	assert.NotContains(t, out, ";")
}

func TestDescribeTruncated(t *testing.T) {
	out := Describe([]byte{0x90, 0xe8, 0x10}, 0x404f42)
	assert.True(t, strings.HasPrefix(out, "nop; "), out)
	assert.True(t, strings.HasSuffix(out, "..."), out)
}
