package lockutils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDegreesToDeciDegrees(t *testing.T) {
	assert.Equal(t, uint16(600), DegreesToDeciDegrees(60))
	assert.Equal(t, uint16(125), DegreesToDeciDegrees(12.46))
	assert.Equal(t, uint16(0), DegreesToDeciDegrees(-5))
	assert.Equal(t, uint16(math.MaxUint16), DegreesToDeciDegrees(1e6))
}

func TestFormatUID(t *testing.T) {
	assert.Equal(t, "04:BA:1E:8A:FE:16:90", FormatUID([]byte{0x04, 0xba, 0x1e, 0x8a, 0xfe, 0x16, 0x90}))
	assert.Equal(t, "", FormatUID(nil))
}

func TestFrameCRC(t *testing.T) {
	// CRC-16/ARC check value
	assert.Equal(t, uint16(0xBB3D), FrameCRC([]byte("123456789")))
	assert.NotEqual(t, FrameCRC([]byte("M:lock,true:E\n")), FrameCRC([]byte("M:unlock,true:E\n")))
}
