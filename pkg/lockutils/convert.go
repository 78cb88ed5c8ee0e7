package lockutils

import (
	"math"
	"strings"

	"github.com/sigurn/crc16"
)

var arcTable = crc16.MakeTable(crc16.CRC16_ARC)

// Degrees to the tenths-of-a-degree unit used by the motor unit registers.
// No negative values, capped at the register width.
func DegreesToDeciDegrees(deg float64) uint16 {
	if deg < 0 {
		return 0
	}
	d := math.Round(deg * 10)
	if d > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(d)
}

// FormatUID renders tag UID bytes the way the authorised list is written:
// upper-case hex pairs joined by colons.
func FormatUID(uid []byte) string {
	const hexDigits = "0123456789ABCDEF"
	var sb strings.Builder
	sb.Grow(len(uid) * 3)
	for i, b := range uid {
		if i > 0 {
			sb.WriteByte(':')
		}
		sb.WriteByte(hexDigits[b>>4])
		sb.WriteByte(hexDigits[b&0x0f])
	}
	return sb.String()
}

// FrameCRC fingerprints an encoded frame with CRC-16/ARC so the same frame
// can be matched in the host and device logs.
func FrameCRC(frame []byte) uint16 {
	return crc16.Checksum(frame, arcTable)
}
