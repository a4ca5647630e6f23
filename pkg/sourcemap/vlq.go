package sourcemap

import (
	"fmt"
	"strings"
)

const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

var base64Index [128]int8

func init() {
	for i := range base64Index {
		base64Index[i] = -1
	}
	for i := 0; i < len(base64Chars); i++ {
		base64Index[base64Chars[i]] = int8(i)
	}
}

const (
	vlqShift        = 5
	vlqContinuation = 1 << vlqShift
	vlqMask         = vlqContinuation - 1
)

// EncodeVLQ appends the base64 VLQ encoding of v to b
func EncodeVLQ(b *strings.Builder, v int) {
	var n int
	if v < 0 {
		n = (-v << 1) | 1
	} else {
		n = v << 1
	}
	for {
		digit := n & vlqMask
		n >>= vlqShift
		if n > 0 {
			digit |= vlqContinuation
		}
		b.WriteByte(base64Chars[digit])
		if n == 0 {
			return
		}
	}
}

// DecodeVLQ decodes one value from the start of s and returns it with the
// number of bytes consumed
func DecodeVLQ(s string) (int, int, error) {
	var result, shift int
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 128 || base64Index[c] < 0 {
			return 0, 0, fmt.Errorf("invalid base64 character %q", c)
		}
		digit := int(base64Index[c])
		result += (digit & vlqMask) << shift
		shift += vlqShift
		if digit&vlqContinuation == 0 {
			if result&1 == 1 {
				return -(result >> 1), i + 1, nil
			}
			return result >> 1, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("unterminated VLQ value %q", s)
}
