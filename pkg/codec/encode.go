package codec

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// EncodeSigned quantizes v onto a symbol pair. Values outside the
// representable range are clamped.
func EncodeSigned(v float64) (byte, byte) {
	n := int(math.Round((v + 1.0) * FixedScale))
	if n < 0 {
		n = 0
	} else if n > 4095 {
		n = 4095
	}
	return Alphabet[n/64], Alphabet[n%64]
}

// EncodeUnsigned2 encodes v (mod 4096) as two symbols.
func EncodeUnsigned2(v uint32) string {
	v %= 4096
	return string([]byte{Alphabet[v/64], Alphabet[v%64]})
}

// EncodeUnsigned3 encodes v (mod 262144) as three symbols.
func EncodeUnsigned3(v uint32) string {
	v %= 262144
	return string([]byte{Alphabet[v/4096], Alphabet[(v/64)%64], Alphabet[v%64]})
}

// EncodeFixedArray encodes each value as a symbol pair.
func EncodeFixedArray(values []float64) string {
	var b strings.Builder
	b.Grow(2 * len(values))
	for _, v := range values {
		hi, lo := EncodeSigned(v)
		b.WriteByte(hi)
		b.WriteByte(lo)
	}
	return b.String()
}

// EncodeQuaternion encodes q as 8 symbols in wire component order.
func EncodeQuaternion(q mgl64.Quat) string {
	w := QuatToWire(q.Normalize())
	return EncodeFixedArray(w[:])
}

// EncodeQuaternions concatenates EncodeQuaternion for each element.
func EncodeQuaternions(qs []mgl64.Quat) string {
	var b strings.Builder
	for _, q := range qs {
		b.WriteString(EncodeQuaternion(q))
	}
	return b.String()
}
