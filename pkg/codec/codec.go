// Package codec decodes the compact fixed-point alphabet used by pose packets.
//
// Every symbol carries 6 bits. Signed values use two symbols (12 bits) mapped
// linearly onto roughly [-1, 1]; small unsigned integers use two or three
// symbols in radix 64. Bytes outside the alphabet decode as zero so that a
// garbled packet degrades into zero or identity values instead of failing.
package codec

import (
	"github.com/go-gl/mathgl/mgl64"
)

// FixedScale is the number of quantization steps spanning [-1, 1].
const FixedScale = 2047

// MaxSigned is the largest value DecodeSigned can produce.
const MaxSigned = 4095.0/FixedScale - 1.0

// Alphabet is the canonical encoding order of the 64 symbols.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// Absent is the symbol pair marking a missing value.
const Absent = "=="

var (
	symbolValue  [256]uint32
	firstSymbol  [256]float64
	secondSymbol [256]float64
)

func init() {
	for i := 0; i < len(Alphabet); i++ {
		symbolValue[Alphabet[i]] = uint32(i)
	}
	// URL-safe and legacy aliases.
	symbolValue['-'] = 62
	symbolValue['.'] = 62
	symbolValue[','] = 63
	symbolValue['_'] = 63

	for c := 0; c < 256; c++ {
		v := symbolValue[c]
		if v == 0 && c != 'A' {
			// unknown symbols contribute nothing, not the -1 offset of 'A'
			continue
		}
		firstSymbol[c] = -1.0 + float64(64*v)/FixedScale
		secondSymbol[c] = float64(v) / FixedScale
	}
}

// SymbolValue returns the 6-bit value of a symbol, or 0 if it is not in the alphabet.
func SymbolValue(c byte) uint32 {
	return symbolValue[c]
}

// DecodeSigned decodes a symbol pair into a fixed-point value in [-1, MaxSigned].
func DecodeSigned(a, b byte) float64 {
	return firstSymbol[a] + secondSymbol[b]
}

// DecodeSignedOpt is DecodeSigned with the "==" pair reported as absent.
func DecodeSignedOpt(a, b byte) (float64, bool) {
	if a == '=' && b == '=' {
		return 0, false
	}
	return DecodeSigned(a, b), true
}

// DecodeUnsigned2 decodes two symbols in radix 64.
func DecodeUnsigned2(a, b byte) uint32 {
	return symbolValue[a]*64 + symbolValue[b]
}

// DecodeUnsigned3 decodes three symbols in radix 64.
func DecodeUnsigned3(a, b, c byte) uint32 {
	return symbolValue[a]*4096 + symbolValue[b]*64 + symbolValue[c]
}

// DecodeFixedArray decodes consecutive symbol pairs. A trailing odd symbol is ignored.
func DecodeFixedArray(s string) []float64 {
	return AppendFixedArray(make([]float64, 0, len(s)/2), s)
}

// AppendFixedArray appends the decoded pairs of s to dst.
func AppendFixedArray(dst []float64, s string) []float64 {
	for i := 0; i+1 < len(s); i += 2 {
		dst = append(dst, DecodeSigned(s[i], s[i+1]))
	}
	return dst
}

// DecodeQuaternionArray groups values by four into normalized quaternions.
// A remainder shorter than four values is dropped.
func DecodeQuaternionArray(flat []float64) []mgl64.Quat {
	return AppendQuaternions(make([]mgl64.Quat, 0, len(flat)/4), flat)
}

// AppendQuaternions appends the quaternions decoded from flat to dst.
func AppendQuaternions(dst []mgl64.Quat, flat []float64) []mgl64.Quat {
	for i := 0; i+3 < len(flat); i += 4 {
		dst = append(dst, QuatFromWire(flat[i], flat[i+1], flat[i+2], flat[i+3]))
	}
	return dst
}

// DecodeQuaternionString decodes a run of 8-symbol quaternions.
func DecodeQuaternionString(s string) []mgl64.Quat {
	return DecodeQuaternionArray(DecodeFixedArray(s))
}

// QuatFromWire maps the sender's component order onto the local convention
// (x=f1, y=-f0, z=f3, w=-f2) and normalizes. A zero quaternion becomes identity.
func QuatFromWire(f0, f1, f2, f3 float64) mgl64.Quat {
	q := mgl64.Quat{W: -f2, V: mgl64.Vec3{f1, -f0, f3}}
	return q.Normalize()
}

// QuatToWire is the inverse of QuatFromWire's axis mapping.
func QuatToWire(q mgl64.Quat) [4]float64 {
	return [4]float64{-q.V[1], q.V[0], -q.W, q.V[2]}
}
