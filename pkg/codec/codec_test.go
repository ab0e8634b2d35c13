package codec

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSignedKnownValues(t *testing.T) {
	tests := []struct {
		name string
		a, b byte
		want float64
	}{
		{"lowest", 'A', 'A', -1.0},
		{"first symbol step", 'B', 'A', -1.0 + 64.0/2047},
		{"second symbol step", 'A', 'B', -1.0 + 1.0/2047},
		{"near zero", 'g', 'A', 1.0 / 2047},
		{"highest", '/', '/', MaxSigned},
		{"url safe alias", '_', '_', MaxSigned},
		{"dash alias", '-', 'A', -1.0 + 62.0*64/2047},
		{"unknown symbols", '!', '~', 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DecodeSigned(tt.a, tt.b), 1e-9)
		})
	}
}

func TestDecodeSignedRange(t *testing.T) {
	for i := 0; i < 256; i++ {
		for j := 0; j < 256; j++ {
			v := DecodeSigned(byte(i), byte(j))
			if v < -1.0-1e-9 || v > MaxSigned+1e-9 {
				t.Fatalf("DecodeSigned(%d, %d) = %f out of range", i, j, v)
			}
		}
	}
}

func TestDecodeSignedOptAbsent(t *testing.T) {
	_, ok := DecodeSignedOpt('=', '=')
	assert.False(t, ok)

	v, ok := DecodeSignedOpt('A', 'A')
	assert.True(t, ok)
	assert.InDelta(t, -1.0, v, 1e-9)
}

func TestDecodeUnsigned(t *testing.T) {
	assert.Equal(t, uint32(0), DecodeUnsigned2('A', 'A'))
	assert.Equal(t, uint32(65), DecodeUnsigned2('B', 'B'))
	assert.Equal(t, uint32(4095), DecodeUnsigned2('/', '/'))
	assert.Equal(t, uint32(5), DecodeUnsigned2('A', 'F'))
	assert.Equal(t, uint32(1), DecodeUnsigned3('A', 'A', 'B'))
	assert.Equal(t, uint32(4096+64+1), DecodeUnsigned3('B', 'B', 'B'))
	assert.Equal(t, uint32(0), DecodeUnsigned3('!', '*', ' '))
}

func TestUnsignedRoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 63, 64, 100, 4095} {
		s := EncodeUnsigned2(v)
		assert.Equal(t, v, DecodeUnsigned2(s[0], s[1]))
	}
	for _, v := range []uint32{0, 1, 4096, 70000, 262143} {
		s := EncodeUnsigned3(v)
		assert.Equal(t, v, DecodeUnsigned3(s[0], s[1], s[2]))
	}
}

func TestSignedRoundTripWithinQuantization(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 5000; i++ {
		v := rng.Float64()*2 - 1
		a, b := EncodeSigned(v)
		got := DecodeSigned(a, b)
		if math.Abs(got-v) > 0.5/FixedScale+1e-12 {
			t.Fatalf("round trip %f -> %c%c -> %f exceeds quantization", v, a, b, got)
		}
	}
}

func TestDecodeFixedArrayIgnoresTrailingSymbol(t *testing.T) {
	values := DecodeFixedArray("AAgAB")
	require.Len(t, values, 2)
	assert.InDelta(t, -1.0, values[0], 1e-9)
	assert.InDelta(t, 1.0/2047, values[1], 1e-9)

	assert.Empty(t, DecodeFixedArray(""))
	assert.Empty(t, DecodeFixedArray("A"))
}

func TestDecodeQuaternionArrayDropsRemainder(t *testing.T) {
	quats := DecodeQuaternionArray([]float64{0, 0, -1, 0, 0.5, 0.5})
	require.Len(t, quats, 1)
	// w = -f2
	assert.InDelta(t, 1.0, quats[0].W, 1e-9)

	assert.Empty(t, DecodeQuaternionArray(nil))
}

func TestDecodeQuaternionStringLengths(t *testing.T) {
	q := mgl64.QuatRotate(0.7, mgl64.Vec3{0, 1, 0})
	s := EncodeQuaternion(q)
	require.Len(t, s, 8)

	quats := DecodeQuaternionString(s)
	require.Len(t, quats, 1)
	assert.InDelta(t, 1.0, quats[0].Len(), 1e-9)
	assert.InDelta(t, 1.0, math.Abs(quats[0].Dot(q)), 1e-5, "decoded %v, want %v", quats[0], q)

	assert.Empty(t, DecodeQuaternionString(""))
}

func TestDecodedQuaternionsAreUnitLength(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	buf := make([]byte, 8*64)
	for i := range buf {
		buf[i] = Alphabet[rng.Intn(64)]
	}
	for _, q := range DecodeQuaternionString(string(buf)) {
		assert.InDelta(t, 1.0, q.Len(), 1e-9)
	}
}

func TestZeroQuaternionBecomesIdentity(t *testing.T) {
	q := QuatFromWire(0, 0, 0, 0)
	assert.Equal(t, mgl64.QuatIdent(), q)
}
