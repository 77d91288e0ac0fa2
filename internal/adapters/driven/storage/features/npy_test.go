package features

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMatrix_HeaderAligned(t *testing.T) {
	data := encodeMatrix([]float32{1, 2, 3, 4, 5, 6}, 2, 3)

	assert.Equal(t, npyMagic, string(data[:6]))
	assert.Equal(t, []byte{1, 0}, data[6:8])
	headerLen := int(binary.LittleEndian.Uint16(data[8:10]))
	assert.Zero(t, (10+headerLen)%npyAlignment)
	assert.Equal(t, byte('\n'), data[10+headerLen-1])
	assert.Len(t, data, 10+headerLen+6*4)
}

func TestDecodeMatrix_RoundTrip(t *testing.T) {
	values := []float32{0.25, -1, 3.5, 0}
	got, rows, cols, err := decodeMatrix(encodeMatrix(values, 2, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, values, got)
}

func TestDecodeMatrix_Empty(t *testing.T) {
	got, rows, cols, err := decodeMatrix(encodeMatrix(nil, 0, 0))
	require.NoError(t, err)
	assert.Zero(t, rows)
	assert.Zero(t, cols)
	assert.Empty(t, got)
}

func npyFixture(header string, body []byte) []byte {
	out := []byte(npyMagic)
	out = append(out, 1, 0)
	out = binary.LittleEndian.AppendUint16(out, uint16(len(header)))
	out = append(out, header...)
	return append(out, body...)
}

func TestDecodeMatrix_Float16(t *testing.T) {
	// 1.0, -2.0, 0.5 and the smallest subnormal in binary16.
	body := []byte{0x00, 0x3c, 0x00, 0xc0, 0x00, 0x38, 0x01, 0x00}
	data := npyFixture("{'descr': '<f2', 'fortran_order': False, 'shape': (2, 2), }\n", body)

	got, rows, cols, err := decodeMatrix(data)
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, float32(1), got[0])
	assert.Equal(t, float32(-2), got[1])
	assert.Equal(t, float32(0.5), got[2])
	assert.InDelta(t, 5.960464477539063e-08, got[3], 1e-12)
}

func TestDecodeMatrix_Float64(t *testing.T) {
	body := binary.LittleEndian.AppendUint64(nil, 0x3ff0000000000000) // 1.0
	data := npyFixture("{'descr': '<f8', 'fortran_order': False, 'shape': (1,), }\n", body)

	got, rows, cols, err := decodeMatrix(data)
	require.NoError(t, err)
	assert.Equal(t, 1, rows)
	assert.Equal(t, 1, cols)
	assert.Equal(t, []float32{1}, got)
}

func TestDecodeMatrix_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not npy", []byte("hello world")},
		{"fortran order", npyFixture("{'descr': '<f4', 'fortran_order': True, 'shape': (1, 1), }\n", make([]byte, 4))},
		{"big endian", npyFixture("{'descr': '>f4', 'fortran_order': False, 'shape': (1, 1), }\n", make([]byte, 4))},
		{"three dims", npyFixture("{'descr': '<f4', 'fortran_order': False, 'shape': (1, 1, 1), }\n", make([]byte, 4))},
		{"truncated", npyFixture("{'descr': '<f4', 'fortran_order': False, 'shape': (2, 2), }\n", make([]byte, 4))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := decodeMatrix(tt.data)
			assert.Error(t, err)
		})
	}
}
