package features

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// NumPy .npy v1.0 framing: magic, version, little-endian header length,
// then an ASCII dict literal padded so the data starts on a 64-byte boundary.
const (
	npyMagic     = "\x93NUMPY"
	npyAlignment = 64
)

var (
	errNotNpy = errors.New("not an npy file")

	descrPattern   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	fortranPattern = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	shapePattern   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// encodeMatrix writes a rows×cols little-endian float32 matrix in C order.
func encodeMatrix(values []float32, rows, cols int) []byte {
	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d, %d), }", rows, cols)
	// Pad with spaces and end with a newline so the preamble is aligned.
	preamble := len(npyMagic) + 2 + 2
	total := preamble + len(header) + 1
	if rem := total % npyAlignment; rem != 0 {
		header += strings.Repeat(" ", npyAlignment-rem)
	}
	header += "\n"

	var buf bytes.Buffer
	buf.Grow(preamble + len(header) + len(values)*4)
	buf.WriteString(npyMagic)
	buf.Write([]byte{1, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	buf.Write(float32SliceToBytes(values))
	return buf.Bytes()
}

// decodeMatrix reads a 2-D float matrix in C order. Half, single and double
// precision little-endian data are accepted and returned as float32.
func decodeMatrix(data []byte) (values []float32, rows, cols int, err error) {
	r := bytes.NewReader(data)
	magic := make([]byte, len(npyMagic)+2)
	if _, err := io.ReadFull(r, magic); err != nil || string(magic[:len(npyMagic)]) != npyMagic {
		return nil, 0, 0, errNotNpy
	}

	var headerLen int
	switch major := magic[len(npyMagic)]; major {
	case 1:
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, 0, 0, fmt.Errorf("read header length: %w", err)
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, 0, 0, fmt.Errorf("read header length: %w", err)
		}
		headerLen = int(n)
	default:
		return nil, 0, 0, fmt.Errorf("unsupported npy version %d", major)
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, 0, 0, fmt.Errorf("read header: %w", err)
	}
	descr, rows, cols, err := parseHeader(string(header))
	if err != nil {
		return nil, 0, 0, err
	}

	body := data[len(data)-r.Len():]
	switch descr {
	case "<f4":
		values, err = decodeFloat32(body, rows*cols)
	case "<f2":
		values, err = decodeFloat16(body, rows*cols)
	case "<f8":
		values, err = decodeFloat64(body, rows*cols)
	default:
		err = fmt.Errorf("unsupported dtype %q", descr)
	}
	if err != nil {
		return nil, 0, 0, err
	}
	return values, rows, cols, nil
}

func parseHeader(header string) (descr string, rows, cols int, err error) {
	m := descrPattern.FindStringSubmatch(header)
	if m == nil {
		return "", 0, 0, fmt.Errorf("header has no descr")
	}
	descr = m[1]

	if m := fortranPattern.FindStringSubmatch(header); m == nil || m[1] != "False" {
		return "", 0, 0, fmt.Errorf("only C-ordered arrays are supported")
	}

	m = shapePattern.FindStringSubmatch(header)
	if m == nil {
		return "", 0, 0, fmt.Errorf("header has no shape")
	}
	var dims []int
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return "", 0, 0, fmt.Errorf("bad shape %q", m[1])
		}
		dims = append(dims, n)
	}
	switch len(dims) {
	case 2:
		return descr, dims[0], dims[1], nil
	case 1:
		if dims[0] == 0 {
			return descr, 0, 0, nil
		}
		// A single vector is one row.
		return descr, 1, dims[0], nil
	default:
		return "", 0, 0, fmt.Errorf("expected a 2-D array, got shape (%s)", m[1])
	}
}

func decodeFloat32(body []byte, n int) ([]float32, error) {
	if len(body) < n*4 {
		return nil, fmt.Errorf("truncated data: %d bytes for %d values", len(body), n)
	}
	return bytesToFloat32Slice(body[:n*4]), nil
}

func decodeFloat64(body []byte, n int) ([]float32, error) {
	if len(body) < n*8 {
		return nil, fmt.Errorf("truncated data: %d bytes for %d values", len(body), n)
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(body[i*8:])))
	}
	return out, nil
}

func decodeFloat16(body []byte, n int) ([]float32, error) {
	if len(body) < n*2 {
		return nil, fmt.Errorf("truncated data: %d bytes for %d values", len(body), n)
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = halfToFloat32(binary.LittleEndian.Uint16(body[i*2:]))
	}
	return out, nil
}

// halfToFloat32 widens an IEEE 754 binary16 value.
func halfToFloat32(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := int32(h>>10) & 0x1f
	frac := uint32(h) & 0x3ff

	switch {
	case exp == 0 && frac == 0:
		return math.Float32frombits(sign)
	case exp == 0:
		// Subnormal: renormalise.
		for frac&0x400 == 0 {
			frac <<= 1
			exp--
		}
		exp++
		frac &= 0x3ff
	case exp == 0x1f:
		return math.Float32frombits(sign | 0xff<<23 | frac<<13)
	}
	return math.Float32frombits(sign | uint32(exp+112)<<23 | frac<<13)
}

// float32SliceToBytes converts a []float32 to little-endian bytes.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts little-endian bytes back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
