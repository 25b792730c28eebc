package fbx

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// deflate cannot expand data by more than about 1032:1
const maxDeflateRatio = 1032

func dataToken(t Token, minLen int) ([]byte, error) {
	if t.Type != TokenData {
		return nil, errors.Errorf("expected data token at offset 0x%x, got %v", t.Offset, t.Type)
	}
	if len(t.Data) < minLen {
		return nil, errors.Errorf("data token at offset 0x%x is truncated", t.Offset)
	}
	return t.Data, nil
}

func typeMismatch(t Token, want string) error {
	return errors.Errorf("data token at offset 0x%x: expected %s, got type code %q", t.Offset, want, t.Data[0])
}

func ParseTokenAsID(t Token) (uint64, error) {
	d, err := dataToken(t, 1)
	if err != nil {
		return 0, err
	}
	if d[0] != 'L' || len(d) < 9 {
		return 0, typeMismatch(t, "L (id)")
	}
	return binary.LittleEndian.Uint64(d[1:]), nil
}

func ParseTokenAsInt(t Token) (int, error) {
	d, err := dataToken(t, 1)
	if err != nil {
		return 0, err
	}
	switch {
	case d[0] == 'I' && len(d) >= 5:
		return int(int32(binary.LittleEndian.Uint32(d[1:]))), nil
	case d[0] == 'Y' && len(d) >= 3:
		return int(int16(binary.LittleEndian.Uint16(d[1:]))), nil
	case d[0] == 'C' && len(d) >= 2:
		return int(d[1]), nil
	}
	return 0, typeMismatch(t, "I (int)")
}

func ParseTokenAsInt64(t Token) (int64, error) {
	d, err := dataToken(t, 1)
	if err != nil {
		return 0, err
	}
	if d[0] == 'L' && len(d) >= 9 {
		return int64(binary.LittleEndian.Uint64(d[1:])), nil
	}
	if d[0] == 'I' || d[0] == 'Y' || d[0] == 'C' {
		v, err := ParseTokenAsInt(t)
		return int64(v), err
	}
	return 0, typeMismatch(t, "L (int64)")
}

func ParseTokenAsFloat(t Token) (float64, error) {
	d, err := dataToken(t, 1)
	if err != nil {
		return 0, err
	}
	switch {
	case d[0] == 'F' && len(d) >= 5:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(d[1:]))), nil
	case d[0] == 'D' && len(d) >= 9:
		return math.Float64frombits(binary.LittleEndian.Uint64(d[1:])), nil
	}
	return 0, typeMismatch(t, "F or D (float)")
}

func ParseTokenAsString(t Token) (string, error) {
	d, err := dataToken(t, 1)
	if err != nil {
		return "", err
	}
	if d[0] != 'S' || len(d) < 5 {
		return "", typeMismatch(t, "S (string)")
	}
	n := binary.LittleEndian.Uint32(d[1:])
	if uint64(n) > uint64(len(d)-5) {
		return "", errors.Errorf("string token at offset 0x%x is truncated", t.Offset)
	}
	return string(d[5 : 5+n]), nil
}

// ParseTokenAsBytes returns the payload of a raw ('R') property without copying.
func ParseTokenAsBytes(t Token) ([]byte, error) {
	d, err := dataToken(t, 1)
	if err != nil {
		return nil, err
	}
	if d[0] != 'R' || len(d) < 5 {
		return nil, typeMismatch(t, "R (raw)")
	}
	n := binary.LittleEndian.Uint32(d[1:])
	if uint64(n) > uint64(len(d)-5) {
		return nil, errors.Errorf("raw token at offset 0x%x is truncated", t.Offset)
	}
	return d[5 : 5+n], nil
}

func arrayStride(typ byte) int {
	switch typ {
	case 'f', 'i':
		return 4
	case 'd', 'l':
		return 8
	case 'c', 'b':
		return 1
	}
	return 0
}

// decodeArray returns the element type code, count and uncompressed payload of an array property.
func decodeArray(t Token) (byte, int, []byte, error) {
	d, err := dataToken(t, 13)
	if err != nil {
		return 0, 0, nil, err
	}
	typ := d[0]
	stride := arrayStride(typ)
	if stride == 0 {
		return 0, 0, nil, typeMismatch(t, "array")
	}
	count := uint64(binary.LittleEndian.Uint32(d[1:]))
	encoding := binary.LittleEndian.Uint32(d[5:])
	compLen := uint64(binary.LittleEndian.Uint32(d[9:]))
	payload := d[13:]
	if compLen > uint64(len(payload)) {
		return 0, 0, nil, errors.Errorf("array token at offset 0x%x is truncated", t.Offset)
	}
	payload = payload[:compLen]
	size := count * uint64(stride)

	switch encoding {
	case 0:
		if uint64(len(payload)) < size {
			return 0, 0, nil, errors.Errorf("array token at offset 0x%x: %d elements do not fit %d bytes", t.Offset, count, len(payload))
		}
		return typ, int(count), payload[:size], nil
	case 1:
		if size > compLen*maxDeflateRatio+64 {
			return 0, 0, nil, errors.Errorf("array token at offset 0x%x: implausible element count %d", t.Offset, count)
		}
		r, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return 0, 0, nil, errors.Wrapf(err, "array token at offset 0x%x", t.Offset)
		}
		defer r.Close()
		buf := make([]byte, size)
		if _, err := io.ReadFull(r, buf); err != nil {
			return 0, 0, nil, errors.Wrapf(err, "failed to inflate array at offset 0x%x", t.Offset)
		}
		return typ, int(count), buf, nil
	}
	return 0, 0, nil, errors.Errorf("array token at offset 0x%x: unknown encoding %d", t.Offset, encoding)
}

// ParseFloat64Array accepts 'd' and 'f' arrays.
func ParseFloat64Array(t Token) ([]float64, error) {
	typ, n, b, err := decodeArray(t)
	if err != nil {
		return nil, err
	}
	r := make([]float64, n)
	switch typ {
	case 'd':
		for i := range r {
			r[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
		}
	case 'f':
		for i := range r {
			r[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
		}
	default:
		return nil, typeMismatch(t, "d or f array")
	}
	return r, nil
}

func ParseFloat32Array(t Token) ([]float32, error) {
	v, err := ParseFloat64Array(t)
	if err != nil {
		return nil, err
	}
	r := make([]float32, len(v))
	for i, f := range v {
		r[i] = float32(f)
	}
	return r, nil
}

func ParseInt32Array(t Token) ([]int32, error) {
	typ, n, b, err := decodeArray(t)
	if err != nil {
		return nil, err
	}
	if typ != 'i' {
		return nil, typeMismatch(t, "i array")
	}
	r := make([]int32, n)
	for i := range r {
		r[i] = int32(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return r, nil
}

// ParseInt64Array accepts 'l' and 'i' arrays.
func ParseInt64Array(t Token) ([]int64, error) {
	typ, n, b, err := decodeArray(t)
	if err != nil {
		return nil, err
	}
	r := make([]int64, n)
	switch typ {
	case 'l':
		for i := range r {
			r[i] = int64(binary.LittleEndian.Uint64(b[i*8:]))
		}
	case 'i':
		for i := range r {
			r[i] = int64(int32(binary.LittleEndian.Uint32(b[i*4:])))
		}
	default:
		return nil, typeMismatch(t, "l or i array")
	}
	return r, nil
}
