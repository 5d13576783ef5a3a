package datalog

import (
	"encoding/binary"
	"fmt"
)

// Encoded value tags. Every encoded value is self-delimiting so tuples
// encode as plain concatenations and compare byte-wise per column.
const (
	tagString byte = 's'
	tagInt    byte = 'i'
	tagSpan   byte = 'p'
)

// EncodeValue serializes a value to bytes
func EncodeValue(v Value) ([]byte, error) {
	return appendValue(nil, v)
}

func appendValue(buf []byte, v Value) ([]byte, error) {
	switch val := v.(type) {
	case string:
		buf = append(buf, tagString)
		buf = binary.AppendUvarint(buf, uint64(len(val)))
		return append(buf, val...), nil
	case int64:
		buf = append(buf, tagInt)
		return binary.BigEndian.AppendUint64(buf, orderedInt(val)), nil
	case Span:
		buf = append(buf, tagSpan)
		buf = binary.BigEndian.AppendUint64(buf, orderedInt(val.Start))
		return binary.BigEndian.AppendUint64(buf, orderedInt(val.End)), nil
	default:
		return nil, Errorf(TypeError, "", "cannot encode value type %T", v)
	}
}

// orderedInt flips the sign bit so big-endian bytes sort like the integers
func orderedInt(i int64) uint64 {
	return uint64(i) ^ (1 << 63)
}

func fromOrderedInt(u uint64) int64 {
	return int64(u ^ (1 << 63))
}

// DecodeValue decodes one value from the front of data and returns the
// number of bytes consumed
func DecodeValue(data []byte) (Value, int, error) {
	if len(data) == 0 {
		return nil, 0, fmt.Errorf("decode value: empty input")
	}
	switch data[0] {
	case tagString:
		n, sz := binary.Uvarint(data[1:])
		if sz <= 0 {
			return nil, 0, fmt.Errorf("decode value: bad string length")
		}
		start := 1 + sz
		end := start + int(n)
		if end > len(data) {
			return nil, 0, fmt.Errorf("decode value: string length %d exceeds input", n)
		}
		return string(data[start:end]), end, nil
	case tagInt:
		if len(data) < 9 {
			return nil, 0, fmt.Errorf("int value must be 8 bytes, got %d", len(data)-1)
		}
		return fromOrderedInt(binary.BigEndian.Uint64(data[1:9])), 9, nil
	case tagSpan:
		if len(data) < 17 {
			return nil, 0, fmt.Errorf("span value must be 16 bytes, got %d", len(data)-1)
		}
		return Span{
			Start: fromOrderedInt(binary.BigEndian.Uint64(data[1:9])),
			End:   fromOrderedInt(binary.BigEndian.Uint64(data[9:17])),
		}, 17, nil
	default:
		return nil, 0, fmt.Errorf("decode value: unknown tag %q", data[0])
	}
}

// EncodeTuple concatenates the encodings of each value.
// The zero-arity tuple encodes to an empty slice.
func EncodeTuple(t Tuple) ([]byte, error) {
	buf := make([]byte, 0, 16*len(t))
	var err error
	for _, v := range t {
		if buf, err = appendValue(buf, v); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// DecodeTuple decodes exactly arity values from data
func DecodeTuple(data []byte, arity int) (Tuple, error) {
	t := make(Tuple, 0, arity)
	for len(t) < arity {
		v, n, err := DecodeValue(data)
		if err != nil {
			return nil, err
		}
		t = append(t, v)
		data = data[n:]
	}
	if len(data) != 0 {
		return nil, fmt.Errorf("decode tuple: %d trailing bytes", len(data))
	}
	return t, nil
}
