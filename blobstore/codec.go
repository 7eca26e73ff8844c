package blobstore

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// DecodeFunc transforms a raw stored payload into a typed value.
type DecodeFunc func(raw []byte) (any, error)

// ErrDecode wraps every failure converting raw bytes to a requested type.
var ErrDecode = errors.New("blobstore: decode failed")

// encodeValue renders a scalar to its canonical byte representation. The
// supported set mirrors what the typed getters can read back.
func encodeValue(v any) ([]byte, error) {
	switch tv := v.(type) {
	case []byte:
		return tv, nil
	case string:
		return []byte(tv), nil
	case bool:
		return []byte(strconv.FormatBool(tv)), nil
	case int:
		return []byte(strconv.FormatInt(int64(tv), 10)), nil
	case int8:
		return []byte(strconv.FormatInt(int64(tv), 10)), nil
	case int16:
		return []byte(strconv.FormatInt(int64(tv), 10)), nil
	case int32:
		return []byte(strconv.FormatInt(int64(tv), 10)), nil
	case int64:
		return []byte(strconv.FormatInt(tv, 10)), nil
	case uint:
		return []byte(strconv.FormatUint(uint64(tv), 10)), nil
	case uint8:
		return []byte(strconv.FormatUint(uint64(tv), 10)), nil
	case uint16:
		return []byte(strconv.FormatUint(uint64(tv), 10)), nil
	case uint32:
		return []byte(strconv.FormatUint(uint64(tv), 10)), nil
	case uint64:
		return []byte(strconv.FormatUint(tv, 10)), nil
	case float32:
		return []byte(strconv.FormatFloat(float64(tv), 'g', -1, 32)), nil
	case float64:
		return []byte(strconv.FormatFloat(tv, 'g', -1, 64)), nil
	default:
		return nil, fmt.Errorf("blobstore: unsupported value type %T", v)
	}
}

func decodeString(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: payload is not valid UTF-8", ErrDecode)
	}
	return string(raw), nil
}

func decodeInt64(raw []byte) (int64, error) {
	s, err := decodeString(raw)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrDecode, err)
	}
	return n, nil
}

func decodeFloat64(raw []byte) (float64, error) {
	s, err := decodeString(raw)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrDecode, err)
	}
	return f, nil
}
