package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Digest canonicalizes the value, serializes it with sorted object keys
// and returns the lowercase hex SHA-256 of the result. Two semantically
// equal values always produce the same digest regardless of field order
// or the in-memory date representation.
func Digest(value any) (string, error) {
	canonical, err := Canonicalize(value)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = stableMarshal(canonical, &buf)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

// Deterministic JSON encoding: object keys sorted at every nesting level,
// no insignificant whitespace. Only canonical shapes are accepted.
func stableMarshal(value any, buf *bytes.Buffer) (err error) {
	switch v := value.(type) {
	case nil:
		buf.WriteString("null")
		return

	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			var encodedKey []byte
			encodedKey, err = json.Marshal(key)
			if err != nil {
				return
			}
			buf.Write(encodedKey)
			buf.WriteByte(':')
			err = stableMarshal(v[key], buf)
			if err != nil {
				return
			}
		}
		buf.WriteByte('}')
		return

	case []any:
		buf.WriteByte('[')
		for i, element := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			err = stableMarshal(element, buf)
			if err != nil {
				return
			}
		}
		buf.WriteByte(']')
		return

	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		var encoded []byte
		encoded, err = json.Marshal(v)
		if err != nil {
			return
		}
		buf.Write(encoded)
		return

	default:
		return fmt.Errorf("%w: unexpected type %T after canonicalization", ErrCanonicalize, value)
	}
}
