package cache

import (
	"encoding/json"
	"strings"

	"github.com/drpcorg/swarmdb/rdx"
	"github.com/pkg/errors"
)

// RefPrefix marks a string value as an object reference: ">1Cq2+alice"
const RefPrefix = ">"

var ErrBadPayload = errors.New("cache: bad payload")

// Decode turns a notification payload into a cached value. Raw JSON
// (string or bytes) is parsed, references become rdx.UUID values, and
// an empty payload stands for a known object with no state yet.
// Anything else is taken verbatim.
func Decode(id string, payload any) (any, error) {
	var raw []byte
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case string:
		raw = []byte(p)
	case []byte:
		raw = p
	case json.RawMessage:
		raw = p
	default:
		return payload, nil
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return map[string]any{"id": id, "version": rdx.Zero.String()}, nil
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, errors.Wrapf(ErrBadPayload, "%s: %v", id, err)
	}
	return refs(value), nil
}

func refs(value any) any {
	switch v := value.(type) {
	case string:
		if ref, ok := ParseRef(v); ok {
			return ref
		}
	case map[string]any:
		for key, val := range v {
			v[key] = refs(val)
		}
	case []any:
		for i, val := range v {
			v[i] = refs(val)
		}
	}
	return value
}

// ParseRef recognizes ">id" strings
func ParseRef(str string) (rdx.UUID, bool) {
	if !strings.HasPrefix(str, RefPrefix) {
		return rdx.ZeroUUID, false
	}
	id, err := rdx.ParseUUID(str[len(RefPrefix):])
	if err != nil {
		return rdx.ZeroUUID, false
	}
	return id, true
}

// Ref is the inverse of ParseRef
func Ref(id rdx.UUID) string {
	return RefPrefix + id.String()
}
