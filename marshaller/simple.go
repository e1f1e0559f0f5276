package marshaller

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/wgnet/clacks/errors"
	"github.com/wgnet/clacks/message"
)

// Tuple marks a sequence that should round-trip through the Simple
// codec as a "tuple" entry rather than a "list" entry. Go has no
// native tuple type; this is the minimal distinguishing wrapper the
// Simple wire format needs to preserve the source type tag.
type Tuple []any

const (
	typeStr   = "str"
	typeInt   = "int"
	typeFloat = "float"
	typeBool  = "bool"
	typeNone  = "None"
	typeList  = "list"
	typeTuple = "tuple"
	typeDict  = "dict"
)

// Simple is the line-oriented reference marshaller: each payload entry
// becomes one line of "<type>/<key>/<hex-encoded value>\n". Values are
// UTF-8 encoded then hex-rendered so that slashes and newlines embedded
// in strings never break framing.
type Simple struct{}

// NewSimple returns the Simple marshaller.
func NewSimple() Simple { return Simple{} }

func (Simple) Name() string { return "text/simple" }

func (Simple) Encode(txid message.TxID, payload Payload) ([]byte, error) {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		if strings.ContainsAny(key, "/\n") {
			return nil, errors.New(errors.KindMarshalError, "simple marshaller: key %q contains a reserved character", key)
		}
		typ, hexVal, err := encodeSimpleValue(payload[key])
		if err != nil {
			return nil, errors.Wrap(errors.KindMarshalError, err, "simple marshaller: encoding key %q", key)
		}
		b.WriteString(typ)
		b.WriteByte('/')
		b.WriteString(key)
		b.WriteByte('/')
		b.WriteString(hexVal)
		b.WriteByte('\n')
	}
	return []byte(b.String()), nil
}

func encodeSimpleValue(v any) (typ string, hexVal string, err error) {
	switch val := v.(type) {
	case nil:
		return typeNone, "", nil
	case string:
		return typeStr, hex.EncodeToString([]byte(val)), nil
	case bool:
		if val {
			return typeBool, hex.EncodeToString([]byte("true")), nil
		}
		return typeBool, hex.EncodeToString([]byte("false")), nil
	case int:
		return typeInt, hex.EncodeToString([]byte(strconv.Itoa(val))), nil
	case int64:
		return typeInt, hex.EncodeToString([]byte(strconv.FormatInt(val, 10))), nil
	case float64:
		return typeFloat, hex.EncodeToString([]byte(strconv.FormatFloat(val, 'g', -1, 64))), nil
	case float32:
		return typeFloat, hex.EncodeToString([]byte(strconv.FormatFloat(float64(val), 'g', -1, 64))), nil
	case Tuple:
		raw, jerr := json.Marshal([]any(val))
		if jerr != nil {
			return "", "", jerr
		}
		return typeTuple, hex.EncodeToString(raw), nil
	case []any:
		raw, jerr := json.Marshal(val)
		if jerr != nil {
			return "", "", jerr
		}
		return typeList, hex.EncodeToString(raw), nil
	case map[string]any:
		raw, jerr := json.Marshal(val)
		if jerr != nil {
			return "", "", jerr
		}
		return typeDict, hex.EncodeToString(raw), nil
	default:
		return "", "", fmt.Errorf("unsupported value type %T", v)
	}
}

func (Simple) Decode(txid message.TxID, header message.Header, data []byte) (Payload, error) {
	out := make(Payload)
	text := string(data)
	if text == "" {
		return out, nil
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for _, line := range lines {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "/", 3)
		if len(parts) != 3 {
			return nil, errors.New(errors.KindUnmarshalError, "simple marshaller: malformed line %q", line)
		}
		typ, key, hexVal := parts[0], parts[1], parts[2]
		raw, err := hex.DecodeString(hexVal)
		if err != nil {
			return nil, errors.Wrap(errors.KindUnmarshalError, err, "simple marshaller: bad hex for key %q", key)
		}
		val, err := decodeSimpleValue(typ, raw)
		if err != nil {
			return nil, errors.Wrap(errors.KindUnmarshalError, err, "simple marshaller: decoding key %q", key)
		}
		out[key] = val
	}
	return out, nil
}

func decodeSimpleValue(typ string, raw []byte) (any, error) {
	switch typ {
	case typeNone:
		return nil, nil
	case typeStr:
		return string(raw), nil
	case typeBool:
		return string(raw) == "true", nil
	case typeInt:
		n, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return nil, err
		}
		return n, nil
	case typeFloat:
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return nil, err
		}
		return f, nil
	case typeList:
		var v []any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case typeTuple:
		var v []any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return Tuple(v), nil
	case typeDict:
		var v map[string]any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown type tag %q", typ)
	}
}
