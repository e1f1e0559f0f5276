package marshaller

import (
	"encoding/json"

	"github.com/wgnet/clacks/errors"
	"github.com/wgnet/clacks/message"
)

// JSON is the reference JSON marshaller. encoding/json already renders
// map keys in sorted order, which satisfies the specification's
// "lexicographically sorted keys" requirement without extra work.
type JSON struct{}

// NewJSON returns the JSON marshaller.
func NewJSON() JSON { return JSON{} }

func (JSON) Name() string { return "text/json" }

// Encode renders an empty payload as an empty body, the inverse of
// Decode's empty-data case.
func (JSON) Encode(txid message.TxID, payload Payload) ([]byte, error) {
	if len(payload) == 0 {
		return []byte{}, nil
	}
	b, err := json.Marshal(map[string]any(payload))
	if err != nil {
		return nil, errors.Wrap(errors.KindMarshalError, err, "json marshaller: encode")
	}
	return b, nil
}

func (JSON) Decode(txid message.TxID, header message.Header, data []byte) (Payload, error) {
	if len(data) == 0 {
		return Payload{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(errors.KindUnmarshalError, err, "json marshaller: decode")
	}
	return Payload(out), nil
}
