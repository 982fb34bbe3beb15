// Package playerv1 defines the messages of the queuebox player API, version 1.
// Messages travel as JSON.
package playerv1

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// CodecName is the codec name negotiated over the wire (application/json).
const CodecName = "json"

// Codec marshals API messages as JSON.
type Codec struct{}

// Name implements connect.Codec.
func (Codec) Name() string {
	return CodecName
}

// Marshal implements connect.Codec.
func (Codec) Marshal(message any) ([]byte, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal %T", message)
	}
	return data, nil
}

// Unmarshal implements connect.Codec.
func (Codec) Unmarshal(data []byte, message any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, message); err != nil {
		return errors.Wrapf(err, "failed to unmarshal %T", message)
	}
	return nil
}
