package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	appErr "ztfalerts/pkg/errors"
)

// Field names of the alert document.
const (
	FieldObjectID           = "objectId"
	FieldFirstDetection     = "first_detection"
	FieldLatestDetection    = "latest_detection"
	FieldUTCFirstDetection  = "utc_first_detection"
	FieldUTCLatestDetection = "utc_latest_detection"
)

// Record is one decoded alert. Numbers stay as json.Number so identifiers
// such as candid survive a decode/encode cycle unchanged.
type Record map[string]any

// Parse decodes a JSON object payload into a Record.
func Parse(payload []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, appErr.Wrapf(err, appErr.PayloadMalformed, "decode alert payload")
	}
	if rec == nil {
		return nil, appErr.New(appErr.PayloadMalformed).WithMessage("alert payload is not a JSON object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, appErr.New(appErr.PayloadMalformed).WithMessage("alert payload has trailing data")
	}
	return rec, nil
}

// Marshal encodes the record as a single JSON line without the trailing newline.
func (r Record) Marshal() ([]byte, error) {
	data, err := json.Marshal(map[string]any(r))
	if err != nil {
		return nil, fmt.Errorf("encode alert: %w", err)
	}
	return data, nil
}

// ObjectID returns the objectId field, or "" when it is missing or not a string.
func (r Record) ObjectID() string {
	id, _ := r[FieldObjectID].(string)
	return id
}

// PartitionKey returns the calendar date of the normalized latest detection,
// or "" when it cannot be derived.
func (r Record) PartitionKey() string {
	utc, ok := r[FieldUTCLatestDetection].(string)
	if !ok || len(utc) < 10 {
		return ""
	}
	return utc[:10]
}
