package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Inbound decode errors (stable for errors.Is in the gateway).
var (
	ErrBadJSON       = errors.New("invalid JSON")
	ErrMissingType   = errors.New("missing type")
	ErrMissingUserID = errors.New("userId is required")
	ErrInvalidUserID = errors.New("userId must be numeric")
)

// InboundFrame is the decoded shape of any client -> server frame.
// Only the type field is required; userId is consumed by the authenticate handler.
type InboundFrame struct {
	Type   string          `json:"type"`
	UserID json.RawMessage `json:"userId"`
}

// DecodeInbound parses raw bytes into an InboundFrame.
// Non-JSON input and JSON without a string type field both map to decode errors;
// the gateway answers them with an error frame and no state change.
func DecodeInbound(raw []byte) (InboundFrame, error) {
	var probe struct {
		Type json.RawMessage `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return InboundFrame{}, fmt.Errorf("%w: %v", ErrBadJSON, err)
	}

	var typ string
	if len(probe.Type) == 0 || json.Unmarshal(probe.Type, &typ) != nil {
		return InboundFrame{}, ErrMissingType
	}
	if strings.TrimSpace(typ) == "" {
		return InboundFrame{}, ErrMissingType
	}

	var f InboundFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		// type decoded above, so any failure here is a malformed optional field.
		return InboundFrame{}, fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
	return f, nil
}

// SubjectID extracts the numeric userId from an authenticate frame.
// A missing field and a non-numeric field are distinct, stable errors.
func (f InboundFrame) SubjectID() (int64, error) {
	if len(f.UserID) == 0 || string(f.UserID) == "null" {
		return 0, ErrMissingUserID
	}

	var n float64
	if err := json.Unmarshal(f.UserID, &n); err != nil {
		return 0, ErrInvalidUserID
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
		return 0, ErrInvalidUserID
	}
	return int64(n), nil
}
