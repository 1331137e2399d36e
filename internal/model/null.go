package model

import (
	"encoding/json"
	"strconv"
)

// NullInt is an integer that may be unknown, e.g. a census cell that failed to parse.
type NullInt struct {
	Value int64
	Valid bool
}

// IntOf returns a known NullInt.
func IntOf(v int64) NullInt { return NullInt{Value: v, Valid: true} }

// OrZero returns the value, or 0 when unknown.
func (n NullInt) OrZero() int64 {
	if !n.Valid {
		return 0
	}
	return n.Value
}

// String renders the value, or an empty string when unknown.
func (n NullInt) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatInt(n.Value, 10)
}

// MarshalJSON encodes unknown as null.
func (n NullInt) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// UnmarshalJSON decodes null as unknown.
func (n *NullInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = NullInt{}
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = IntOf(v)
	return nil
}

// NullFloat is a floating point value that may be unknown.
type NullFloat struct {
	Value float64
	Valid bool
}

// FloatOf returns a known NullFloat.
func FloatOf(v float64) NullFloat { return NullFloat{Value: v, Valid: true} }

// String renders the value in shortest round-trip form, or an empty string when unknown.
func (n NullFloat) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}
