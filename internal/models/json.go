package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// FlexString decodes from either a JSON string or a JSON number. The remote
// service is inconsistent about numeric identifiers.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// FlexTime is a timestamp that arrives either as an RFC 3339 string or as
// unix seconds. It is kept as the RFC 3339 text.
type FlexTime string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexTime) UnmarshalJSON(data []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	if secs, err := strconv.ParseInt(string(s), 10, 64); err == nil {
		*f = FlexTime(time.Unix(secs, 0).UTC().Format(time.RFC3339))
		return nil
	}
	*f = FlexTime(s)
	return nil
}

// Time parses the timestamp. The zero time is returned when it is empty or
// unparseable.
func (f FlexTime) Time() time.Time {
	t, err := time.Parse(time.RFC3339, string(f))
	if err != nil {
		return time.Time{}
	}
	return t
}
