package qr

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// DataURI turns a login code payload into something an <img> can show.
// data: URIs pass through and bare base64 is assumed to be a PNG. Anything
// else cannot be displayed and yields false.
func DataURI(payload string) (string, bool) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", false
	}
	if strings.HasPrefix(payload, "data:") {
		return payload, true
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		if _, err := base64.RawStdEncoding.DecodeString(payload); err != nil {
			return "", false
		}
	}
	return "data:image/png;base64," + payload, true
}

// Decode returns the image bytes and media type behind a payload. Only
// base64 data URIs and bare base64 can be decoded.
func Decode(payload string) ([]byte, string, error) {
	uri, ok := DataURI(payload)
	if !ok {
		return nil, "", errors.New("qr: payload is not an image")
	}
	meta, data, found := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !found || !strings.HasSuffix(meta, ";base64") {
		return nil, "", errors.New("qr: data URI is not base64 encoded")
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		if raw, err = base64.RawStdEncoding.DecodeString(data); err != nil {
			return nil, "", fmt.Errorf("qr: decode: %w", err)
		}
	}
	return raw, strings.TrimSuffix(meta, ";base64"), nil
}
