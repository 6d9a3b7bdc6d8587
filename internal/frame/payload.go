package frame

import (
	"encoding/base64"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

const (
	dataURIScheme    = "data:"
	defaultMediaType = "image/jpeg"
)

// Normalize turns a raw frame payload into canonical padded base64 text.
// A data-URI prefix is stripped, whitespace the transport may have
// inserted is removed and missing padding is restored.
func Normalize(raw string) (string, error) {
	if raw == "" {
		return "", errors.Wrap(ErrMalformedPayload, "empty payload")
	}

	s := raw
	if strings.HasPrefix(s, dataURIScheme) {
		idx := strings.IndexByte(s, ',')
		if idx < 0 {
			return "", errors.Wrap(ErrMalformedPayload, "data URI without payload separator")
		}
		s = s[idx+1:]
	}

	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return "", errors.Wrap(ErrMalformedPayload, "empty payload")
	}

	switch len(s) % 4 {
	case 2:
		s += "=="
	case 3:
		s += "="
	case 1:
		return "", errors.Wrapf(ErrMalformedPayload, "invalid base64 length %d", len(s))
	}
	return s, nil
}

// Decode normalizes raw and decodes it to binary image data.
func Decode(raw string) ([]byte, error) {
	s, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(ErrDecodeFailure, "base64: %v", err)
	}
	return data, nil
}

// MediaType reports the media type named by a data-URI prefix, or
// image/jpeg when the payload carries none.
func MediaType(raw string) string {
	if !strings.HasPrefix(raw, dataURIScheme) {
		return defaultMediaType
	}
	head := raw[len(dataURIScheme):]
	if idx := strings.IndexByte(head, ','); idx >= 0 {
		head = head[:idx]
	}
	if idx := strings.IndexByte(head, ';'); idx >= 0 {
		head = head[:idx]
	}
	if head == "" {
		return defaultMediaType
	}
	return head
}
