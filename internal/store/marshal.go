package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// marshalWords serializes stimulus words as a JSON array of integers. The
// representation is canonical: no whitespace, decimal digits only.
func marshalWords(words []uint64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, w := range words {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(w, 10))
	}
	b.WriteByte(']')
	return b.String()
}

func unmarshalWords(data string) ([]uint64, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var words []uint64
	if err := json.Unmarshal([]byte(data), &words); err != nil {
		return nil, fmt.Errorf("unmarshal words: %w", err)
	}
	return words, nil
}

// marshalParams serializes parameter overrides as canonical JSON: NFC
// normalized keys in sorted order, no whitespace, no HTML escaping. Two
// equal parameter sets always produce the same text, so stored runs can be
// compared byte for byte.
func marshalParams(params map[string]int64) (string, error) {
	if len(params) == 0 {
		return "{}", nil
	}
	normalized := make(map[string]int64, len(params))
	keys := make([]string, 0, len(params))
	for k, v := range params {
		nk := norm.NFC.String(k)
		if _, dup := normalized[nk]; dup {
			return "", fmt.Errorf("marshal params: keys collide after normalization: %q", nk)
		}
		normalized[nk] = v
		keys = append(keys, nk)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		ek, err := encodeString(k)
		if err != nil {
			return "", fmt.Errorf("marshal params: %w", err)
		}
		b.WriteString(ek)
		b.WriteByte(':')
		b.WriteString(strconv.FormatInt(normalized[k], 10))
	}
	b.WriteByte('}')
	return b.String(), nil
}

func unmarshalParams(data string) (map[string]int64, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var params map[string]int64
	if err := json.Unmarshal([]byte(data), &params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	return params, nil
}

// encodeString JSON-encodes s without HTML escaping.
func encodeString(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	// Encode appends a trailing newline.
	return strings.TrimSpace(buf.String()), nil
}
