package session

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Share is the portable session bundle: the prompt list plus the full
// settings, carried as base64 JSON either in a URL fragment or a pasted
// blob. Both transports carry identical bytes.
type Share struct {
	Prompts  []string  `json:"prompts"`
	Settings *Settings `json:"settings"`
}

// EncodeShare renders the bundle as a base64 blob. Marshaling is
// deterministic, so equal bundles produce equal blobs.
func EncodeShare(share *Share) (string, error) {
	data, err := json.Marshal(share)
	if err != nil {
		return "", fmt.Errorf("encode share: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeShare parses a blob produced by EncodeShare. A full share URL works
// too: everything up to the last '#' is stripped first. The base64 alphabet
// never contains '#', so a bare blob passes through untouched.
func DecodeShare(blob string) (*Share, error) {
	blob = strings.TrimSpace(blob)
	if i := strings.LastIndex(blob, "#"); i >= 0 {
		blob = blob[i+1:]
	}

	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("decode share: %w", err)
	}
	var share Share
	if err := json.Unmarshal(data, &share); err != nil {
		return nil, fmt.Errorf("decode share: %w", err)
	}
	return &share, nil
}
