// Package codec handles snapshot payload storage encoding: gzip at maximum
// effort, base64 text-safe framing, and SHA-256 content hashing over the
// uncompressed payload for dedup identity.
package codec

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

// Compress gzips payload at BestCompression and returns the raw bytes.
func Compress(payload string) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("codec: gzip writer: %w", err)
	}
	if _, err := io.WriteString(w, payload); err != nil {
		w.Close()
		return nil, fmt.Errorf("codec: compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("codec: compress flush: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress gunzips data. On failure the input is returned unchanged with
// wasCompressed=false so callers can treat old or uncompressed rows as raw
// text instead of failing the read.
func Decompress(data []byte) (text string, wasCompressed bool) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return string(data), false
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return string(data), false
	}
	return string(out), true
}

// Encode wraps compressed bytes for storage in a TEXT column.
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode reverses Encode. Data that is not valid base64 is returned as-is;
// rows written before compression was introduced hold plain HTML.
func Decode(stored string) []byte {
	data, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return []byte(stored)
	}
	return data
}

// Hash returns the SHA-256 hex digest of the uncompressed payload. The
// digest is the dedup identity, so it must be stable across processes and
// machines.
func Hash(payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return fmt.Sprintf("%x", sum)
}
