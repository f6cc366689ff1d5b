package ingest

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
)

// ReadSource resolves raw document bytes for a process request. A
// filesystem path takes precedence; otherwise inline base64 data is
// decoded. One of the two must be set.
func ReadSource(path, encoded string) ([]byte, error) {
	switch {
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading document file: %w", err)
		}
		return data, nil
	case encoded != "":
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decoding document data: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("no document source provided")
	}
}

// DetectType sniffs the document type from leading bytes. The pipeline
// only ingests "pdf"; the other names keep rejection messages precise.
func DetectType(data []byte) string {
	if len(data) == 0 {
		return "unknown"
	}
	if len(data) < 4 {
		if isLikelyText(data) {
			return "txt"
		}
		return "unknown"
	}

	head := bytes.ToLower(bytes.TrimSpace(prefix(data, 256)))
	if bytes.HasPrefix(head, []byte("%pdf")) {
		return "pdf"
	}
	if bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html")) {
		return "html"
	}

	// ZIP local-file header, PK plus a version marker. A word/ entry
	// near the front distinguishes DOCX from a bare archive.
	if data[0] == 'P' && data[1] == 'K' && (data[2] == 3 || data[2] == 5 || data[2] == 7) {
		if bytes.Contains(prefix(data, 1024), []byte("word/")) {
			return "docx"
		}
		return "zip"
	}

	if isLikelyText(data) {
		for _, marker := range [][]byte{[]byte("# "), []byte("## "), []byte("```")} {
			if bytes.Contains(prefix(data, 1024), marker) {
				return "md"
			}
		}
		return "txt"
	}
	return "unknown"
}

// isLikelyText reports whether the data reads as plain text. Any NUL
// byte in the sample means binary; otherwise at least 90% of the sample
// must be printable ASCII or common whitespace.
func isLikelyText(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	sample := prefix(data, 512)
	text := 0
	for _, b := range sample {
		switch {
		case b == 0:
			return false
		case b >= 32 && b <= 126, b == '\n', b == '\r', b == '\t':
			text++
		}
	}
	return float64(text)/float64(len(sample)) > 0.9
}

func prefix(data []byte, n int) []byte {
	if len(data) <= n {
		return data
	}
	return data[:n]
}
