// Package idempotency computes stable content hashes for catalog documents
// and answers whether a stage already completed for the current content.
package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/unicode/norm"
)

// sniffLen bounds how much of a file is inspected to decide text vs binary.
const sniffLen = 8192

// HashBytes returns the hex SHA-256 of data. Text input is canonicalized
// first so the same document hashes identically across hosts and editors.
func HashBytes(data []byte) string {
	if !looksBinary(data) {
		data = normalizeText(data)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashFile returns the hex SHA-256 of the file at path. Binary content is
// streamed; text content is read fully so normalization can run before
// hashing.
func HashFile(ctx context.Context, path string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	head = head[:n]

	if looksBinary(head) {
		h := sha256.New()
		_, _ = h.Write(head)
		if _, err := io.Copy(h, file); err != nil {
			return "", fmt.Errorf("hash %s: %w", path, err)
		}
		return hex.EncodeToString(h.Sum(nil)), nil
	}

	rest, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return HashBytes(append(head, rest...)), nil
}

// looksBinary treats any NUL byte in the sample as a binary signal. PDF and
// image inputs always trip this; plain text never contains NUL.
func looksBinary(sample []byte) bool {
	if len(sample) > sniffLen {
		sample = sample[:sniffLen]
	}
	return bytes.IndexByte(sample, 0) >= 0
}

// normalizeText canonicalizes line endings to LF and applies Unicode NFC so
// byte-level differences that render identically do not change the hash.
func normalizeText(data []byte) []byte {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	data = bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))
	return norm.NFC.Bytes(data)
}
