package pdftotext

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

var commandContext = exec.CommandContext

// Client invokes the pdftotext binary.
type Client struct {
	binary string
}

// NewClient constructs a client for the given binary name or path. An empty
// name falls back to "pdftotext" on PATH.
func NewClient(binary string) *Client {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "pdftotext"
	}
	return &Client{binary: binary}
}

// Binary returns the configured executable name.
func (c *Client) Binary() string {
	return c.binary
}

// Available reports whether the binary resolves on PATH.
func (c *Client) Available() bool {
	_, err := exec.LookPath(c.binary)
	return err == nil
}

// Extract renders the PDF at src into UTF-8 plain text at dest. Layout mode
// keeps column alignment so downstream table detection can see row structure.
func (c *Client) Extract(ctx context.Context, src, dest string) error {
	if strings.TrimSpace(src) == "" {
		return fmt.Errorf("source path required")
	}
	if strings.TrimSpace(dest) == "" {
		return fmt.Errorf("destination path required")
	}

	cmd := commandContext(ctx, c.binary, "-layout", "-enc", "UTF-8", src, dest) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return fmt.Errorf("%s: %s: %w", c.binary, detail, err)
		}
		return fmt.Errorf("%s: %w", c.binary, err)
	}
	return nil
}
