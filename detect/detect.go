// Package detect sniffs file content types from magic bytes.
package detect

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/h2non/filetype"

	"github.com/lehigh-university-libraries/saftools/helpers"
)

const (
	// PDF is the MIME type every listed PDF must detect as.
	PDF = "application/pdf"

	HTML    = "text/html"
	Text    = "text/plain"
	Binary  = "application/octet-stream"
	Empty   = "inode/x-empty"
	headLen = 8192
)

// MIMEType returns the detected MIME type of the file at path.
func MIMEType(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, headLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return FromBytes(head[:n]), nil
}

// FromBytes classifies the head of a file.
func FromBytes(head []byte) string {
	if len(head) == 0 {
		return Empty
	}

	kind, err := filetype.Match(head)
	if err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}

	if helpers.LooksLikeHTMLDocument(head) {
		return HTML
	}
	if isText(head) {
		return Text
	}
	return Binary
}

func isText(head []byte) bool {
	// The head may end mid-rune.
	for len(head) > 0 {
		r, size := utf8.DecodeRune(head)
		if r == utf8.RuneError && size == 1 {
			return len(head) < utf8.UTFMax
		}
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' && r != '\f' {
			return false
		}
		head = head[size:]
	}
	return true
}
