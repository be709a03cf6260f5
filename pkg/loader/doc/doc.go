// Package doc extracts plain text from Word (.docx) documents.
package doc

import (
	"fmt"
	"io"
)

// Extension is the file extension handled by Decode.
const Extension = ".docx"

// Decode returns the text of a .docx document. Paragraphs and table rows
// end in a newline, table cells are separated by tabs and tracked
// deletions are left out.
func Decode(content []byte) ([]byte, error) {
	text, err := parseDocx(content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode docx: %w", err)
	}
	return text, nil
}

// DecodeReader is Decode for a reader.
func DecodeReader(r io.Reader) ([]byte, error) {
	content, err := io.ReadAll(io.LimitReader(r, docXMLMax))
	if err != nil {
		return nil, err
	}
	return Decode(content)
}
