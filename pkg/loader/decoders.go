package loader

import (
	"github.com/dslunde/Glyph-sub000/pkg/loader/csv"
	"github.com/dslunde/Glyph-sub000/pkg/loader/doc"
)

// DefaultDecoders returns the decoders for the binary and tabular formats
// the loaders understand.
func DefaultDecoders() map[string]Decoder {
	return map[string]Decoder{
		doc.Extension: doc.Decode,
		csv.Extension: csv.Decode,
	}
}
