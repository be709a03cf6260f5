package doc

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const docXMLMax = 50 << 20

var blankRuns = regexp.MustCompile(`\n{3,}`)

// docxText accumulates the text of word/document.xml.
type docxText struct {
	sb       strings.Builder
	inText   bool
	delDepth int
	inTable  bool
	cell     int
}

func (d *docxText) live() bool { return d.delDepth == 0 }

func (d *docxText) newline() {
	if d.sb.Len() > 0 && !strings.HasSuffix(d.sb.String(), "\n") {
		d.sb.WriteByte('\n')
	}
}

func (d *docxText) start(name string) {
	switch name {
	case "del":
		d.delDepth++
	case "t":
		d.inText = true
	case "tab":
		if d.live() {
			d.sb.WriteByte('\t')
		}
	case "br", "cr":
		if d.live() {
			d.sb.WriteByte('\n')
		}
	case "noBreakHyphen":
		if d.live() {
			d.sb.WriteByte('-')
		}
	case "tbl":
		d.inTable = true
		d.cell = 0
		d.newline()
	case "tr":
		d.cell = 0
	case "tc":
		if d.inTable && d.live() {
			if d.cell > 0 {
				d.sb.WriteByte('\t')
			}
			d.cell++
		}
	}
}

func (d *docxText) end(name string) {
	switch name {
	case "t":
		d.inText = false
	case "p", "tr":
		if d.live() {
			d.sb.WriteByte('\n')
		}
	case "tbl":
		d.inTable = false
		if d.live() {
			d.sb.WriteByte('\n')
		}
	case "del":
		if d.delDepth > 0 {
			d.delDepth--
		}
	}
}

func (d *docxText) String() string {
	text := blankRuns.ReplaceAllString(strings.TrimSpace(d.sb.String()), "\n\n")
	if text != "" {
		text += "\n"
	}
	return text
}

func parseDocx(content []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open docx: %w", err)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body = f
			break
		}
	}
	if body == nil {
		return nil, errors.New("document.xml not found in docx")
	}
	if body.UncompressedSize64 > docXMLMax {
		return nil, fmt.Errorf("document.xml too large: %d bytes", body.UncompressedSize64)
	}

	rc, err := body.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open document.xml: %w", err)
	}
	defer rc.Close()

	var d docxText
	dec := xml.NewDecoder(io.LimitReader(rc, docXMLMax))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse XML: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			d.start(t.Name.Local)
		case xml.EndElement:
			d.end(t.Name.Local)
		case xml.CharData:
			if d.inText && d.live() {
				d.sb.Write(t)
			}
		}
	}
	return []byte(d.String()), nil
}
