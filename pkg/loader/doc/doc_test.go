package doc

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	body := `<w:p><w:r><w:t>Graph theory</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Nodes</w:t><w:tab/><w:t>and edges</w:t></w:r><w:del><w:r><w:t>removed</w:t></w:r></w:del></w:p>` +
		`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>A</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>B</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`

	text, err := Decode(docx(t, body))
	require.NoError(t, err)
	assert.Equal(t, "Graph theory\nNodes\tand edges\nA\n\tB\n", string(text))
	assert.NotContains(t, string(text), "removed")
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte("not a zip"))
	assert.Error(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err = zw.Create("word/other.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	_, err = Decode(buf.Bytes())
	assert.ErrorContains(t, err, "document.xml not found")

	text, err := DecodeReader(bytes.NewReader(docx(t, `<w:p><w:r><w:t>Hi</w:t></w:r></w:p>`)))
	require.NoError(t, err)
	assert.Equal(t, "Hi\n", string(text))
}
