package extract_test

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/kart-io/ragserve/internal/pkg/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSupported(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		expected bool
	}{
		{"纯文本文件", "notes.txt", true},
		{"PDF 文件", "report.pdf", true},
		{"DOCX 文件", "contract.docx", true},
		{"大写扩展名", "NOTES.TXT", true},
		{"不支持的格式", "image.png", false},
		{"旧版 doc 格式", "legacy.doc", false},
		{"无扩展名", "README", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extract.IsSupported(tt.filename))
		})
	}
}

func TestTextTxt(t *testing.T) {
	content := "Hello, 世界!\n第二行内容。"
	text, err := extract.Text("doc.txt", []byte(content))
	require.NoError(t, err)
	assert.Equal(t, content, text)
}

func TestTextTxtInvalidUTF8(t *testing.T) {
	_, err := extract.Text("doc.txt", []byte{0xff, 0xfe, 0x00})
	assert.Error(t, err)
}

func TestTextUnsupported(t *testing.T) {
	_, err := extract.Text("image.png", []byte("data"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), ".png")
}

func TestTextDocx(t *testing.T) {
	documentXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`

	data := buildDocx(t, map[string]string{
		"word/document.xml": documentXML,
		"[Content_Types].xml": `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
	})

	text, err := extract.Text("sample.docx", data)
	require.NoError(t, err)
	assert.Contains(t, text, "First paragraph.")
	assert.Contains(t, text, "Second paragraph.")
}

func TestTextDocxMissingDocument(t *testing.T) {
	data := buildDocx(t, map[string]string{
		"word/other.xml": "<root/>",
	})

	_, err := extract.Text("broken.docx", data)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "word/document.xml")
}

func TestTextDocxNotZip(t *testing.T) {
	_, err := extract.Text("broken.docx", []byte("this is not a zip archive"))
	assert.Error(t, err)
}

func TestTextPDFInvalid(t *testing.T) {
	_, err := extract.Text("broken.pdf", []byte("not a real pdf"))
	assert.Error(t, err)
}

// buildDocx 在内存中构造一个最小的 DOCX 容器。
func buildDocx(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return buf.Bytes()
}
