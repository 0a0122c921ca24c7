// Package extract 提供文档文本提取功能，支持 txt、pdf、docx 格式。
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// SupportedExtensions 支持提取的文件扩展名。
var SupportedExtensions = []string{".txt", ".pdf", ".docx"}

// IsSupported 检查文件扩展名是否受支持。
func IsSupported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Text 从文件内容中提取纯文本，根据扩展名选择解析器。
func Text(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".txt":
		return extractTxt(data)
	case ".pdf":
		return extractPDF(data)
	case ".docx":
		return extractDocx(data)
	default:
		return "", fmt.Errorf("不支持的文件类型: %s", ext)
	}
}

// extractTxt 提取纯文本文件内容。
func extractTxt(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("文本文件不是有效的 UTF-8 编码")
	}
	return string(data), nil
}

// extractPDF 提取 PDF 文件的文本内容。
func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("解析 PDF 失败: %w", err)
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// 单页解析失败时跳过该页，尽量提取剩余内容
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	result := strings.TrimSpace(sb.String())
	if result == "" {
		return "", fmt.Errorf("PDF 中未提取到文本内容")
	}
	return result, nil
}

// docxDocument word/document.xml 的结构，只关注段落和文本节点。
type docxDocument struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []struct {
		Texts []string `xml:"t"`
	} `xml:"r"`
}

// extractDocx 提取 DOCX 文件的文本内容。
// DOCX 是 ZIP 容器，正文位于 word/document.xml。
func extractDocx(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("解析 DOCX 容器失败: %w", err)
	}

	var docFile *zip.File
	for _, f := range reader.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("DOCX 中缺少 word/document.xml")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("打开 document.xml 失败: %w", err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("读取 document.xml 失败: %w", err)
	}

	var doc docxDocument
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("解析 document.xml 失败: %w", err)
	}

	var sb strings.Builder
	for _, p := range doc.Body.Paragraphs {
		for _, r := range p.Runs {
			for _, t := range r.Texts {
				sb.WriteString(t)
			}
		}
		sb.WriteString("\n")
	}

	result := strings.TrimSpace(sb.String())
	if result == "" {
		return "", fmt.Errorf("DOCX 中未提取到文本内容")
	}
	return result, nil
}
