// Package textutil 提供文本切分与向量计算的工具函数。
package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
	"unicode/utf8"
)

// DefaultSeparators 递归切分使用的分隔符，按优先级从段落到字符。
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// CosineSimilarity 计算两个向量的余弦相似度。
// 返回值范围为 [-1, 1]，1 表示完全相同，-1 表示完全相反。
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SquaredL2Distance 计算两个向量的欧氏距离平方。
func SquaredL2Distance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.MaxFloat64
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// NormalizeL2 将向量原地归一化为单位长度。零向量保持不变。
func NormalizeL2(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}

	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}

// HashString 计算字符串的 SHA-256 哈希值（十六进制）。
func HashString(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}

// TruncateString 截断字符串到指定的最大 Unicode 字符数。
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

// RecursiveSplit 递归地将文本切分为带重叠的块。
// 优先在自然边界（段落、行、句子、词）处切分，必要时回退到字符级。
// chunkSize 与 overlap 均以字符计。
func RecursiveSplit(text string, chunkSize, overlap int, separators []string) []string {
	if chunkSize <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= chunkSize {
		return []string{text}
	}

	pieces := splitRecursive(text, chunkSize, separators)
	return mergeWithOverlap(pieces, chunkSize, overlap)
}

// splitRecursive 将文本切分为不超过 chunkSize 的片段。
// 从最粗粒度的分隔符开始，超长的片段用下一级分隔符继续切分。
func splitRecursive(text string, chunkSize int, separators []string) []string {
	if utf8.RuneCountInString(text) <= chunkSize {
		return []string{text}
	}

	sep := separators[0]
	rest := separators[1:]

	// 空分隔符表示按字符硬切
	if sep == "" {
		runes := []rune(text)
		var out []string
		for i := 0; i < len(runes); i += chunkSize {
			end := i + chunkSize
			if end > len(runes) {
				end = len(runes)
			}
			out = append(out, string(runes[i:end]))
		}
		return out
	}

	var out []string
	parts := strings.Split(text, sep)
	for i, part := range parts {
		// 保留分隔符在片段末尾，避免拼接时丢失边界
		if i < len(parts)-1 {
			part += sep
		}
		if part == "" {
			continue
		}
		if utf8.RuneCountInString(part) <= chunkSize {
			out = append(out, part)
			continue
		}
		if len(rest) > 0 {
			out = append(out, splitRecursive(part, chunkSize, rest)...)
		} else {
			out = append(out, part)
		}
	}
	return out
}

// mergeWithOverlap 将片段合并为接近 chunkSize 的块，相邻块之间
// 保留 overlap 个字符的重叠。
func mergeWithOverlap(pieces []string, chunkSize, overlap int) []string {
	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
		currentLen = 0
	}

	for _, piece := range pieces {
		pieceLen := utf8.RuneCountInString(piece)
		if currentLen+pieceLen > chunkSize && currentLen > 0 {
			tail := tailRunes(current.String(), overlap)
			flush()
			if tail != "" {
				current.WriteString(tail)
				currentLen = utf8.RuneCountInString(tail)
			}
		}
		current.WriteString(piece)
		currentLen += pieceLen
	}
	flush()

	return chunks
}

// tailRunes 返回字符串末尾最多 n 个 Unicode 字符。
func tailRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

// ContainsString 检查字符串切片是否包含指定元素。
func ContainsString(slice []string, item string) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}
