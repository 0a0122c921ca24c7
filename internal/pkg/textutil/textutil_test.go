package textutil_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kart-io/ragserve/internal/pkg/textutil"
	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
	}{
		{
			name:     "相同向量",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{1.0, 0.0, 0.0},
			expected: 1.0,
		},
		{
			name:     "正交向量",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{0.0, 1.0, 0.0},
			expected: 0.0,
		},
		{
			name:     "相反向量",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{-1.0, 0.0, 0.0},
			expected: -1.0,
		},
		{
			name:     "空向量",
			a:        []float32{},
			b:        []float32{},
			expected: 0.0,
		},
		{
			name:     "长度不匹配",
			a:        []float32{1.0, 2.0},
			b:        []float32{1.0},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := textutil.CosineSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.expected, result, 0.0001)
		})
	}
}

func TestSquaredL2Distance(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
	}{
		{
			name:     "相同向量距离为零",
			a:        []float32{1.0, 2.0, 3.0},
			b:        []float32{1.0, 2.0, 3.0},
			expected: 0.0,
		},
		{
			name:     "单位距离",
			a:        []float32{0.0, 0.0},
			b:        []float32{1.0, 0.0},
			expected: 1.0,
		},
		{
			name:     "多维距离",
			a:        []float32{1.0, 1.0},
			b:        []float32{4.0, 5.0},
			expected: 25.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := textutil.SquaredL2Distance(tt.a, tt.b)
			assert.InDelta(t, tt.expected, result, 0.0001)
		})
	}
}

func TestNormalizeL2(t *testing.T) {
	v := []float32{3.0, 4.0}
	textutil.NormalizeL2(v)
	assert.InDelta(t, 0.6, float64(v[0]), 0.0001)
	assert.InDelta(t, 0.8, float64(v[1]), 0.0001)

	// 零向量保持不变
	zero := []float32{0.0, 0.0}
	textutil.NormalizeL2(zero)
	assert.Equal(t, []float32{0.0, 0.0}, zero)
}

func TestHashString(t *testing.T) {
	h1 := textutil.HashString("hello")
	h2 := textutil.HashString("hello")
	h3 := textutil.HashString("world")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{
			name:     "不需要截断",
			input:    "hello",
			maxLen:   10,
			expected: "hello",
		},
		{
			name:     "按字符截断",
			input:    "hello world",
			maxLen:   5,
			expected: "hello",
		},
		{
			name:     "多字节字符",
			input:    "你好世界",
			maxLen:   2,
			expected: "你好",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, textutil.TruncateString(tt.input, tt.maxLen))
		})
	}
}

func TestRecursiveSplitShortText(t *testing.T) {
	chunks := textutil.RecursiveSplit("short text", 100, 20, nil)
	assert.Equal(t, []string{"short text"}, chunks)
}

func TestRecursiveSplitEmptyText(t *testing.T) {
	assert.Nil(t, textutil.RecursiveSplit("", 100, 20, nil))
	assert.Nil(t, textutil.RecursiveSplit("   \n  ", 100, 20, nil))
}

func TestRecursiveSplitParagraphBoundary(t *testing.T) {
	text := strings.Repeat("a", 60) + "\n\n" + strings.Repeat("b", 60) + "\n\n" + strings.Repeat("c", 60)
	chunks := textutil.RecursiveSplit(text, 80, 10, nil)

	assert.GreaterOrEqual(t, len(chunks), 2)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 80+10)
	}
	// 段落内容不应被破坏
	joined := strings.Join(chunks, " ")
	assert.Contains(t, joined, strings.Repeat("a", 60))
	assert.Contains(t, joined, strings.Repeat("c", 60))
}

func TestRecursiveSplitOverlap(t *testing.T) {
	// 没有任何自然边界的长文本，回退到字符级切分
	text := strings.Repeat("x", 250)
	chunks := textutil.RecursiveSplit(text, 100, 20, nil)

	assert.GreaterOrEqual(t, len(chunks), 3)
	// 相邻块应共享重叠内容
	for i := 1; i < len(chunks); i++ {
		prevTail := chunks[i-1][len(chunks[i-1])-10:]
		assert.Contains(t, chunks[i], prevTail[:5])
	}
}

func TestRecursiveSplitSentenceBoundary(t *testing.T) {
	text := "First sentence here. Second sentence here. Third sentence here. Fourth sentence here."
	chunks := textutil.RecursiveSplit(text, 50, 10, nil)

	assert.GreaterOrEqual(t, len(chunks), 2)
	for _, chunk := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(chunk))
	}
}

func TestRecursiveSplitCoversAllContent(t *testing.T) {
	text := "alpha beta gamma delta epsilon zeta eta theta iota kappa"
	chunks := textutil.RecursiveSplit(text, 20, 5, nil)

	joined := strings.Join(chunks, " ")
	for _, word := range strings.Fields(text) {
		assert.Contains(t, joined, word)
	}
}

func TestContainsString(t *testing.T) {
	assert.True(t, textutil.ContainsString([]string{"a", "b"}, "a"))
	assert.False(t, textutil.ContainsString([]string{"a", "b"}, "c"))
	assert.False(t, textutil.ContainsString(nil, "a"))
}
