package pdf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewWkhtmltopdfEncoderMissingBinary 测试可执行文件不存在时报不可用
// 构造期探测失败必须映射为 ErrUnavailable,调用方据此装配回退链
func TestNewWkhtmltopdfEncoderMissingBinary(t *testing.T) {
	_, err := NewWkhtmltopdfEncoder("/nonexistent/wkhtmltopdf", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

// TestInjectPrintCSS 测试打印样式注入位置
func TestInjectPrintCSS(t *testing.T) {
	// 有 head 结束标记时插在标记之前
	out := injectPrintCSS("<html><head><title>x</title></head><body></body></html>")
	assert.Less(t, strings.Index(out, "<style>"), strings.Index(out, "</head>"))

	// 没有 head 时前置,样式仍然生效
	out = injectPrintCSS("<p>bare fragment</p>")
	assert.True(t, strings.HasPrefix(out, "<style>"))
	assert.Contains(t, out, "<p>bare fragment</p>")
}
