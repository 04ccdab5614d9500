package pdf

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	wkhtmltopdf "github.com/SebastiaanKlippert/go-wkhtmltopdf"
)

// printCSS 打印样式
// A4 页面与 2cm 边距由 wkhtmltopdf 页面参数控制,
// 这里补充正文字体/行高与关键区块的分页保护
const printCSS = `<style>
body { font-family: "DejaVu Sans", Arial, sans-serif; font-size: 12pt; line-height: 1.6; color: #333; }
.header { page-break-after: avoid; }
.signature-section { page-break-inside: avoid; margin-top: 2cm; }
.terms { page-break-inside: avoid; }
</style>`

// WkhtmltopdfEncoder 主 PDF 编码器
// 封装 wkhtmltopdf 命令行工具,保留 HTML 的完整样式与排版
type WkhtmltopdfEncoder struct {
	timeout time.Duration
}

// NewWkhtmltopdfEncoder 创建主编码器
// binPath 为空时从 PATH 查找 wkhtmltopdf;
// 可执行文件不存在时返回 ErrUnavailable,调用方据此配置回退链
func NewWkhtmltopdfEncoder(binPath string, timeout time.Duration) (*WkhtmltopdfEncoder, error) {
	probe := "wkhtmltopdf"
	if binPath != "" {
		wkhtmltopdf.SetPath(binPath)
		probe = binPath
	}

	if _, err := exec.LookPath(probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &WkhtmltopdfEncoder{timeout: timeout}, nil
}

// Name 编码器名称
func (e *WkhtmltopdfEncoder) Name() string {
	return "wkhtmltopdf"
}

// Encode 将 HTML 转换为 A4 PDF
func (e *WkhtmltopdfEncoder) Encode(ctx context.Context, html string) ([]byte, error) {
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	pdfg.PageSize.Set(wkhtmltopdf.PageSizeA4)
	pdfg.MarginTop.Set(20) // 2cm
	pdfg.MarginBottom.Set(20)
	pdfg.MarginLeft.Set(20)
	pdfg.MarginRight.Set(20)

	page := wkhtmltopdf.NewPageReader(strings.NewReader(injectPrintCSS(html)))
	page.DisableExternalLinks.Set(true)
	pdfg.AddPage(page)

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	if err := pdfg.CreateContext(ctx); err != nil {
		return nil, &EncodingError{Encoder: e.Name(), Err: err}
	}

	return pdfg.Bytes(), nil
}

// injectPrintCSS 在 </head> 前插入打印样式
// 没有 head 结束标记时直接前置,保证样式始终生效
func injectPrintCSS(html string) string {
	if i := strings.Index(strings.ToLower(html), "</head>"); i >= 0 {
		return html[:i] + printCSS + "\n" + html[i:]
	}
	return printCSS + "\n" + html
}
