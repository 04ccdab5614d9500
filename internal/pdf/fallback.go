package pdf

import (
	"bytes"
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// StripTags 去除 HTML 标记并解码实体,返回纯文本
func StripTags(line string) string {
	text := tagPattern.ReplaceAllString(line, "")
	return strings.TrimSpace(html.UnescapeString(text))
}

// FallbackEncoder 备用 PDF 编码器
// 主编码器不可用或失败时,对 HTML 做逐行启发式扫描重建降级版 PDF。
// 扫描假定每个目标标签完整出现在单行内(合同模板即按此生成),
// 跨行标签的行为不在支持范围内。
// 对任何非空输入都必须产出可打开的合法 PDF,本编码器是可靠性兜底,
// 绝不能成为整条流水线失败的原因
type FallbackEncoder struct{}

// NewFallbackEncoder 创建备用编码器
func NewFallbackEncoder() *FallbackEncoder {
	return &FallbackEncoder{}
}

// Name 编码器名称
func (e *FallbackEncoder) Name() string {
	return "builtin"
}

// Encode 从 HTML 重建 PDF
// 模式 (a): 识别 title/h1/h2/h3/p 标签并按固定样式排版;
// 模式 (b): 一个可识别区块都没有时,退化为固定文档骨架
func (e *FallbackEncoder) Encode(ctx context.Context, htmlContent string) ([]byte, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetMargins(20, 25, 20)
	doc.SetAutoPageBreak(true, 25)
	doc.AddPage()
	tr := doc.UnicodeTranslatorFromDescriptor("")

	blocks := 0
	for _, line := range strings.Split(htmlContent, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case strings.Contains(line, "<title>") && strings.Contains(line, "</title>"):
			// 仅当标题确实是合同标题时才套用标题样式,
			// 避免给无关页面标题加上大号字体
			text := StripTags(line)
			if strings.Contains(strings.ToUpper(text), "CONTRACT") {
				e.writeTitle(doc, tr, text)
				blocks++
			}

		case strings.Contains(line, "<h1>") && strings.Contains(line, "</h1>"):
			e.writeTitle(doc, tr, StripTags(line))
			blocks++

		case strings.Contains(line, "<h2>") && strings.Contains(line, "</h2>"):
			e.writeHeading(doc, tr, StripTags(line))
			blocks++

		case strings.Contains(line, "<h3>") && strings.Contains(line, "</h3>"):
			e.writeHeading(doc, tr, StripTags(line))
			blocks++

		case strings.Contains(line, "<p>") && strings.Contains(line, "</p>"):
			if text := StripTags(line); text != "" {
				e.writeBody(doc, tr, text)
				blocks++
			}
		}
	}

	// 模式 (b): 固定文档骨架
	if blocks == 0 {
		e.writeSkeleton(doc, tr, htmlContent)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, &EncodingError{Encoder: e.Name(), Err: err}
	}
	return buf.Bytes(), nil
}

// writeTitle 标题样式: 18pt 加粗居中
func (e *FallbackEncoder) writeTitle(doc *gofpdf.Fpdf, tr func(string) string, text string) {
	doc.SetFont("Helvetica", "B", 18)
	doc.CellFormat(0, 12, tr(text), "", 1, "C", false, 0, "")
	doc.Ln(6)
}

// writeHeading 小节标题样式: 14pt 加粗
func (e *FallbackEncoder) writeHeading(doc *gofpdf.Fpdf, tr func(string) string, text string) {
	doc.Ln(4)
	doc.SetFont("Helvetica", "B", 14)
	doc.CellFormat(0, 8, tr(text), "", 1, "L", false, 0, "")
	doc.Ln(2)
}

// writeBody 正文样式: 11pt
func (e *FallbackEncoder) writeBody(doc *gofpdf.Fpdf, tr func(string) string, text string) {
	doc.SetFont("Helvetica", "", 11)
	doc.MultiCell(0, 6, tr(text), "", "L", false)
	doc.Ln(2)
}

// writeSkeleton 固定文档骨架
// 字面量 CONTRACT 标题 + 去标签后的前 50 行有效内容 + 静态双栏签名区
func (e *FallbackEncoder) writeSkeleton(doc *gofpdf.Fpdf, tr func(string) string, htmlContent string) {
	e.writeTitle(doc, tr, "CONTRACT")
	doc.Ln(4)

	content := strings.ReplaceAll(htmlContent, "<br/>", "\n")
	content = strings.ReplaceAll(content, "<br>", "\n")

	doc.SetFont("Helvetica", "", 11)
	kept := 0
	for _, line := range strings.Split(content, "\n") {
		if kept >= 50 {
			break
		}
		clean := StripTags(line)
		if len(clean) > 3 {
			doc.MultiCell(0, 6, tr(clean), "", "L", false)
			doc.Ln(2)
			kept++
		}
	}

	e.writeSignatureBlock(doc, tr)
}

// writeSignatureBlock 静态双栏签名区
// 不论载荷是否携带签名图片,骨架模式都输出下划线和日期栏
func (e *FallbackEncoder) writeSignatureBlock(doc *gofpdf.Fpdf, tr func(string) string) {
	doc.Ln(16)

	pageW, _ := doc.GetPageSize()
	left, _, right, _ := doc.GetMargins()
	colW := (pageW - left - right) / 2

	doc.SetFont("Helvetica", "", 11)
	doc.CellFormat(colW, 8, tr("Party A Signature:"), "", 0, "C", false, 0, "")
	doc.CellFormat(colW, 8, tr("Party B Signature:"), "", 1, "C", false, 0, "")
	doc.Ln(6)
	doc.CellFormat(colW, 8, strings.Repeat("_", 30), "", 0, "C", false, 0, "")
	doc.CellFormat(colW, 8, strings.Repeat("_", 30), "", 1, "C", false, 0, "")
	doc.CellFormat(colW, 8, tr("Date: _______________"), "", 0, "C", false, 0, "")
	doc.CellFormat(colW, 8, tr("Date: _______________"), "", 1, "C", false, 0, "")
}
