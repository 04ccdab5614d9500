package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/HPNChanel/contract-generator/internal/model"
)

// TemplateFileName 合同模板文件名
const TemplateFileName = "contract.html.tmpl"

// ErrTemplateNotFound 模板文件缺失
// 属于环境配置错误,需要与载荷校验错误区分开
var ErrTemplateNotFound = errors.New("contract template not found")

// Renderer 合同 HTML 渲染器
// 使用 html/template,所有插值内容自动转义,防止签署方信息注入标记
type Renderer struct {
	tmpl *template.Template
}

// templateContext 模板渲染上下文
// 在载荷基础上注入生成时间与签名图片 URL
type templateContext struct {
	model.ContractData
	GenerationDate string
	SignatureURL   template.URL
}

// NewRenderer 创建渲染器,从模板目录加载合同模板
// 模板文件不存在时返回 ErrTemplateNotFound
func NewRenderer(templateDir string) (*Renderer, error) {
	path := filepath.Join(templateDir, TemplateFileName)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, path)
	}

	tmpl, err := template.ParseFiles(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract template: %w", err)
	}

	return &Renderer{tmpl: tmpl}, nil
}

// Render 渲染合同 HTML
// 渲染前执行载荷校验;输出包含渲染时注入的 generation date,
// 因此同一载荷的两次渲染结果不保证逐字节一致
func (r *Renderer) Render(data model.ContractData) (string, error) {
	if err := data.Validate(); err != nil {
		return "", err
	}

	ctx := templateContext{
		ContractData:   data,
		GenerationDate: time.Now().Format("2006-01-02 15:04:05"),
	}

	// data URI 会被 html/template 的 URL 过滤器拦截,
	// 仅对校验过前缀的签名图片显式放行
	if strings.HasPrefix(data.SignatureImage, "data:image/") {
		ctx.SignatureURL = template.URL(data.SignatureImage)
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("failed to render contract template: %w", err)
	}

	return buf.String(), nil
}

// SampleContractData 返回用于测试接口的示例合同数据
func SampleContractData() model.ContractData {
	return model.ContractData{
		ContractType: "Service Agreement",
		PartyA: model.Party{
			Name:    "ABC Company Inc.",
			Address: "123 Business St, City, State 12345",
			Email:   "contact@abccompany.com",
			Phone:   "+1 (555) 123-4567",
		},
		PartyB: model.Party{
			Name:    "John Doe",
			Address: "456 Client Ave, Town, State 67890",
			Email:   "john.doe@email.com",
			Phone:   "+1 (555) 987-6543",
		},
		Terms: "This agreement establishes the terms for providing consulting services. " +
			"The service provider agrees to deliver high-quality consulting services " +
			"according to the specifications outlined in this contract.",
		StartDate: "2024-01-01",
		EndDate:   "2024-12-31",
		AdditionalClauses: []string{
			"All work must be completed within the agreed timeframe.",
			"Payment terms are Net 30 days from invoice date.",
			"This contract may be terminated by either party with 30 days written notice.",
		},
	}
}
