package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/HPNChanel/contract-generator/internal/metrics"
	"github.com/HPNChanel/contract-generator/internal/model"
	"github.com/HPNChanel/contract-generator/internal/pdf"
	"github.com/HPNChanel/contract-generator/internal/render"
	"github.com/HPNChanel/contract-generator/internal/repository"
	"github.com/sirupsen/logrus"
)

// DownloadURLPrefix PDF 下载地址前缀
const DownloadURLPrefix = "/api/v1/contracts/download/"

// EmailSender 邮件发送协作方接口
// 发送指定文件到指定地址,结果为通过/失败
type EmailSender interface {
	Send(ctx context.Context, recipient, pdfPath, contractType string, contractID uint) error
}

// CreateContractRequest 创建合同请求
// 必填字段的校验由载荷校验统一收集,不在绑定层逐个拦截
type CreateContractRequest struct {
	ContractType      string      `json:"contract_type"`
	PartyA            model.Party `json:"party_a"`
	PartyB            model.Party `json:"party_b"`
	Terms             string      `json:"terms"`
	StartDate         string      `json:"start_date"`
	EndDate           string      `json:"end_date"`
	AdditionalClauses []string    `json:"additional_clauses"`
	SignatureImage    string      `json:"signature_image,omitempty"`
	CustomPDFFilename string      `json:"custom_pdf_filename,omitempty"`
	RecipientEmail    string      `json:"recipient_email,omitempty"`
}

// UpdateContractRequest 更新合同请求
// 指针字段表示部分更新:为 nil 的字段保持原值
type UpdateContractRequest struct {
	ContractType      *string      `json:"contract_type"`
	PartyA            *model.Party `json:"party_a"`
	PartyB            *model.Party `json:"party_b"`
	Terms             *string      `json:"terms"`
	StartDate         *string      `json:"start_date"`
	EndDate           *string      `json:"end_date"`
	AdditionalClauses *[]string    `json:"additional_clauses"`
	SignatureImage    *string      `json:"signature_image"`
}

// ContractResponse 合同响应数据
type ContractResponse struct {
	ID                uint      `json:"id"`
	ContractType      string    `json:"contract_type"`
	PartyA            model.Party `json:"party_a"`
	PartyB            model.Party `json:"party_b"`
	Terms             string    `json:"terms"`
	StartDate         string    `json:"start_date"`
	EndDate           string    `json:"end_date"`
	AdditionalClauses []string  `json:"additional_clauses,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// PDFInfo 生成的 PDF 文件信息
type PDFInfo struct {
	PDFPath     string `json:"pdf_path"`
	Filename    string `json:"filename"`
	DownloadURL string `json:"download_url"`
}

// CreateContractResult 创建合同结果
// EmailSent 为 nil 表示未请求发送邮件
type CreateContractResult struct {
	Message      string           `json:"message"`
	ContractID   uint             `json:"contract_id"`
	ContractData ContractResponse `json:"contract_data"`
	PreviewHTML  string           `json:"preview_html"`
	PDFInfo      PDFInfo          `json:"pdf_info"`
	EmailSent    *bool            `json:"email_sent"`
	EmailError   string           `json:"email_error,omitempty"`
}

// ContractListItem 合同列表项
type ContractListItem struct {
	ID           uint      `json:"id"`
	ContractType string    `json:"contract_type"`
	PartyAName   string    `json:"party_a_name"`
	PartyBName   string    `json:"party_b_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// ContractListResult 合同列表结果
type ContractListResult struct {
	TotalContracts int64              `json:"total_contracts"`
	Contracts      []ContractListItem `json:"contracts"`
}

// ContractDetailResult 合同详情结果,附带关联 PDF 状态
type ContractDetailResult struct {
	Contract    ContractResponse `json:"contract"`
	PDFFilePath string           `json:"pdf_file_path,omitempty"`
	PDFExists   bool             `json:"pdf_exists"`
	DownloadURL string           `json:"download_url,omitempty"`
}

// DeleteContractResult 删除合同结果
type DeleteContractResult struct {
	ContractID uint `json:"contract_id"`
	PDFDeleted bool `json:"pdf_deleted"`
}

// GeneratePDFResult 重新生成 PDF 结果
type GeneratePDFResult struct {
	ContractID  uint   `json:"contract_id"`
	PDFPath     string `json:"pdf_path"`
	Filename    string `json:"filename"`
	DownloadURL string `json:"download_url"`
}

// ContractService 合同服务接口
// 按 持久化 -> 渲染 -> 编码 -> 存储 -> (可选)邮件 的顺序编排流水线
type ContractService interface {
	Create(ctx context.Context, req *CreateContractRequest) (*CreateContractResult, error)
	Get(id uint) (*ContractDetailResult, error)
	List(skip, limit int) (*ContractListResult, error)
	Update(id uint, req *UpdateContractRequest) (*ContractResponse, error)
	Delete(id uint, deletePDF bool) (*DeleteContractResult, error)
	RenderHTML(id uint) (string, error)
	GeneratePDF(ctx context.Context, id uint, customFilename string) (*GeneratePDFResult, error)
	SendEmail(ctx context.Context, id uint, recipient string) (*PDFInfo, error)
	CleanupPDFs(maxAgeDays int) (int, error)
}

// contractService 合同服务实现
type contractService struct {
	repo     repository.ContractRepository
	renderer *render.Renderer
	encoder  pdf.Encoder
	store    *pdf.FileStore
	sender   EmailSender
	logger   *logrus.Logger
}

// NewContractService 创建合同服务
func NewContractService(
	repo repository.ContractRepository,
	renderer *render.Renderer,
	encoder pdf.Encoder,
	store *pdf.FileStore,
	sender EmailSender,
	logger *logrus.Logger,
) ContractService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &contractService{
		repo:     repo,
		renderer: renderer,
		encoder:  encoder,
		store:    store,
		sender:   sender,
		logger:   logger,
	}
}

// contractData 从创建请求构建合同载荷
func (req *CreateContractRequest) contractData() model.ContractData {
	return model.ContractData{
		ContractType:      req.ContractType,
		PartyA:            req.PartyA,
		PartyB:            req.PartyB,
		Terms:             req.Terms,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		AdditionalClauses: req.AdditionalClauses,
		SignatureImage:    req.SignatureImage,
	}
}

// Create 执行完整创建流水线
// 校验失败在持久化之前拒绝;持久化之后渲染/编码/存储失败时,
// 已落库的记录不会被自动删除(接受的最终不一致:记录可以没有对应文件),
// 错误原样上报调用方。邮件失败不影响整体成功,仅附带错误说明
func (s *contractService) Create(ctx context.Context, req *CreateContractRequest) (*CreateContractResult, error) {
	// 1. 校验载荷,任何持久化之前完成
	data := req.contractData()
	if err := data.Validate(); err != nil {
		return nil, err
	}

	// 2. 持久化
	record := &model.ContractModel{ContractType: req.ContractType}
	if err := record.EncodeData(data); err != nil {
		return nil, err
	}
	if err := s.repo.Create(record); err != nil {
		return nil, fmt.Errorf("failed to persist contract: %w", err)
	}
	metrics.RecordContractCreated()

	log := s.logger.WithField("contract_id", record.ID)

	// 3. 渲染 HTML 预览
	previewHTML, err := s.renderer.Render(data)
	if err != nil {
		log.WithError(err).Error("failed to render contract after persistence")
		return nil, err
	}

	// 4. 编码 + 5. 存储
	filename := req.CustomPDFFilename
	if filename == "" {
		filename = pdf.DefaultFilename(record.ID)
	}
	pdfPath, savedName, err := s.encodeAndStore(ctx, previewHTML, filename)
	if err != nil {
		log.WithError(err).Error("failed to generate contract PDF after persistence")
		return nil, err
	}

	result := &CreateContractResult{
		Message:      "Contract created successfully with HTML preview and PDF generated",
		ContractID:   record.ID,
		ContractData: toContractResponse(record),
		PreviewHTML:  previewHTML,
		PDFInfo: PDFInfo{
			PDFPath:     pdfPath,
			Filename:    savedName,
			DownloadURL: DownloadURLPrefix + savedName,
		},
	}

	// 6. 可选邮件发送,失败不中断整体操作
	if req.RecipientEmail != "" {
		sent := true
		if err := s.sender.Send(ctx, req.RecipientEmail, pdfPath, record.ContractType, record.ID); err != nil {
			sent = false
			result.EmailError = err.Error()
			log.WithError(err).Warn("contract email delivery failed")
		} else {
			log.WithField("recipient", req.RecipientEmail).Info("contract email sent")
		}
		metrics.RecordEmailSent(sent)
		result.EmailSent = &sent
	}

	return result, nil
}

// encodeAndStore 编码 HTML 并保存到文件存储
func (s *contractService) encodeAndStore(ctx context.Context, html, filename string) (string, string, error) {
	pdfBytes, err := s.encoder.Encode(ctx, html)
	if err != nil {
		return "", "", err
	}

	path, err := s.store.Save(pdfBytes, filename)
	if err != nil {
		return "", "", err
	}

	// Save 可能补全 .pdf 扩展名,以实际落盘名为准
	return path, filepath.Base(path), nil
}

// Get 获取合同详情与关联 PDF 状态
func (s *contractService) Get(id uint) (*ContractDetailResult, error) {
	record, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}

	result := &ContractDetailResult{Contract: toContractResponse(record)}

	// 按文件名前缀约定查找关联 PDF;查找失败按"无文件"处理
	file, err := s.store.FindByContractID(id)
	if err != nil {
		s.logger.WithError(err).WithField("contract_id", id).Warn("failed to look up contract PDF")
	} else if file != nil {
		result.PDFExists = true
		result.PDFFilePath = file.Path
		result.DownloadURL = DownloadURLPrefix + file.Filename
	}

	return result, nil
}

// List 分页列出合同摘要
func (s *contractService) List(skip, limit int) (*ContractListResult, error) {
	total, err := s.repo.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count contracts: %w", err)
	}

	records, err := s.repo.FindAll(skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}

	items := make([]ContractListItem, 0, len(records))
	for _, record := range records {
		data := record.ParseData()
		items = append(items, ContractListItem{
			ID:           record.ID,
			ContractType: record.ContractType,
			PartyAName:   partyNameOrUnknown(data.PartyA),
			PartyBName:   partyNameOrUnknown(data.PartyB),
			CreatedAt:    record.CreatedAt,
		})
	}

	return &ContractListResult{TotalContracts: total, Contracts: items}, nil
}

// Update 部分更新合同类型与载荷
// 更新后的载荷必须重新通过校验
func (s *contractService) Update(id uint, req *UpdateContractRequest) (*ContractResponse, error) {
	record, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}

	data := record.ParseData()
	if req.ContractType != nil {
		record.ContractType = *req.ContractType
		data.ContractType = *req.ContractType
	}
	if req.PartyA != nil {
		data.PartyA = *req.PartyA
	}
	if req.PartyB != nil {
		data.PartyB = *req.PartyB
	}
	if req.Terms != nil {
		data.Terms = *req.Terms
	}
	if req.StartDate != nil {
		data.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		data.EndDate = *req.EndDate
	}
	if req.AdditionalClauses != nil {
		data.AdditionalClauses = *req.AdditionalClauses
	}
	if req.SignatureImage != nil {
		data.SignatureImage = *req.SignatureImage
	}

	if err := data.Validate(); err != nil {
		return nil, err
	}
	if err := record.EncodeData(data); err != nil {
		return nil, err
	}
	if err := s.repo.Update(record); err != nil {
		return nil, fmt.Errorf("failed to update contract: %w", err)
	}

	resp := toContractResponse(record)
	return &resp, nil
}

// Delete 删除合同,按需删除关联 PDF
// PDF 删除失败只记录日志,不中断记录删除
func (s *contractService) Delete(id uint, deletePDF bool) (*DeleteContractResult, error) {
	if _, err := s.repo.FindByID(id); err != nil {
		return nil, err
	}

	pdfDeleted := false
	if deletePDF {
		files, err := s.store.FindAllByContractID(id)
		if err != nil {
			s.logger.WithError(err).WithField("contract_id", id).Warn("failed to list contract PDFs for deletion")
		}
		for _, file := range files {
			removed, err := s.store.Delete(file.Filename)
			if err != nil {
				s.logger.WithError(err).WithField("filename", file.Filename).Warn("failed to delete contract PDF")
				continue
			}
			if removed {
				pdfDeleted = true
			}
		}
	}

	removed, err := s.repo.Delete(id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete contract: %w", err)
	}
	if !removed {
		return nil, repository.ErrNotFound
	}

	return &DeleteContractResult{ContractID: id, PDFDeleted: pdfDeleted}, nil
}

// RenderHTML 渲染已存在合同的 HTML 预览
func (s *contractService) RenderHTML(id uint) (string, error) {
	record, err := s.repo.FindByID(id)
	if err != nil {
		return "", err
	}
	return s.renderer.Render(record.ParseData())
}

// GeneratePDF 为已存在合同(重新)生成 PDF
func (s *contractService) GeneratePDF(ctx context.Context, id uint, customFilename string) (*GeneratePDFResult, error) {
	record, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}

	html, err := s.renderer.Render(record.ParseData())
	if err != nil {
		return nil, err
	}

	filename := customFilename
	if filename == "" {
		filename = pdf.DefaultFilename(id)
	}
	path, savedName, err := s.encodeAndStore(ctx, html, filename)
	if err != nil {
		return nil, err
	}

	return &GeneratePDFResult{
		ContractID:  id,
		PDFPath:     path,
		Filename:    savedName,
		DownloadURL: DownloadURLPrefix + savedName,
	}, nil
}

// SendEmail 发送已存在合同的 PDF 到指定地址
// 没有关联文件时先生成;作为独立操作,邮件失败在这里是致命错误
func (s *contractService) SendEmail(ctx context.Context, id uint, recipient string) (*PDFInfo, error) {
	record, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}

	file, err := s.store.FindByContractID(id)
	if err != nil {
		return nil, err
	}

	var info PDFInfo
	if file != nil {
		info = PDFInfo{
			PDFPath:     file.Path,
			Filename:    file.Filename,
			DownloadURL: DownloadURLPrefix + file.Filename,
		}
	} else {
		generated, err := s.GeneratePDF(ctx, id, "")
		if err != nil {
			return nil, err
		}
		info = PDFInfo{
			PDFPath:     generated.PDFPath,
			Filename:    generated.Filename,
			DownloadURL: generated.DownloadURL,
		}
	}

	if err := s.sender.Send(ctx, recipient, info.PDFPath, record.ContractType, id); err != nil {
		metrics.RecordEmailSent(false)
		return nil, err
	}
	metrics.RecordEmailSent(true)

	return &info, nil
}

// CleanupPDFs 按年龄阈值批量清理 PDF 文件
func (s *contractService) CleanupPDFs(maxAgeDays int) (int, error) {
	return s.store.Cleanup(maxAgeDays)
}

// toContractResponse 从数据库记录构建响应数据
func toContractResponse(record *model.ContractModel) ContractResponse {
	data := record.ParseData()
	return ContractResponse{
		ID:                record.ID,
		ContractType:      record.ContractType,
		PartyA:            data.PartyA,
		PartyB:            data.PartyB,
		Terms:             data.Terms,
		StartDate:         data.StartDate,
		EndDate:           data.EndDate,
		AdditionalClauses: data.AdditionalClauses,
		CreatedAt:         record.CreatedAt,
		UpdatedAt:         record.UpdatedAt,
	}
}

// partyNameOrUnknown 签署方名称,数据缺失时返回占位值
func partyNameOrUnknown(p model.Party) string {
	if p.Name == "" {
		return "Unknown"
	}
	return p.Name
}
