package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/HPNChanel/contract-generator/internal/email"
	"github.com/HPNChanel/contract-generator/internal/model"
	"github.com/HPNChanel/contract-generator/internal/pdf"
	"github.com/HPNChanel/contract-generator/internal/render"
	"github.com/HPNChanel/contract-generator/internal/repository"
	"github.com/HPNChanel/contract-generator/internal/service"
)

// 签名图片上传限制
const (
	maxSignatureImageSize = 5 << 20 // 5MB
)

// ContractController 合同控制器
type ContractController struct {
	service service.ContractService
	store   *pdf.FileStore
	logger  *logrus.Logger
}

// NewContractController 创建合同控制器
func NewContractController(svc service.ContractService, store *pdf.FileStore, logger *logrus.Logger) *ContractController {
	return &ContractController{
		service: svc,
		store:   store,
		logger:  logger,
	}
}

// handleServiceError 将服务层错误映射为 HTTP 响应
func (ctrl *ContractController) handleServiceError(c *gin.Context, err error, message string) {
	var validationErr *model.ValidationError
	var recipientErr *email.RecipientError

	switch {
	case errors.As(err, &validationErr):
		Error(c, http.StatusBadRequest, "invalid contract data", validationErr.Error())
	case errors.As(err, &recipientErr):
		Error(c, http.StatusBadRequest, "invalid recipient address", recipientErr.Error())
	case errors.Is(err, repository.ErrNotFound):
		Error(c, http.StatusNotFound, "contract not found", err.Error())
	case errors.Is(err, render.ErrTemplateNotFound):
		Error(c, http.StatusInternalServerError, "contract template missing", err.Error())
	default:
		Error(c, http.StatusInternalServerError, message, err.Error())
	}
}

// parseContractID 解析路径中的合同 ID
func parseContractID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid contract id", c.Param("id"))
		return 0, false
	}
	return uint(id), true
}

// Create 创建合同
// @Summary 创建合同
// @Description 创建合同记录并生成 HTML 预览和 PDF 文件,可选发送邮件
// @Tags contracts
// @Accept json
// @Produce json
// @Param contract body service.CreateContractRequest true "合同数据"
// @Success 200 {object} Response{data=service.CreateContractResult}
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/contracts [post]
func (ctrl *ContractController) Create(c *gin.Context) {
	req, ok := ctrl.bindCreateRequest(c)
	if !ok {
		return
	}

	result, err := ctrl.service.Create(c.Request.Context(), req)
	if err != nil {
		ctrl.handleServiceError(c, err, "failed to create contract")
		return
	}

	Success(c, result)
}

// bindCreateRequest 绑定创建请求,支持 JSON 和 multipart 两种形式
// multipart 形式: contract 字段为 JSON 载荷,signature_image 为图片文件,
// 上传的图片转为 data URI 内联进载荷
func (ctrl *ContractController) bindCreateRequest(c *gin.Context) (*service.CreateContractRequest, bool) {
	var req service.CreateContractRequest

	contentType := c.ContentType()
	if strings.HasPrefix(contentType, "multipart/form-data") {
		payload := c.PostForm("contract")
		if payload == "" {
			Error(c, http.StatusBadRequest, "missing contract field in form data", "")
			return nil, false
		}
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			Error(c, http.StatusBadRequest, "invalid contract payload", err.Error())
			return nil, false
		}

		fileHeader, err := c.FormFile("signature_image")
		if err == nil {
			dataURI, err := signatureImageToDataURI(fileHeader)
			if err != nil {
				Error(c, http.StatusBadRequest, "invalid signature image", err.Error())
				return nil, false
			}
			req.SignatureImage = dataURI
		}
		return &req, true
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return nil, false
	}
	return &req, true
}

// signatureImageToDataURI 将上传的签名图片编码为 data URI
func signatureImageToDataURI(fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader.Size > maxSignatureImageSize {
		return "", fmt.Errorf("signature image exceeds %d bytes", maxSignatureImageSize)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxSignatureImageSize+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxSignatureImageSize {
		return "", fmt.Errorf("signature image exceeds %d bytes", maxSignatureImageSize)
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("unsupported signature image type: %s", mimeType)
	}

	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// List 分页列出合同
// @Summary 列出合同
// @Tags contracts
// @Produce json
// @Param skip query int false "跳过条数" default(0)
// @Param limit query int false "返回条数,1-1000" default(100)
// @Success 200 {object} Response{data=service.ContractListResult}
// @Router /api/v1/contracts [get]
func (ctrl *ContractController) List(c *gin.Context) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		Error(c, http.StatusBadRequest, "invalid skip parameter", c.Query("skip"))
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 || limit > 1000 {
		Error(c, http.StatusBadRequest, "limit must be between 1 and 1000", c.Query("limit"))
		return
	}

	result, err := ctrl.service.List(skip, limit)
	if err != nil {
		ctrl.handleServiceError(c, err, "failed to list contracts")
		return
	}

	Success(c, result)
}

// Get 获取合同详情
// @Summary 获取合同详情
// @Tags contracts
// @Produce json
// @Param id path int true "合同 ID"
// @Success 200 {object} Response{data=service.ContractDetailResult}
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/contracts/{id} [get]
func (ctrl *ContractController) Get(c *gin.Context) {
	id, ok := parseContractID(c)
	if !ok {
		return
	}

	result, err := ctrl.service.Get(id)
	if err != nil {
		ctrl.handleServiceError(c, err, "failed to get contract")
		return
	}

	Success(c, result)
}

// Update 部分更新合同
// @Summary 更新合同
// @Tags contracts
// @Accept json
// @Produce json
// @Param id path int true "合同 ID"
// @Param contract body service.UpdateContractRequest true "更新字段"
// @Success 200 {object} Response{data=service.ContractResponse}
// @Router /api/v1/contracts/{id} [put]
func (ctrl *ContractController) Update(c *gin.Context) {
	id, ok := parseContractID(c)
	if !ok {
		return
	}

	var req service.UpdateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := ctrl.service.Update(id, &req)
	if err != nil {
		ctrl.handleServiceError(c, err, "failed to update contract")
		return
	}

	Success(c, result)
}

// Delete 删除合同
// @Summary 删除合同
// @Description 删除合同记录,默认同时删除关联的 PDF 文件
// @Tags contracts
// @Produce json
// @Param id path int true "合同 ID"
// @Param delete_pdf query bool false "是否删除关联 PDF" default(true)
// @Success 200 {object} Response{data=service.DeleteContractResult}
// @Router /api/v1/contracts/{id} [delete]
func (ctrl *ContractController) Delete(c *gin.Context) {
	id, ok := parseContractID(c)
	if !ok {
		return
	}

	deletePDF := true
	if raw := c.Query("delete_pdf"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid delete_pdf parameter", raw)
			return
		}
		deletePDF = parsed
	}

	result, err := ctrl.service.Delete(id, deletePDF)
	if err != nil {
		ctrl.handleServiceError(c, err, "failed to delete contract")
		return
	}

	Success(c, result)
}

// Render 渲染合同 HTML 预览
// @Summary 渲染合同 HTML
// @Tags contracts
// @Produce html
// @Param id path int true "合同 ID"
// @Success 200 {string} string "HTML 文档"
// @Router /api/v1/contracts/{id}/render [get]
func (ctrl *ContractController) Render(c *gin.Context) {
	id, ok := parseContractID(c)
	if !ok {
		return
	}

	html, err := ctrl.service.RenderHTML(id)
	if err != nil {
		ctrl.handleServiceError(c, err, "failed to render contract")
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// GeneratePDF 为已有合同重新生成 PDF
// @Summary 重新生成合同 PDF
// @Tags contracts
// @Produce json
// @Param id path int true "合同 ID"
// @Param filename query string false "自定义文件名"
// @Success 200 {object} Response{data=service.GeneratePDFResult}
// @Router /api/v1/contracts/{id}/pdf [post]
func (ctrl *ContractController) GeneratePDF(c *gin.Context) {
	id, ok := parseContractID(c)
	if !ok {
		return
	}

	result, err := ctrl.service.GeneratePDF(c.Request.Context(), id, c.Query("filename"))
	if err != nil {
		ctrl.handleServiceError(c, err, "failed to generate contract PDF")
		return
	}

	Success(c, result)
}

// sendEmailRequest 发送邮件请求
type sendEmailRequest struct {
	RecipientEmail string `json:"recipient_email" binding:"required"`
}

// SendEmail 发送合同 PDF 邮件
// @Summary 发送合同邮件
// @Description 发送已有合同的 PDF 到指定地址,没有关联文件时先生成
// @Tags contracts
// @Accept json
// @Produce json
// @Param id path int true "合同 ID"
// @Param request body sendEmailRequest true "收件人"
// @Success 200 {object} Response{data=service.PDFInfo}
// @Router /api/v1/contracts/{id}/email [post]
func (ctrl *ContractController) SendEmail(c *gin.Context) {
	id, ok := parseContractID(c)
	if !ok {
		return
	}

	var req sendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "recipient_email is required", err.Error())
		return
	}

	info, err := ctrl.service.SendEmail(c.Request.Context(), id, req.RecipientEmail)
	if err != nil {
		ctrl.handleServiceError(c, err, "failed to send contract email")
		return
	}

	Success(c, gin.H{
		"message":  "Contract PDF sent successfully",
		"pdf_info": info,
	})
}

// Download 下载 PDF 文件
// @Summary 下载合同 PDF
// @Tags contracts
// @Produce application/pdf
// @Param filename path string true "PDF 文件名"
// @Success 200 {file} binary
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/contracts/download/{filename} [get]
func (ctrl *ContractController) Download(c *gin.Context) {
	filename := filepath.Base(c.Param("filename"))

	// 只允许下载 .pdf 文件,路径穿越由 Base 归一化兜底
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		Error(c, http.StatusBadRequest, "only .pdf files can be downloaded", filename)
		return
	}

	path := filepath.Join(ctrl.store.Dir(), filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		Error(c, http.StatusNotFound, "pdf file not found", filename)
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.FileAttachment(path, filename)
}

// SampleData 返回示例合同数据
// @Summary 示例合同数据
// @Description 返回可直接用于创建接口的示例载荷
// @Tags contracts
// @Produce json
// @Success 200 {object} Response{data=model.ContractData}
// @Router /api/v1/contracts/sample-data [get]
func (ctrl *ContractController) SampleData(c *gin.Context) {
	Success(c, render.SampleContractData())
}

// ListPDFs 列出所有已生成的 PDF 文件
// @Summary 列出 PDF 文件
// @Tags pdfs
// @Produce json
// @Success 200 {object} Response
// @Router /api/v1/pdfs [get]
func (ctrl *ContractController) ListPDFs(c *gin.Context) {
	files, err := ctrl.store.List()
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to list pdf files", err.Error())
		return
	}

	Success(c, gin.H{
		"total_files": len(files),
		"files":       files,
	})
}

// cleanupRequest PDF 清理请求
type cleanupRequest struct {
	MaxAgeDays int `json:"max_age_days"`
}

// CleanupPDFs 清理过期 PDF 文件
// @Summary 清理过期 PDF
// @Description 删除存在时间超过 max_age_days 的 PDF 文件,默认 30 天
// @Tags pdfs
// @Accept json
// @Produce json
// @Param request body cleanupRequest false "清理参数"
// @Success 200 {object} Response
// @Router /api/v1/pdfs/cleanup [post]
func (ctrl *ContractController) CleanupPDFs(c *gin.Context) {
	req := cleanupRequest{MaxAgeDays: 30}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}
	if req.MaxAgeDays < 0 {
		Error(c, http.StatusBadRequest, "max_age_days must not be negative", strconv.Itoa(req.MaxAgeDays))
		return
	}

	deleted, err := ctrl.service.CleanupPDFs(req.MaxAgeDays)
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to clean up pdf files", err.Error())
		return
	}

	ctrl.logger.WithFields(logrus.Fields{
		"max_age_days":  req.MaxAgeDays,
		"deleted_count": deleted,
	}).Info("pdf cleanup completed")

	Success(c, gin.H{
		"deleted_count": deleted,
		"max_age_days":  req.MaxAgeDays,
	})
}
