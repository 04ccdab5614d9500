package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/HPNChanel/contract-generator/internal/api"
	"github.com/HPNChanel/contract-generator/internal/config"
	"github.com/HPNChanel/contract-generator/internal/email"
	"github.com/HPNChanel/contract-generator/internal/model"
	"github.com/HPNChanel/contract-generator/internal/pdf"
	"github.com/HPNChanel/contract-generator/internal/render"
	"github.com/HPNChanel/contract-generator/internal/repository"
	"github.com/HPNChanel/contract-generator/internal/service"
)

// fakeSender 测试用邮件发送器
type fakeSender struct {
	err   error
	calls int
}

func (f *fakeSender) Send(ctx context.Context, recipient, pdfPath, contractType string, contractID uint) error {
	f.calls++
	return f.err
}

// testServer API 测试环境
type testServer struct {
	router *gin.Engine
	store  *pdf.FileStore
	sender *fakeSender
}

// setupTestServer 装配完整路由的测试服务器
// 使用内存数据库、临时 PDF 目录和内置编码器,不依赖外部进程
func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.ContractModel{}))

	renderer, err := render.NewRenderer("../../templates")
	require.NoError(t, err)

	repo := repository.NewContractRepository(db)
	store := pdf.NewFileStore(t.TempDir())
	encoder := pdf.NewEncoderChain(nil, pdf.NewFallbackEncoder(), nil)
	sender := &fakeSender{}

	cfg := config.Default()
	log := api.NewLogger(cfg.Log)
	log.SetLevel(logrus.WarnLevel) // 静默请求日志噪声

	svc := service.NewContractService(repo, renderer, encoder, store, sender, log)
	emailSender := email.NewSender(cfg.SMTP)

	ctrls := api.Controllers{
		Contract: api.NewContractController(svc, store, log),
		Email:    api.NewEmailController(emailSender, log),
		Health:   api.NewHealthController(db, encoder, emailSender),
	}

	return &testServer{
		router: api.SetupRouter(cfg, ctrls, log),
		store:  store,
		sender: sender,
	}
}

// doJSON 发送 JSON 请求并返回响应
func (s *testServer) doJSON(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// decodeData 解析统一响应的 data 字段
func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var resp struct {
		Code    int                    `json:"code"`
		Message string                 `json:"message"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 0, resp.Code)
	return resp.Data
}

// validPayload 返回一份通过校验的创建载荷
func validPayload() map[string]interface{} {
	return map[string]interface{}{
		"contract_type": "Service Agreement",
		"party_a":       map[string]string{"name": "ABC Company Inc."},
		"party_b":       map[string]string{"name": "Jane Smith"},
		"terms":         "Consulting services for 12 months.",
		"start_date":    "2024-01-01",
		"end_date":      "2024-12-31",
	}
}

// createContract 通过接口创建一份合同,返回 ID 和 PDF 文件名
func createContract(t *testing.T, s *testServer) (uint, string) {
	t.Helper()

	w := s.doJSON(t, http.MethodPost, "/api/v1/contracts", validPayload())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := decodeData(t, w)
	id := uint(data["contract_id"].(float64))
	pdfInfo := data["pdf_info"].(map[string]interface{})
	return id, pdfInfo["filename"].(string)
}

// TestCreateContractEndpoint 测试创建接口的完整响应
func TestCreateContractEndpoint(t *testing.T) {
	s := setupTestServer(t)

	w := s.doJSON(t, http.MethodPost, "/api/v1/contracts", validPayload())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := decodeData(t, w)
	assert.NotZero(t, data["contract_id"])
	assert.Contains(t, data["preview_html"].(string), "Jane Smith")
	assert.Nil(t, data["email_sent"])

	pdfInfo := data["pdf_info"].(map[string]interface{})
	assert.Regexp(t, regexp.MustCompile(`^contract_\d+_\d{14}\.pdf$`), pdfInfo["filename"])
	assert.Contains(t, pdfInfo["download_url"], "/api/v1/contracts/download/")
}

// TestCreateContractValidation 测试创建接口一次性返回全部缺失字段
func TestCreateContractValidation(t *testing.T) {
	s := setupTestServer(t)

	payload := validPayload()
	delete(payload, "terms")
	payload["party_b"] = map[string]string{"address": "somewhere"}

	w := s.doJSON(t, http.MethodPost, "/api/v1/contracts", payload)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "terms")
	assert.Contains(t, w.Body.String(), "party_b.name")
}

// TestCreateContractMultipart 测试 multipart 形式创建与签名图片内联
func TestCreateContractMultipart(t *testing.T) {
	s := setupTestServer(t)

	payload, err := json.Marshal(validPayload())
	require.NoError(t, err)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("contract", string(payload)))

	// 最小合法 PNG 头,足够通过图片类型探测
	part, err := form.CreateFormFile("signature_image", "signature.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/contracts", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeData(t, w)
	assert.Contains(t, data["preview_html"].(string), "data:image/png;base64,")
}

// TestListContractsEndpoint 测试列表接口与分页参数校验
func TestListContractsEndpoint(t *testing.T) {
	s := setupTestServer(t)
	createContract(t, s)
	createContract(t, s)

	w := s.doJSON(t, http.MethodGet, "/api/v1/contracts?skip=0&limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.EqualValues(t, 2, data["total_contracts"])
	assert.Len(t, data["contracts"], 1)

	// limit 超出范围
	w = s.doJSON(t, http.MethodGet, "/api/v1/contracts?limit=1001", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.doJSON(t, http.MethodGet, "/api/v1/contracts?skip=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestGetContractEndpoint 测试详情接口
func TestGetContractEndpoint(t *testing.T) {
	s := setupTestServer(t)
	id, filename := createContract(t, s)

	w := s.doJSON(t, http.MethodGet, fmt.Sprintf("/api/v1/contracts/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, true, data["pdf_exists"])
	assert.Contains(t, data["download_url"], filename)

	// 不存在的 ID
	w = s.doJSON(t, http.MethodGet, "/api/v1/contracts/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 非法 ID
	w = s.doJSON(t, http.MethodGet, "/api/v1/contracts/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestUpdateContractEndpoint 测试更新接口
func TestUpdateContractEndpoint(t *testing.T) {
	s := setupTestServer(t)
	id, _ := createContract(t, s)

	w := s.doJSON(t, http.MethodPut, fmt.Sprintf("/api/v1/contracts/%d", id), map[string]interface{}{
		"terms": "Revised terms.",
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, "Revised terms.", data["terms"])
	assert.Equal(t, "Service Agreement", data["contract_type"])
}

// TestUpdateContractValidation 测试更新接口的缺失字段同样统一收集
// 签署方名称缺失由载荷校验报告,不被请求绑定层提前拦截
func TestUpdateContractValidation(t *testing.T) {
	s := setupTestServer(t)
	id, _ := createContract(t, s)

	w := s.doJSON(t, http.MethodPut, fmt.Sprintf("/api/v1/contracts/%d", id), map[string]interface{}{
		"party_b": map[string]string{"address": "456 Client Ave"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing required fields")
	assert.Contains(t, w.Body.String(), "party_b.name")
}

// TestDeleteContractEndpoint 测试删除接口
func TestDeleteContractEndpoint(t *testing.T) {
	s := setupTestServer(t)
	id, filename := createContract(t, s)

	w := s.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/v1/contracts/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, true, data["pdf_deleted"])

	// PDF 文件已被删除
	w = s.doJSON(t, http.MethodGet, "/api/v1/contracts/download/"+filename, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestRenderContractEndpoint 测试 HTML 渲染接口
func TestRenderContractEndpoint(t *testing.T) {
	s := setupTestServer(t)
	id, _ := createContract(t, s)

	w := s.doJSON(t, http.MethodGet, fmt.Sprintf("/api/v1/contracts/%d/render", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "ABC Company Inc.")
}

// TestDownloadEndpoint 测试下载接口的扩展名限制与 404 语义
func TestDownloadEndpoint(t *testing.T) {
	s := setupTestServer(t)
	_, filename := createContract(t, s)

	w := s.doJSON(t, http.MethodGet, "/api/v1/contracts/download/"+filename, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))

	// 非 PDF 文件名
	w = s.doJSON(t, http.MethodGet, "/api/v1/contracts/download/notes.txt", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 不存在的 PDF
	w = s.doJSON(t, http.MethodGet, "/api/v1/contracts/download/contract_99_20240101000000.pdf", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestSendEmailEndpoint 测试独立邮件发送接口
func TestSendEmailEndpoint(t *testing.T) {
	s := setupTestServer(t)
	id, _ := createContract(t, s)

	w := s.doJSON(t, http.MethodPost, fmt.Sprintf("/api/v1/contracts/%d/email", id), map[string]string{
		"recipient_email": "john.doe@email.com",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, s.sender.calls)

	// 缺少收件人
	w = s.doJSON(t, http.MethodPost, fmt.Sprintf("/api/v1/contracts/%d/email", id), map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestSampleDataEndpoint 测试示例数据接口
func TestSampleDataEndpoint(t *testing.T) {
	s := setupTestServer(t)

	w := s.doJSON(t, http.MethodGet, "/api/v1/contracts/sample-data", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, "Service Agreement", data["contract_type"])
}

// TestListPDFsEndpoint 测试 PDF 文件列表接口
func TestListPDFsEndpoint(t *testing.T) {
	s := setupTestServer(t)
	createContract(t, s)

	w := s.doJSON(t, http.MethodGet, "/api/v1/pdfs", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.EqualValues(t, 1, data["total_files"])
}

// TestCleanupEndpoint 测试 PDF 清理接口
func TestCleanupEndpoint(t *testing.T) {
	s := setupTestServer(t)
	createContract(t, s)

	// 刚生成的文件不会被清理
	w := s.doJSON(t, http.MethodPost, "/api/v1/pdfs/cleanup", map[string]int{"max_age_days": 30})
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.EqualValues(t, 0, data["deleted_count"])

	// 负数阈值被拒绝
	w = s.doJSON(t, http.MethodPost, "/api/v1/pdfs/cleanup", map[string]int{"max_age_days": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestEmailConfigEndpoint 测试邮件配置状态接口
func TestEmailConfigEndpoint(t *testing.T) {
	s := setupTestServer(t)

	w := s.doJSON(t, http.MethodGet, "/api/v1/email/config", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	// 默认配置没有凭据,不完整
	assert.Equal(t, false, data["configuration_complete"])
	assert.Equal(t, true, data["smtp_server_configured"])
}

// TestHealthEndpoint 测试健康检查接口
func TestHealthEndpoint(t *testing.T) {
	s := setupTestServer(t)

	w := s.doJSON(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, true, data["database"])
}

// TestNoRouteReturnsJSON 测试未匹配路由返回 JSON 404
func TestNoRouteReturnsJSON(t *testing.T) {
	s := setupTestServer(t)

	w := s.doJSON(t, http.MethodGet, "/api/v1/nothing-here", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.Contains(t, w.Body.String(), "route not found")
}

// TestRequestIDPropagation 测试请求 ID 透传
func TestRequestIDPropagation(t *testing.T) {
	s := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-12345")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, "req-12345", w.Header().Get("X-Request-ID"))

	// 未提供时自动生成
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
