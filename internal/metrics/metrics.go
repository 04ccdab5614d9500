package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 合同创建数
	contractsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "contracts_created_total",
			Help: "Total number of contracts created",
		},
	)

	// PDF 生成数,按编码器区分
	pdfGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdf_generated_total",
			Help: "Total number of PDF documents generated",
		},
		[]string{"encoder"},
	)

	// 主编码器回退次数
	pdfFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pdf_fallbacks_total",
			Help: "Total number of falls back to the secondary PDF encoder",
		},
	)

	// 邮件发送数,按结果区分
	emailsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Total number of contract emails attempted",
		},
		[]string{"result"}, // success, failure
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

var once sync.Once

func init() {
	// 注册指标
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(contractsCreatedTotal)
	prometheus.MustRegister(pdfGeneratedTotal)
	prometheus.MustRegister(pdfFallbacksTotal)
	prometheus.MustRegister(emailsSentTotal)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)

	// 注册 Go 运行时指标（只注册一次,已注册则忽略错误）
	once.Do(func() {
		_ = prometheus.Register(collectors.NewGoCollector())
		_ = prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	apiRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordContractCreated 记录合同创建
func RecordContractCreated() {
	contractsCreatedTotal.Inc()
}

// RecordPDFGenerated 记录 PDF 生成
func RecordPDFGenerated(encoder string) {
	pdfGeneratedTotal.WithLabelValues(encoder).Inc()
}

// RecordPDFFallback 记录主编码器回退
func RecordPDFFallback() {
	pdfFallbacksTotal.Inc()
}

// RecordEmailSent 记录邮件发送结果
func RecordEmailSent(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	emailsSentTotal.WithLabelValues(result).Inc()
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.OpenConnections - stats.Idle))
	databaseConnectionsIdle.Set(float64(stats.Idle))

	return nil
}
