package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"visionproxy/config"
	"visionproxy/database"
	_ "visionproxy/docs" // Swagger 문서
	"visionproxy/handlers"
	"visionproxy/logger"
	"visionproxy/middleware"
	"visionproxy/scheduler"
	"visionproxy/services"
	"visionproxy/upstream"
	"visionproxy/utils"

	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Vision Proxy Server API
// @version 1.0
// @description 라이선스 게이트 비전 프록시 서버
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description 디바이스 토큰을 입력하세요. 형식: Bearer {token}

// @securityDefinitions.apikey AdminSecret
// @in header
// @name X-Admin-Secret
// @description 관리자 공유 비밀

func main() {
	// 설정은 환경변수에서 한 번 로드합니다. 필수 값이 없으면 기동하지 않습니다.
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration: %v", err)
	}

	// 로거 초기화
	logConfig := logger.Config{
		Level:    logger.ParseLevel(cfg.LogLevel),
		LogDir:   cfg.LogDir,
		MaxSize:  10 * 1024 * 1024, // 10MB
		MaxAge:   7,                // 7일
		UseColor: true,
	}

	if err := logger.Initialize(logConfig); err != nil {
		logger.Fatal("Failed to initialize logger: %v", err)
	}

	logger.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	logger.Info("🚀 Vision Proxy Server Starting")
	logger.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	// 데이터베이스 초기화 (sqlite 또는 mysql)
	if err := database.Initialize(cfg.DBDriver, cfg.DBDSN); err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// 서비스 계층 초기화
	sqlExecutor := services.NewSQLExecutor(database.DB)
	tokenCodec := utils.NewTokenCodec(cfg.JWTSecret, cfg.TokenTTL)
	licenseService := services.NewLicenseService(sqlExecutor, tokenCodec)
	usageService := services.NewUsageLogService(sqlExecutor)
	completionClient := upstream.NewOpenAIClient(cfg)

	// 핸들러 초기화
	activationHandler := handlers.NewActivationHandler(licenseService)
	askHandler := handlers.NewAskHandler(completionClient, usageService, cfg.DefaultPrompt)
	adminLicenseHandler := handlers.NewAdminLicenseHandler(licenseService)
	adminDeviceHandler := handlers.NewAdminDeviceHandler(licenseService)
	usageLogHandler := handlers.NewUsageLogHandler(usageService)

	// 인가 미들웨어
	deviceAuth := middleware.DeviceAuth(tokenCodec, licenseService)
	adminAuth := middleware.AdminAuth(cfg)

	// 스케줄러 시작 (사용 로그 보존 기간 정리)
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	scheduler.StartScheduler(schedulerCtx, usageService, cfg.UsageRetentionDays)

	// 라우터 설정
	mux := http.NewServeMux()

	// Swagger 문서
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	// Public 엔드포인트
	mux.HandleFunc("/", homeHandler)
	mux.HandleFunc("/health", healthHandler)

	// 클라이언트 API (인증 불필요)
	mux.HandleFunc("/api/license/activate",
		middleware.ChainMiddleware(
			activationHandler.Activate,
			middleware.LoggingMiddleware,
			middleware.CORSMiddleware,
			middleware.SetJSONHeader,
		))

	// 클라이언트 API (디바이스 토큰 필요)
	mux.HandleFunc("/api/ask",
		middleware.ChainMiddleware(
			askHandler.Ask,
			middleware.LoggingMiddleware,
			deviceAuth,
			middleware.CORSMiddleware,
			middleware.SetJSONHeader,
		))

	// 라이선스 관리 API (관리자)
	mux.HandleFunc("/api/admin/licenses",
		middleware.ChainMiddleware(
			licenseRouter(adminLicenseHandler),
			middleware.LoggingMiddleware,
			adminAuth,
			middleware.CORSMiddleware,
			middleware.SetJSONHeader,
		))

	// 라이선스 디바이스 조회 API (관리자)
	mux.HandleFunc("/api/admin/licenses/devices",
		middleware.ChainMiddleware(
			adminDeviceHandler.ListByLicense,
			middleware.LoggingMiddleware,
			adminAuth,
			middleware.CORSMiddleware,
			middleware.SetJSONHeader,
		))

	mux.HandleFunc("/api/admin/licenses/",
		middleware.ChainMiddleware(
			licenseDetailRouter(adminLicenseHandler),
			middleware.LoggingMiddleware,
			adminAuth,
			middleware.CORSMiddleware,
			middleware.SetJSONHeader,
		))

	// 디바이스 무효화 API (관리자)
	mux.HandleFunc("/api/admin/devices/revoke",
		middleware.ChainMiddleware(
			adminDeviceHandler.Revoke,
			middleware.LoggingMiddleware,
			adminAuth,
			middleware.CORSMiddleware,
			middleware.SetJSONHeader,
		))

	// 사용 로그 API (관리자)
	mux.HandleFunc("/api/admin/usage-logs",
		middleware.ChainMiddleware(
			methodHandler(http.MethodGet, usageLogHandler.List),
			middleware.LoggingMiddleware,
			adminAuth,
			middleware.CORSMiddleware,
			middleware.SetJSONHeader,
		))

	mux.HandleFunc("/api/admin/usage-logs/cleanup",
		middleware.ChainMiddleware(
			methodHandler(http.MethodDelete, usageLogHandler.Cleanup),
			middleware.LoggingMiddleware,
			adminAuth,
			middleware.CORSMiddleware,
			middleware.SetJSONHeader,
		))

	// 서버 설정
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown 설정
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Warn("Received shutdown signal")
		stopScheduler()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error: %v", err)
		}

		database.Close()
		os.Exit(0)
	}()

	logger.Info("Server listening on http://localhost%s", cfg.Addr())
	logger.Info("Swagger UI: http://localhost%s/swagger/index.html", cfg.Addr())
	logger.Info("Log directory: %s", cfg.LogDir)
	logger.Info("Database: %s - %s", cfg.DBDriver, cfg.DBDSN)
	logger.Info("Upstream model: %s", cfg.OpenAIModel)
	logger.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server failed to start: %v", err)
	}
}

// homeHandler 루트 핸들러
func homeHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"success","message":"Vision Proxy Server","version":"1.0.0"}`))
}

// healthHandler 헬스체크 핸들러
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"success","message":"Server is healthy"}`))
}

// methodHandler 단일 메서드 전용 핸들러
func methodHandler(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// licenseRouter 라이선스 목록/생성 핸들러
func licenseRouter(h *handlers.AdminLicenseHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.List(w, r)
		case http.MethodPost:
			h.Create(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

// licenseDetailRouter 라이선스 상세/상태 변경 핸들러
// 경로: /api/admin/licenses/{license_key} 또는 /api/admin/licenses/{license_key}/status
func licenseDetailRouter(h *handlers.AdminLicenseHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/admin/licenses/")
		path = strings.Trim(path, "/")

		licenseKey := path
		statusRoute := false
		if idx := strings.Index(path, "/"); idx >= 0 {
			if path[idx+1:] != "status" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			licenseKey = path[:idx]
			statusRoute = true
		}

		if licenseKey == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		ctx := context.WithValue(r.Context(), "path_license_key", licenseKey)
		r = r.WithContext(ctx)

		switch {
		case statusRoute && r.Method == http.MethodPut:
			h.UpdateStatus(w, r)
		case !statusRoute && r.Method == http.MethodGet:
			h.Get(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}
