package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"visionproxy/logger"
	"visionproxy/models"
	"visionproxy/services"
	"visionproxy/utils"
)

// UsageLogHandler 관리자 사용 로그 HTTP 핸들러
type UsageLogHandler struct {
	usage *services.UsageLogService
}

// NewUsageLogHandler 사용 로그 핸들러 생성
func NewUsageLogHandler(usage *services.UsageLogService) *UsageLogHandler {
	return &UsageLogHandler{usage: usage}
}

// List 사용 로그 조회
// @Summary 사용 로그 조회 (관리자)
// @Description 프록시 호출 기록을 페이징하여 조회합니다
// @Tags 관리자 - 사용 로그
// @Produce json
// @Security AdminSecret
// @Param page query int false "페이지 번호" default(1)
// @Param page_size query int false "페이지 크기" default(20)
// @Param license_key query string false "라이선스 키 필터"
// @Param device_id query string false "디바이스 필터"
// @Param status query string false "상태 필터 (pending, ok, upstream_error)"
// @Success 200 {object} models.PaginatedResponse{data=[]models.UsageLog} "조회 성공"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/admin/usage-logs [get]
func (h *UsageLogHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	filter := models.UsageLogFilter{
		LicenseKey: r.URL.Query().Get("license_key"),
		DeviceID:   r.URL.Query().Get("device_id"),
		Status:     r.URL.Query().Get("status"),
		Page:       page,
		PageSize:   pageSize,
	}

	logs, totalCount, err := h.usage.List(r.Context(), filter)
	if err != nil {
		logger.Error("Failed to query usage logs: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to query usage logs", err))
		return
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	json.NewEncoder(w).Encode(models.PagedResponse("Usage logs retrieved", logs, filter.Page, filter.PageSize, totalCount))
}

// Cleanup 오래된 사용 로그 삭제
// @Summary 사용 로그 정리 (관리자)
// @Description 지정한 일수보다 오래된 사용 로그를 삭제합니다
// @Tags 관리자 - 사용 로그
// @Produce json
// @Security AdminSecret
// @Param days query int false "보존 일수" default(90)
// @Success 200 {object} models.APIResponse "삭제 성공"
// @Failure 400 {object} models.APIResponse "잘못된 요청"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/admin/usage-logs/cleanup [delete]
func (h *UsageLogHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	days := 90
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.ErrorResponse("days must be a positive integer", nil))
			return
		}
		days = parsed
	}

	cutoff := utils.FormatDateTimeForDB(utils.NowUTC().AddDate(0, 0, -days))
	deleted, err := h.usage.DeleteOlderThan(r.Context(), cutoff)
	if err != nil {
		logger.Error("Failed to clean up usage logs: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to clean up usage logs", err))
		return
	}

	logger.WithFields(map[string]interface{}{
		"deleted": deleted,
		"days":    days,
	}).Info("Usage logs cleaned up")

	json.NewEncoder(w).Encode(models.SuccessResponse("Usage logs cleaned up", map[string]interface{}{
		"deleted": deleted,
	}))
}
