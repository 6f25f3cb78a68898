package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"visionproxy/logger"
	"visionproxy/models"
	"visionproxy/services"
	"visionproxy/utils"
)

// ActivationHandler 라이선스 활성화 HTTP 핸들러
type ActivationHandler struct {
	licenses *services.LicenseService
}

// NewActivationHandler 활성화 핸들러 생성
func NewActivationHandler(licenses *services.LicenseService) *ActivationHandler {
	return &ActivationHandler{licenses: licenses}
}

// Activate 라이선스 활성화
// @Summary 라이선스 활성화
// @Description 라이선스 키와 디바이스 핑거프린트로 디바이스 토큰을 발급받습니다
// @Tags 클라이언트
// @Accept json
// @Produce json
// @Param request body models.ActivateRequest true "활성화 정보"
// @Success 201 {object} models.APIResponse{data=models.ActivateResponse} "활성화 성공"
// @Failure 400 {object} models.APIResponse "잘못된 요청"
// @Failure 403 {object} models.APIResponse "라이선스 비활성 또는 쿼터 초과"
// @Failure 404 {object} models.APIResponse "라이선스 없음"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/license/activate [post]
func (h *ActivationHandler) Activate(w http.ResponseWriter, r *http.Request) {
	requestID := r.Context().Value("request_id")

	var req models.ActivateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WithFields(map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Invalid activate request")

		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("Invalid request body", err))
		return
	}

	if strings.TrimSpace(req.LicenseKey) == "" || strings.TrimSpace(req.DeviceID) == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("license_key and device_id are required", nil))
		return
	}

	logger.WithFields(map[string]interface{}{
		"request_id":  requestID,
		"license_key": req.LicenseKey,
	}).Info("License activation attempt")

	token, expiresAt, err := h.licenses.Activate(r.Context(), req.LicenseKey, req.DeviceID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLicenseNotFound):
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(models.ErrorResponse("License not found", nil))
		case errors.Is(err, services.ErrLicenseInactive):
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(models.ErrorResponse("License is not active", nil))
		case errors.Is(err, services.ErrDeviceQuotaExceeded):
			logger.WithFields(map[string]interface{}{
				"request_id":  requestID,
				"license_key": req.LicenseKey,
			}).Warn("Maximum device limit reached")

			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(models.ErrorResponse("Maximum device limit reached", nil))
		default:
			logger.WithFields(map[string]interface{}{
				"request_id":  requestID,
				"license_key": req.LicenseKey,
				"error":       err.Error(),
			}).Error("Failed to activate device")

			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(models.ErrorResponse("Failed to activate device", err))
		}
		return
	}

	logger.WithFields(map[string]interface{}{
		"request_id":  requestID,
		"license_key": req.LicenseKey,
	}).Info("License activated successfully")

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(models.SuccessResponse("License activated successfully", models.ActivateResponse{
		DeviceToken: token,
		ExpiresAt:   utils.FormatDateTimeForDB(expiresAt),
	}))
}
