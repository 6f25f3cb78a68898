package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"visionproxy/logger"
	"visionproxy/models"
	"visionproxy/services"
)

// AdminDeviceHandler 관리자 디바이스 HTTP 핸들러
type AdminDeviceHandler struct {
	licenses *services.LicenseService
}

// NewAdminDeviceHandler 관리자 디바이스 핸들러 생성
func NewAdminDeviceHandler(licenses *services.LicenseService) *AdminDeviceHandler {
	return &AdminDeviceHandler{licenses: licenses}
}

// Revoke 디바이스 무효화
// @Summary 디바이스 무효화 (관리자)
// @Description 디바이스를 즉시 무효화합니다. 토큰 만료를 기다리지 않고 반영되며 되돌릴 수 없습니다.
// @Tags 관리자 - 디바이스
// @Accept json
// @Produce json
// @Security AdminSecret
// @Param request body models.RevokeDeviceRequest true "디바이스 ID"
// @Success 200 {object} models.APIResponse "무효화 성공"
// @Failure 400 {object} models.APIResponse "잘못된 요청"
// @Failure 404 {object} models.APIResponse "디바이스 없음"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/admin/devices/revoke [post]
func (h *AdminDeviceHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	requestID := r.Context().Value("request_id")

	var req models.RevokeDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("Invalid request body", err))
		return
	}

	if strings.TrimSpace(req.DeviceID) == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("Device ID is required", nil))
		return
	}

	err := h.licenses.RevokeDevice(r.Context(), req.DeviceID)
	if err != nil {
		if errors.Is(err, services.ErrDeviceNotFound) {
			logger.WithFields(map[string]interface{}{
				"request_id": requestID,
				"device_id":  req.DeviceID,
			}).Warn("Device not found")

			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(models.ErrorResponse("Device not found", nil))
			return
		}

		logger.WithFields(map[string]interface{}{
			"request_id": requestID,
			"device_id":  req.DeviceID,
			"error":      err.Error(),
		}).Error("Failed to revoke device")

		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to revoke device", err))
		return
	}

	logger.WithFields(map[string]interface{}{
		"request_id": requestID,
		"device_id":  req.DeviceID,
	}).Info("Device revoked by admin")

	json.NewEncoder(w).Encode(models.SuccessResponse("Device revoked successfully", nil))
}

// ListByLicense 라이선스의 디바이스 목록 조회
// @Summary 라이선스 디바이스 목록 (관리자)
// @Description 라이선스에 묶인 디바이스를 무효화된 것까지 포함해 조회합니다
// @Tags 관리자 - 디바이스
// @Produce json
// @Security AdminSecret
// @Param license_key query string true "라이선스 키"
// @Success 200 {object} models.APIResponse{data=[]models.Device} "조회 성공"
// @Failure 400 {object} models.APIResponse "잘못된 요청"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/admin/licenses/devices [get]
func (h *AdminDeviceHandler) ListByLicense(w http.ResponseWriter, r *http.Request) {
	licenseKey := r.URL.Query().Get("license_key")
	if strings.TrimSpace(licenseKey) == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("license_key is required", nil))
		return
	}

	devices, err := h.licenses.ListDevices(r.Context(), licenseKey)
	if err != nil {
		logger.Error("Failed to query devices: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to query devices", err))
		return
	}

	json.NewEncoder(w).Encode(models.SuccessResponse("Devices retrieved", devices))
}
