package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"visionproxy/logger"
	"visionproxy/models"
	"visionproxy/services"
)

// AdminLicenseHandler 관리자 라이선스 HTTP 핸들러
type AdminLicenseHandler struct {
	licenses *services.LicenseService
}

// NewAdminLicenseHandler 관리자 라이선스 핸들러 생성
func NewAdminLicenseHandler(licenses *services.LicenseService) *AdminLicenseHandler {
	return &AdminLicenseHandler{licenses: licenses}
}

// Create 라이선스 생성
// @Summary 라이선스 생성
// @Description 새 라이선스를 생성하고 키를 발급합니다
// @Tags 관리자 - 라이선스
// @Accept json
// @Produce json
// @Security AdminSecret
// @Param request body models.CreateLicenseRequest true "라이선스 정보"
// @Success 201 {object} models.APIResponse{data=models.License} "생성 성공"
// @Failure 400 {object} models.APIResponse "잘못된 요청"
// @Failure 401 {object} models.APIResponse "인증 실패"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/admin/licenses [post]
func (h *AdminLicenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLicenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("Invalid request body", err))
		return
	}

	if strings.TrimSpace(req.Buyer) == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("buyer is required", nil))
		return
	}

	if req.MaxDevices < 1 {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("max_devices must be at least 1", nil))
		return
	}

	license, err := h.licenses.CreateLicense(r.Context(), req.Buyer, req.MaxDevices)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"error": err.Error(),
			"buyer": req.Buyer,
		}).Error("Failed to create license")

		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to create license", err))
		return
	}

	logger.WithFields(map[string]interface{}{
		"license_id": license.ID,
		"buyer":      license.Buyer,
	}).Info("License created")

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(models.SuccessResponse("License created successfully", license))
}

// List 라이선스 목록 조회
// @Summary 라이선스 목록 조회
// @Description 라이선스 목록을 페이징하여 조회합니다
// @Tags 관리자 - 라이선스
// @Produce json
// @Security AdminSecret
// @Param page query int false "페이지 번호" default(1)
// @Param page_size query int false "페이지 크기" default(20)
// @Success 200 {object} models.PaginatedResponse{data=[]models.License} "조회 성공"
// @Failure 401 {object} models.APIResponse "인증 실패"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/admin/licenses [get]
func (h *AdminLicenseHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	licenses, totalCount, err := h.licenses.ListLicenses(r.Context(), page, pageSize)
	if err != nil {
		logger.Error("Failed to query licenses: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to query licenses", err))
		return
	}

	json.NewEncoder(w).Encode(models.PagedResponse("Licenses retrieved", licenses, page, pageSize, totalCount))
}

// Get 라이선스 상세 조회
// @Summary 라이선스 상세 조회
// @Description 라이선스와 묶인 디바이스 목록을 조회합니다
// @Tags 관리자 - 라이선스
// @Produce json
// @Security AdminSecret
// @Success 200 {object} models.APIResponse{data=models.LicenseDetail} "조회 성공"
// @Failure 404 {object} models.APIResponse "라이선스 없음"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/admin/licenses/{license_key} [get]
func (h *AdminLicenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	licenseKey, _ := r.Context().Value("path_license_key").(string)
	if strings.TrimSpace(licenseKey) == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("License key is required", nil))
		return
	}

	detail, err := h.licenses.GetLicenseDetail(r.Context(), licenseKey)
	if err != nil {
		if errors.Is(err, services.ErrLicenseNotFound) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(models.ErrorResponse("License not found", nil))
			return
		}

		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to retrieve license", err))
		return
	}

	json.NewEncoder(w).Encode(models.SuccessResponse("License retrieved", detail))
}

// UpdateStatus 라이선스 상태 변경
// @Summary 라이선스 상태 변경
// @Description 라이선스를 suspend 또는 active로 전환합니다. 삭제는 없습니다.
// @Tags 관리자 - 라이선스
// @Accept json
// @Produce json
// @Security AdminSecret
// @Param request body models.UpdateLicenseStatusRequest true "상태 정보"
// @Success 200 {object} models.APIResponse "변경 성공"
// @Failure 400 {object} models.APIResponse "잘못된 상태 값"
// @Failure 404 {object} models.APIResponse "라이선스 없음"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/admin/licenses/{license_key}/status [put]
func (h *AdminLicenseHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	licenseKey, _ := r.Context().Value("path_license_key").(string)
	if strings.TrimSpace(licenseKey) == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("License key is required", nil))
		return
	}

	var req models.UpdateLicenseStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("Invalid request body", err))
		return
	}

	err := h.licenses.SetLicenseStatus(r.Context(), licenseKey, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidLicenseStatus):
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.ErrorResponse("Status must be active or suspended", nil))
		case errors.Is(err, services.ErrLicenseNotFound):
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(models.ErrorResponse("License not found", nil))
		default:
			logger.WithFields(map[string]interface{}{
				"error":       err.Error(),
				"license_key": licenseKey,
			}).Error("Failed to update license status")

			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(models.ErrorResponse("Failed to update license status", err))
		}
		return
	}

	logger.WithFields(map[string]interface{}{
		"license_key": licenseKey,
		"status":      req.Status,
	}).Info("License status updated")

	json.NewEncoder(w).Encode(models.SuccessResponse("License status updated", nil))
}
