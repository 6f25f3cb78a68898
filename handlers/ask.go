package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"visionproxy/logger"
	"visionproxy/models"
	"visionproxy/services"
	"visionproxy/upstream"
)

// AskHandler 인가된 프록시 질의 HTTP 핸들러
// 게이트를 통과한 요청의 이미지를 업스트림 완성 API로 전달하고 답변을 중계합니다.
type AskHandler struct {
	completions   upstream.CompletionClient
	usage         *services.UsageLogService
	defaultPrompt string
}

// NewAskHandler 질의 핸들러 생성
func NewAskHandler(completions upstream.CompletionClient, usage *services.UsageLogService, defaultPrompt string) *AskHandler {
	return &AskHandler{
		completions:   completions,
		usage:         usage,
		defaultPrompt: defaultPrompt,
	}
}

// Ask 이미지 질의
// @Summary 이미지 질의
// @Description base64 PNG 이미지를 업스트림에 전달하고 답변을 반환합니다
// @Tags 클라이언트
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.AskRequest true "질의 정보"
// @Success 200 {object} models.APIResponse{data=models.AskResponse} "질의 성공"
// @Failure 400 {object} models.APIResponse "잘못된 요청"
// @Failure 401 {object} models.APIResponse "인가 실패"
// @Failure 502 {object} models.APIResponse "업스트림 실패"
// @Router /api/ask [post]
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	requestID := r.Context().Value("request_id")
	licenseKey, _ := r.Context().Value("license_key").(string)
	deviceID, _ := r.Context().Value("device_id").(string)

	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("Invalid request body", err))
		return
	}

	if strings.TrimSpace(req.Image) == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("image is required", nil))
		return
	}

	prompt := req.Prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = h.defaultPrompt
	}

	// 사용 로그는 관측용이라 기록 실패가 요청을 막지 않습니다.
	logID, err := h.usage.Record(r.Context(), licenseKey, deviceID, prompt)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"request_id":  requestID,
			"license_key": licenseKey,
			"error":       err.Error(),
		}).Warn("Failed to record usage log")
	}

	result, err := h.completions.Complete(r.Context(), prompt, req.Image)
	if err != nil {
		if logID != 0 {
			if markErr := h.usage.MarkResult(r.Context(), logID, models.UsageStatusUpstreamError, err.Error(), ""); markErr != nil {
				logger.Warn("Failed to mark usage log result: %v", markErr)
			}
		}

		if errors.Is(err, upstream.ErrUpstream) {
			logger.WithFields(map[string]interface{}{
				"request_id":  requestID,
				"license_key": licenseKey,
				"error":       err.Error(),
			}).Error("Upstream completion failed")

			w.WriteHeader(http.StatusBadGateway)
			json.NewEncoder(w).Encode(models.ErrorResponse("Upstream completion failed", nil))
			return
		}

		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Failed to process request", err))
		return
	}

	if logID != 0 {
		if markErr := h.usage.MarkResult(r.Context(), logID, models.UsageStatusOK, result.Answer, result.Usage); markErr != nil {
			logger.Warn("Failed to mark usage log result: %v", markErr)
		}
	}

	logger.WithFields(map[string]interface{}{
		"request_id":  requestID,
		"license_key": licenseKey,
	}).Info("Ask request completed")

	json.NewEncoder(w).Encode(models.SuccessResponse("Completion succeeded", models.AskResponse{
		Answer: result.Answer,
	}))
}
