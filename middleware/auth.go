package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"visionproxy/config"
	"visionproxy/logger"
	"visionproxy/models"
	"visionproxy/services"
	"visionproxy/utils"
)

// 수렴된 외부 메시지. 위조/만료/무효화를 구분해서 알려주지 않습니다.
const deviceAuthFailedMessage = "Invalid or expired device token"

// DeviceAuth 디바이스 토큰 인가 게이트
// 서명/만료 검증과 저장소 교차 확인을 모두 통과해야 다음 핸들러로 넘어갑니다.
// 서명이 발급 시점의 진본성을 보장하더라도 무효화가 토큰 만료를 기다리지 않고
// 즉시 반영되도록 매 요청 저장소 상태를 다시 확인합니다.
func DeviceAuth(codec *utils.TokenCodec, licenses *services.LicenseService) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Context().Value("request_id")

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.WithFields(map[string]interface{}{
					"request_id": requestID,
					"ip":         getClientIP(r),
				}).Warn("Missing authorization header")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(models.ErrorResponse("Authorization header required", nil))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.WithFields(map[string]interface{}{
					"request_id": requestID,
					"ip":         getClientIP(r),
				}).Warn("Malformed authorization header")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(models.ErrorResponse("Invalid authorization header format", nil))
				return
			}

			token := parts[1]

			claims, err := codec.Verify(token)
			if err != nil {
				// 내부 사유(파싱/서명/만료)는 로그로만 남깁니다.
				logger.WithFields(map[string]interface{}{
					"request_id": requestID,
					"ip":         getClientIP(r),
					"reason":     "token_verify_failed",
				}).Warn("Device token rejected")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(models.ErrorResponse(deviceAuthFailedMessage, nil))
				return
			}

			device, err := licenses.FindDevice(r.Context(), claims.LicenseKey, claims.DeviceID, token)
			if err != nil {
				reason := "store_lookup_failed"
				status := http.StatusInternalServerError
				message := "Failed to verify device"

				if errors.Is(err, services.ErrDeviceNotAuthorized) {
					reason = "device_not_authorized"
					status = http.StatusUnauthorized
					message = deviceAuthFailedMessage
				}

				logger.WithFields(map[string]interface{}{
					"request_id":  requestID,
					"license_key": claims.LicenseKey,
					"reason":      reason,
				}).Warn("Device token rejected")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				json.NewEncoder(w).Encode(models.ErrorResponse(message, nil))
				return
			}

			// last_seen 갱신은 관측용이라 실패해도 요청을 막지 않습니다.
			if err := licenses.TouchLastSeen(r.Context(), device.ID, utils.NowUTC()); err != nil {
				logger.WithFields(map[string]interface{}{
					"request_id": requestID,
					"device_row": device.ID,
					"error":      err.Error(),
				}).Warn("Failed to update last_seen")
			}

			// 다음 핸들러에는 토큰이 아닌 식별자만 전달합니다.
			ctx := context.WithValue(r.Context(), "license_key", claims.LicenseKey)
			ctx = context.WithValue(ctx, "device_id", claims.DeviceID)
			ctx = context.WithValue(ctx, "device_row_id", device.ID)

			next.ServeHTTP(w, r.WithContext(ctx))
		}
	}
}

// AdminAuth 관리자 공유 비밀 게이트
// X-Admin-Secret 헤더를 설정값과 대조합니다.
func AdminAuth(cfg *config.Config) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Context().Value("request_id")

			presented := r.Header.Get("X-Admin-Secret")
			if !utils.CheckAdminSecret(cfg.AdminSecret, presented, cfg.AdminSecretHashed) {
				logger.WithFields(map[string]interface{}{
					"request_id": requestID,
					"ip":         getClientIP(r),
				}).Warn("Admin secret rejected")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(models.ErrorResponse("Invalid admin secret", nil))
				return
			}

			next.ServeHTTP(w, r)
		}
	}
}
