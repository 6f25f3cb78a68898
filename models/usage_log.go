package models

// UsageLog 프록시 호출 사용 기록
// 업스트림 호출 전 pending으로 기록하고 결과에 따라 갱신합니다.
// TokenUsage는 업스트림이 보고한 토큰 사용량 JSON 원문입니다.
// 인가 판단과는 무관한 관측용 데이터입니다.
type UsageLog struct {
	ID         int64  `json:"id"`
	LicenseKey string `json:"license_key"`
	DeviceID   string `json:"device_id"`
	Prompt     string `json:"prompt"`
	Response   string `json:"response,omitempty"`
	TokenUsage string `json:"token_usage,omitempty"`
	Status     string `json:"status"` // pending, ok, upstream_error
	CreatedAt  string `json:"created_at"`
}

// UsageLogStatus 상태 상수
const (
	UsageStatusPending       = "pending"
	UsageStatusOK            = "ok"
	UsageStatusUpstreamError = "upstream_error"
)

// UsageLogFilter 사용 로그 조회 필터
type UsageLogFilter struct {
	LicenseKey string `json:"license_key,omitempty"`
	DeviceID   string `json:"device_id,omitempty"`
	Status     string `json:"status,omitempty"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
}
