package models

// Device 활성화된 디바이스 정보
// 활성화 성공 시 한 건 생성되며 삭제하지 않고 revoked 플래그로만 무효화합니다.
// Token에는 발급된 디바이스 토큰을 그대로 저장하여, 게이트에서
// 서명 검증과 별개로 저장값 일치까지 확인합니다(토큰 교체 시 구 토큰 차단).
type Device struct {
	ID          string `json:"id" db:"id"`
	LicenseKey  string `json:"license_key" db:"license_key"`
	DeviceID    string `json:"device_id" db:"device_id"`
	Token       string `json:"-" db:"token"`
	Revoked     bool   `json:"revoked" db:"revoked"`
	ActivatedAt string `json:"activated_at" db:"activated_at"`
	LastSeen    string `json:"last_seen" db:"last_seen"`
}

// ActivateRequest 라이선스 활성화 요청
// DeviceID는 클라이언트가 산출한 머신 핑거프린트입니다.
// 서버는 그 파생 방식을 검증하지 않습니다.
type ActivateRequest struct {
	LicenseKey string `json:"license_key"`
	DeviceID   string `json:"device_id"`
}

// ActivateResponse 활성화 응답
type ActivateResponse struct {
	DeviceToken string `json:"device_token"`
	ExpiresAt   string `json:"expires_at"`
}

// AskRequest 프록시 질의 요청
// Image는 base64로 인코딩된 PNG입니다.
type AskRequest struct {
	Image  string `json:"image"`
	Prompt string `json:"prompt,omitempty"`
}

// AskResponse 프록시 질의 응답
type AskResponse struct {
	Answer string `json:"answer"`
}

// RevokeDeviceRequest 디바이스 무효화 요청 (관리자)
type RevokeDeviceRequest struct {
	DeviceID string `json:"device_id"` // devices.id (서버 발급 ID)
}
