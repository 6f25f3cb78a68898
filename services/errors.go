package services

import "errors"

// 활성화 시점 에러. 클라이언트가 발급자에게 문의하여 해결할 수 있는 부류입니다.
var (
	ErrLicenseNotFound     = errors.New("license not found")
	ErrLicenseInactive     = errors.New("license is not active")
	ErrDeviceQuotaExceeded = errors.New("maximum device limit reached")
)

// 요청 시점 에러. 외부에는 단일 메시지로 수렴되며
// 세부 사유는 로그/메트릭 용도로만 구분합니다.
var (
	ErrDeviceNotAuthorized = errors.New("device not authorized")
	ErrDeviceNotFound      = errors.New("device not found")
)

// ErrInvalidLicenseStatus 관리자 상태 변경 시 허용되지 않는 값
var ErrInvalidLicenseStatus = errors.New("invalid license status")
