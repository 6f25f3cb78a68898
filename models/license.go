package models

// License 라이선스 정보
// 구매자 단위의 사용 권한이며 디바이스 쿼터를 가집니다.
// 하드 삭제는 하지 않고 status 변경으로만 관리합니다.
type License struct {
	ID         string `json:"id" db:"id"`
	LicenseKey string `json:"license_key" db:"license_key"`
	Buyer      string `json:"buyer" db:"buyer"`
	MaxDevices int    `json:"max_devices" db:"max_devices"`
	Status     string `json:"status" db:"status"` // active, suspended
	CreatedAt  string `json:"created_at" db:"created_at"`
	UpdatedAt  string `json:"updated_at" db:"updated_at"`
}

// LicenseStatus 상태 상수
const (
	LicenseStatusActive    = "active"
	LicenseStatusSuspended = "suspended"
)

// IsActive 활성 상태 여부
func (l *License) IsActive() bool {
	return l.Status == LicenseStatusActive
}

// CreateLicenseRequest 라이선스 생성 요청 (관리자)
type CreateLicenseRequest struct {
	Buyer      string `json:"buyer"`
	MaxDevices int    `json:"max_devices"`
}

// UpdateLicenseStatusRequest 라이선스 상태 변경 요청 (관리자)
type UpdateLicenseStatusRequest struct {
	Status string `json:"status"`
}

// LicenseDetail 라이선스 상세 응답 (디바이스 목록 포함)
type LicenseDetail struct {
	License
	ActiveDevices int      `json:"active_devices"`
	Devices       []Device `json:"devices"`
}
