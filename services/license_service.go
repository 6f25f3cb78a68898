package services

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"visionproxy/logger"
	"visionproxy/models"
	"visionproxy/utils"
)

const createKeyMaxAttempts = 5

// LicenseService 라이선스 저장소와 활성화 프로토콜
// 쿼터 검사 후 삽입 구간은 라이선스 키 단위 락과 단일 트랜잭션으로
// 직렬화됩니다. 동시 활성화가 max_devices를 초과하지 않는 것이
// 이 서비스의 핵심 불변식입니다.
type LicenseService struct {
	db    SQLExecutor
	codec *utils.TokenCodec

	// license_key -> *sync.Mutex. 활성화 경로에서만 사용합니다.
	activationLocks sync.Map
}

// NewLicenseService 라이선스 서비스 생성
func NewLicenseService(db SQLExecutor, codec *utils.TokenCodec) *LicenseService {
	return &LicenseService{db: db, codec: codec}
}

// CreateLicense 라이선스 생성
// 고엔트로피 키를 생성하며, UNIQUE 제약 위반 시 새 키로 재시도합니다.
func (s *LicenseService) CreateLicense(ctx context.Context, buyer string, maxDevices int) (*models.License, error) {
	if maxDevices < 1 {
		maxDevices = 1
	}

	now := utils.FormatDateTimeForDB(utils.NowUTC())

	var lastErr error
	for attempt := 0; attempt < createKeyMaxAttempts; attempt++ {
		licenseKey, err := utils.GenerateLicenseKey()
		if err != nil {
			return nil, err
		}

		id, err := utils.GenerateID("lic")
		if err != nil {
			return nil, err
		}

		query := `INSERT INTO licenses (id, license_key, buyer, max_devices, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`

		_, err = s.db.ExecContext(ctx, query, id, licenseKey, buyer, maxDevices, models.LicenseStatusActive, now, now)
		if err != nil {
			if isUniqueViolation(err) {
				logger.Warn("License key collision, retrying (attempt %d)", attempt+1)
				lastErr = err
				continue
			}
			return nil, err
		}

		return &models.License{
			ID:         id,
			LicenseKey: licenseKey,
			Buyer:      buyer,
			MaxDevices: maxDevices,
			Status:     models.LicenseStatusActive,
			CreatedAt:  now,
			UpdatedAt:  now,
		}, nil
	}

	return nil, lastErr
}

// GetLicense 라이선스 키로 조회
func (s *LicenseService) GetLicense(ctx context.Context, licenseKey string) (*models.License, error) {
	return scanLicense(s.db.QueryRowContext(ctx,
		`SELECT id, license_key, buyer, max_devices, status, created_at, updated_at
		 FROM licenses WHERE license_key = ?`, licenseKey))
}

// ListLicenses 라이선스 목록 조회 (페이징)
func (s *LicenseService) ListLicenses(ctx context.Context, page, pageSize int) ([]models.License, int, error) {
	var totalCount int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM licenses").Scan(&totalCount); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, license_key, buyer, max_devices, status, created_at, updated_at
		 FROM licenses ORDER BY created_at DESC LIMIT ? OFFSET ?`, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	licenses := []models.License{}
	for rows.Next() {
		var l models.License
		if err := rows.Scan(&l.ID, &l.LicenseKey, &l.Buyer, &l.MaxDevices, &l.Status, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, 0, err
		}
		licenses = append(licenses, l)
	}

	return licenses, totalCount, rows.Err()
}

// GetLicenseDetail 라이선스 상세 조회 (디바이스 목록 포함)
func (s *LicenseService) GetLicenseDetail(ctx context.Context, licenseKey string) (*models.LicenseDetail, error) {
	license, err := s.GetLicense(ctx, licenseKey)
	if err != nil {
		return nil, err
	}

	devices, err := s.ListDevices(ctx, licenseKey)
	if err != nil {
		return nil, err
	}

	active := 0
	for _, d := range devices {
		if !d.Revoked {
			active++
		}
	}

	return &models.LicenseDetail{
		License:       *license,
		ActiveDevices: active,
		Devices:       devices,
	}, nil
}

// SetLicenseStatus 라이선스 상태 변경 (관리자)
// active <-> suspended 전환만 허용합니다. 삭제는 없습니다.
func (s *LicenseService) SetLicenseStatus(ctx context.Context, licenseKey, status string) error {
	if status != models.LicenseStatusActive && status != models.LicenseStatusSuspended {
		return ErrInvalidLicenseStatus
	}

	now := utils.FormatDateTimeForDB(utils.NowUTC())
	result, err := s.db.ExecContext(ctx,
		"UPDATE licenses SET status = ?, updated_at = ? WHERE license_key = ?",
		status, now, licenseKey)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		// 이미 같은 상태이거나 키가 없는 경우. 존재 여부로 구분합니다.
		if _, err := s.GetLicense(ctx, licenseKey); err != nil {
			return err
		}
	}
	return nil
}

// CountActiveDevices 무효화되지 않은 디바이스 수
func (s *LicenseService) CountActiveDevices(ctx context.Context, licenseKey string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM devices WHERE license_key = ? AND revoked = 0", licenseKey).Scan(&count)
	return count, err
}

// ListDevices 라이선스에 묶인 디바이스 목록 (무효화 포함)
func (s *LicenseService) ListDevices(ctx context.Context, licenseKey string) ([]models.Device, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, license_key, device_id, token, revoked, activated_at, last_seen
		 FROM devices WHERE license_key = ? ORDER BY activated_at DESC`, licenseKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := []models.Device{}
	for rows.Next() {
		var (
			d       models.Device
			revoked int
		)
		if err := rows.Scan(&d.ID, &d.LicenseKey, &d.DeviceID, &d.Token, &revoked, &d.ActivatedAt, &d.LastSeen); err != nil {
			return nil, err
		}
		d.Revoked = revoked != 0
		devices = append(devices, d)
	}

	return devices, rows.Err()
}

// FindDevice 게이트용 디바이스 조회
// (license_key, device_id, token) 세 값이 모두 일치하는 살아있는 행이 있어야 합니다.
// 토큰까지 대조하는 이유: 서명은 유효하지만 이후 교체/무효화된 토큰을 차단하기 위함입니다.
// 행이 없거나 무효화된 경우 모두 ErrDeviceNotAuthorized로 수렴합니다.
func (s *LicenseService) FindDevice(ctx context.Context, licenseKey, deviceID, token string) (*models.Device, error) {
	var (
		d       models.Device
		revoked int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, license_key, device_id, token, revoked, activated_at, last_seen
		 FROM devices WHERE license_key = ? AND device_id = ? AND token = ?`,
		licenseKey, deviceID, token).Scan(
		&d.ID, &d.LicenseKey, &d.DeviceID, &d.Token, &revoked, &d.ActivatedAt, &d.LastSeen)

	if err == sql.ErrNoRows {
		return nil, ErrDeviceNotAuthorized
	}
	if err != nil {
		return nil, err
	}

	if revoked != 0 {
		return nil, ErrDeviceNotAuthorized
	}

	d.Revoked = false
	return &d, nil
}

// TouchLastSeen 마지막 확인 시각 갱신
// 인가 판단과 무관한 관측용 갱신이므로 호출자는 실패를 무시할 수 있습니다.
func (s *LicenseService) TouchLastSeen(ctx context.Context, deviceRowID string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE devices SET last_seen = ? WHERE id = ?",
		utils.FormatDateTimeForDB(ts), deviceRowID)
	return err
}

// RevokeDevice 디바이스 무효화 (관리자)
// 멱등합니다. 무효화는 디바이스에 대해 종결 상태입니다.
func (s *LicenseService) RevokeDevice(ctx context.Context, deviceRowID string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM devices WHERE id = ?", deviceRowID).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrDeviceNotFound
	}
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, "UPDATE devices SET revoked = 1 WHERE id = ?", deviceRowID)
	return err
}

// Activate 활성화 프로토콜
//  1. 라이선스 조회 (없으면 ErrLicenseNotFound)
//  2. 상태 확인 (active가 아니면 ErrLicenseInactive)
//  3. 동일 (license_key, device_id)의 살아있는 행이 있으면 토큰을 교체하고
//     쿼터를 소모하지 않습니다. 기존 토큰은 저장값 불일치로 즉시 무효가 됩니다.
//  4. 없으면 쿼터 확인 후 (초과 시 ErrDeviceQuotaExceeded) 새 행 삽입
//
// 3~4의 확인-후-삽입은 라이선스 키 단위 락 + 단일 트랜잭션 안에서 수행되어
// 동시 활성화가 쿼터를 초과할 수 없습니다.
func (s *LicenseService) Activate(ctx context.Context, licenseKey, deviceID string) (string, time.Time, error) {
	unlock := s.lockLicense(licenseKey)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", time.Time{}, err
	}
	defer tx.Rollback()

	license, err := scanLicense(tx.QueryRowContext(ctx,
		`SELECT id, license_key, buyer, max_devices, status, created_at, updated_at
		 FROM licenses WHERE license_key = ?`, licenseKey))
	if err != nil {
		return "", time.Time{}, err
	}

	if !license.IsActive() {
		return "", time.Time{}, ErrLicenseInactive
	}

	now := utils.NowUTC()
	nowStr := utils.FormatDateTimeForDB(now)

	// 동일 디바이스 재활성화는 새 행을 만들지 않고 토큰만 교체합니다.
	var existingID string
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM devices WHERE license_key = ? AND device_id = ? AND revoked = 0",
		licenseKey, deviceID).Scan(&existingID)

	if err != nil && err != sql.ErrNoRows {
		return "", time.Time{}, err
	}

	token, expiresAt, issueErr := s.codec.Issue(licenseKey, deviceID)
	if issueErr != nil {
		return "", time.Time{}, issueErr
	}

	if err == nil {
		_, err = tx.ExecContext(ctx,
			"UPDATE devices SET token = ?, activated_at = ?, last_seen = ? WHERE id = ?",
			token, nowStr, nowStr, existingID)
		if err != nil {
			return "", time.Time{}, err
		}

		if err := tx.Commit(); err != nil {
			return "", time.Time{}, err
		}

		logger.WithFields(map[string]interface{}{
			"license_key": licenseKey,
			"device_row":  existingID,
		}).Info("Device re-activated, token rotated")
		return token, expiresAt, nil
	}

	var activeCount int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM devices WHERE license_key = ? AND revoked = 0", licenseKey).Scan(&activeCount); err != nil {
		return "", time.Time{}, err
	}

	if activeCount >= license.MaxDevices {
		return "", time.Time{}, ErrDeviceQuotaExceeded
	}

	rowID, err := utils.GenerateID("dev")
	if err != nil {
		return "", time.Time{}, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO devices (id, license_key, device_id, token, revoked, activated_at, last_seen)
		 VALUES (?, ?, ?, ?, 0, ?, ?)`,
		rowID, licenseKey, deviceID, token, nowStr, nowStr)
	if err != nil {
		return "", time.Time{}, err
	}

	if err := tx.Commit(); err != nil {
		return "", time.Time{}, err
	}

	logger.WithFields(map[string]interface{}{
		"license_key": licenseKey,
		"device_row":  rowID,
		"buyer":       license.Buyer,
	}).Info("Device activated")
	return token, expiresAt, nil
}

// lockLicense 라이선스 키 단위 직렬화 락
func (s *LicenseService) lockLicense(licenseKey string) func() {
	v, _ := s.activationLocks.LoadOrStore(licenseKey, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func scanLicense(row *sql.Row) (*models.License, error) {
	var l models.License
	err := row.Scan(&l.ID, &l.LicenseKey, &l.Buyer, &l.MaxDevices, &l.Status, &l.CreatedAt, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrLicenseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// isUniqueViolation 드라이버별 UNIQUE 제약 위반 판별
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate entry")
}
