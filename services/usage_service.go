package services

import (
	"context"

	"visionproxy/models"
	"visionproxy/utils"
)

// UsageLogService 프록시 호출 사용 로그
// 업스트림 호출 전 pending으로 기록하고 결과에 따라 갱신합니다.
// 기록 실패는 요청 처리를 막지 않습니다.
type UsageLogService struct {
	db SQLExecutor
}

// NewUsageLogService 사용 로그 서비스 생성
func NewUsageLogService(db SQLExecutor) *UsageLogService {
	return &UsageLogService{db: db}
}

// Record 호출 시작 기록. 생성된 로그 ID를 반환합니다.
func (s *UsageLogService) Record(ctx context.Context, licenseKey, deviceID, prompt string) (int64, error) {
	now := utils.FormatDateTimeForDB(utils.NowUTC())
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_logs (license_key, device_id, prompt, status, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		licenseKey, deviceID, prompt, models.UsageStatusPending, now)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// MarkResult 호출 결과 기록
// tokenUsage는 업스트림이 보고한 사용량 JSON이며 실패 시 빈 문자열입니다.
func (s *UsageLogService) MarkResult(ctx context.Context, logID int64, status, response, tokenUsage string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE usage_logs SET status = ?, response = ?, token_usage = ? WHERE id = ?",
		status, response, tokenUsage, logID)
	return err
}

// List 사용 로그 조회 (관리자, 페이징)
func (s *UsageLogService) List(ctx context.Context, filter models.UsageLogFilter) ([]models.UsageLog, int, error) {
	where := " WHERE 1=1"
	args := []any{}

	if filter.LicenseKey != "" {
		where += " AND license_key = ?"
		args = append(args, filter.LicenseKey)
	}
	if filter.DeviceID != "" {
		where += " AND device_id = ?"
		args = append(args, filter.DeviceID)
	}
	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, filter.Status)
	}

	var totalCount int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM usage_logs"+where, args...).Scan(&totalCount); err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := `SELECT id, license_key, device_id, prompt, COALESCE(response, ''), COALESCE(token_usage, ''), status, created_at
		FROM usage_logs` + where + " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := []models.UsageLog{}
	for rows.Next() {
		var l models.UsageLog
		if err := rows.Scan(&l.ID, &l.LicenseKey, &l.DeviceID, &l.Prompt, &l.Response, &l.TokenUsage, &l.Status, &l.CreatedAt); err != nil {
			return nil, 0, err
		}
		logs = append(logs, l)
	}

	return logs, totalCount, rows.Err()
}

// DeleteOlderThan 보존 기간을 초과한 로그 삭제. 삭제된 행 수를 반환합니다.
func (s *UsageLogService) DeleteOlderThan(ctx context.Context, cutoff string) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM usage_logs WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
