package utils

import (
	"fmt"
	"time"
)

const dbDateTimeLayout = "2006-01-02 15:04:05"

// NowUTC 현재 시각 (UTC)
// 저장되는 모든 타임스탬프는 UTC 기준입니다.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// FormatDateTimeForDB DATETIME 컬럼용 포맷
func FormatDateTimeForDB(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dbDateTimeLayout)
}

// ParseDBDate 데이터베이스에서 읽은 날짜 문자열 파싱
func ParseDBDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time string")
	}

	if ts, err := time.ParseInLocation(dbDateTimeLayout, value, time.UTC); err == nil {
		return ts, nil
	}

	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("unsupported db time format: %s", value)
}
