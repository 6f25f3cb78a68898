package scheduler

import (
	"context"
	"time"

	"visionproxy/logger"
	"visionproxy/services"
	"visionproxy/utils"
)

// StartScheduler 사용 로그 보존 기간 정리 스케줄러 시작
// 서버 시작 시 한 번 실행하고 이후 1시간마다 반복합니다.
// ctx가 취소되면 반복을 멈춥니다.
func StartScheduler(ctx context.Context, usage *services.UsageLogService, retentionDays int) {
	logger.Info("Scheduler started (usage log retention: %d days)", retentionDays)

	CleanupUsageLogs(usage, retentionDays)

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Info("Scheduler stopped")
				return
			case <-ticker.C:
				logger.Info("Scheduler tick: Running CleanupUsageLogs")
				CleanupUsageLogs(usage, retentionDays)
			}
		}
	}()
}

// CleanupUsageLogs 보존 기간을 초과한 사용 로그를 삭제합니다.
func CleanupUsageLogs(usage *services.UsageLogService, retentionDays int) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := utils.FormatDateTimeForDB(utils.NowUTC().AddDate(0, 0, -retentionDays))

	deleted, err := usage.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Error("Failed to clean up usage logs")
		return
	}

	if deleted > 0 {
		logger.WithFields(map[string]interface{}{
			"deleted": deleted,
			"cutoff":  cutoff,
		}).Info("Old usage logs deleted")
	}
}
