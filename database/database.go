package database

import (
	"database/sql"
	"fmt"
	"strings"

	"visionproxy/logger"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// DB 전역 데이터베이스 핸들
var DB *sql.DB

var dbDriver string

// Initialize 데이터베이스 초기화
// driver: "sqlite" 또는 "mysql"
// dsn: SQLite 파일 경로 또는 MySQL DSN
func Initialize(driver, dsn string) error {
	if driver == "" {
		driver = "sqlite"
	}
	if dsn == "" && driver == "sqlite" {
		dsn = "./proxy.db"
	}

	dbDriver = driver

	var err error
	DB, err = sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if driver == "sqlite" {
		// 외래키는 SQLite 기본값이 off라 강제로 켭니다.
		if _, err := DB.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		// 동시 쓰기 시 즉시 실패하지 않도록 대기시간 부여
		if _, err := DB.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			return fmt.Errorf("failed to set busy timeout: %w", err)
		}
	}

	if err := CreateSchema(DB, driver); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info("Database initialized successfully (driver: %s)", driver)
	return nil
}

// CreateSchema 테이블과 인덱스를 생성합니다.
// 테스트에서 임시 데이터베이스에 대해 직접 호출할 수 있도록 분리되어 있습니다.
func CreateSchema(db *sql.DB, driver string) error {
	autoIncrement := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if driver == "mysql" {
		autoIncrement = "BIGINT AUTO_INCREMENT PRIMARY KEY"
	}

	statements := []string{
		// 라이선스 테이블: 하드 삭제 없음, status로만 관리
		`CREATE TABLE IF NOT EXISTS licenses (
			id VARCHAR(50) PRIMARY KEY,
			license_key VARCHAR(50) UNIQUE NOT NULL,
			buyer VARCHAR(255) NOT NULL,
			max_devices INT NOT NULL DEFAULT 1,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			created_at VARCHAR(50) NOT NULL DEFAULT '',
			updated_at VARCHAR(50) NOT NULL DEFAULT ''
		)`,

		// 디바이스 테이블: revoked 플래그로만 무효화, 행 삭제 없음
		`CREATE TABLE IF NOT EXISTS devices (
			id VARCHAR(50) PRIMARY KEY,
			license_key VARCHAR(50) NOT NULL,
			device_id VARCHAR(255) NOT NULL,
			token TEXT NOT NULL,
			revoked INT NOT NULL DEFAULT 0,
			activated_at VARCHAR(50) NOT NULL DEFAULT '',
			last_seen VARCHAR(50) NOT NULL DEFAULT '',
			FOREIGN KEY (license_key) REFERENCES licenses(license_key)
		)`,

		// 사용 로그 테이블: 프록시 호출 기록 (관측용)
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS usage_logs (
			id %s,
			license_key VARCHAR(50) NOT NULL,
			device_id VARCHAR(255) NOT NULL,
			prompt TEXT,
			response TEXT,
			token_usage TEXT,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			created_at VARCHAR(50) NOT NULL DEFAULT ''
		)`, autoIncrement),

		`CREATE INDEX IF NOT EXISTS idx_licenses_key ON licenses(license_key)`,
		`CREATE INDEX IF NOT EXISTS idx_licenses_status ON licenses(status)`,
		`CREATE INDEX IF NOT EXISTS idx_devices_license ON devices(license_key)`,
		`CREATE INDEX IF NOT EXISTS idx_devices_lookup ON devices(license_key, device_id)`,
		`CREATE INDEX IF NOT EXISTS idx_usage_license ON usage_logs(license_key)`,
		`CREATE INDEX IF NOT EXISTS idx_usage_created ON usage_logs(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			// MySQL은 CREATE INDEX IF NOT EXISTS를 지원하지 않는 버전이 있어
			// 중복 인덱스 오류는 무시합니다.
			if strings.Contains(err.Error(), "Duplicate key name") {
				continue
			}
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// Driver 현재 드라이버 이름
func Driver() string {
	return dbDriver
}

// Close 데이터베이스 연결 종료
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
