package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config 서버 전역 설정
// 프로세스 시작 시 한 번 로드되어 필요한 컴포넌트에 참조로 전달됩니다.
// 전역 변수로 노출하지 않습니다.
type Config struct {
	Port string `envconfig:"PORT" default:"8080"`

	// 데이터베이스: "sqlite" 또는 "mysql"
	DBDriver string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBDSN    string `envconfig:"DB_DSN" default:"./proxy.db"`

	// 디바이스 토큰 서명 비밀키. 유출 시 발급된 모든 토큰이 무효화 대상이 됩니다.
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
	// 디바이스 토큰 유효기간. 재활성화는 사용자에게 불편하므로 기본 1년.
	TokenTTL time.Duration `envconfig:"TOKEN_TTL" default:"8760h"`

	// 관리자 API 공유 비밀. X-Admin-Secret 헤더로 전달됩니다.
	AdminSecret string `envconfig:"ADMIN_SECRET" required:"true"`
	// true이면 ADMIN_SECRET을 bcrypt 해시로 취급합니다.
	AdminSecretHashed bool `envconfig:"ADMIN_SECRET_HASHED" default:"false"`

	// 업스트림 완성 API (OpenAI 호환)
	OpenAIAPIKey    string        `envconfig:"OPENAI_API_KEY" required:"true"`
	OpenAIBaseURL   string        `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	OpenAIModel     string        `envconfig:"OPENAI_MODEL" default:"gpt-4o"`
	UpstreamTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"60s"`
	MaxTokens       int           `envconfig:"UPSTREAM_MAX_TOKENS" default:"300"`
	DefaultPrompt   string        `envconfig:"DEFAULT_PROMPT" default:"Answer only with the answer to the question in the image. Do not explain."`

	// 로깅
	LogDir   string `envconfig:"LOG_DIR" default:"./logs"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// 사용 로그 보존 기간(일). 스케줄러가 초과분을 정리합니다.
	UsageRetentionDays int `envconfig:"USAGE_RETENTION_DAYS" default:"90"`
}

// Load 환경변수에서 설정을 읽습니다.
// 필수 값(JWT_SECRET, ADMIN_SECRET, OPENAI_API_KEY)이 없으면 에러를 반환하며,
// 호출자는 기동을 중단해야 합니다.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}

	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must not be blank")
	}
	if strings.TrimSpace(c.AdminSecret) == "" {
		return fmt.Errorf("ADMIN_SECRET must not be blank")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("UPSTREAM_MAX_TOKENS must be positive")
	}
	if c.UsageRetentionDays < 1 {
		return fmt.Errorf("USAGE_RETENTION_DAYS must be at least 1")
	}
	return nil
}

// Addr HTTP 리스닝 주소
func (c *Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
