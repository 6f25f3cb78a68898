package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken 토큰 검증 실패
// 파싱/서명/만료 등 모든 실패 사유를 하나로 수렴합니다.
// 실패 사유를 구분해서 반환하면 토큰 열거 공격에 힌트를 주게 되므로
// 호출자에게는 단일 에러만 노출합니다.
var ErrInvalidToken = errors.New("invalid device token")

// DeviceClaims 디바이스 토큰 클레임
type DeviceClaims struct {
	LicenseKey string `json:"license_key"`
	DeviceID   string `json:"device_id"`
	jwt.RegisteredClaims
}

// TokenCodec 디바이스 토큰 발급/검증기
// 서명 비밀키는 설정에서 주입받으며 전역 상태를 갖지 않습니다.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec 토큰 코덱 생성
func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock 테스트용 시계 주입
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	c.now = now
	return c
}

// Issue 디바이스 토큰 발급
// (license_key, device_id, jti, iat, exp)를 담은 HS256 서명 토큰을 반환합니다.
// iat는 초 단위라 같은 초에 재발급하면 동일한 토큰이 나올 수 있으므로,
// jti를 부여해 매 발급이 서로 다른 토큰이 되도록 합니다.
// 토큰 교체가 구 토큰을 무효화하려면 발급마다 값이 달라야 합니다.
func (c *TokenCodec) Issue(licenseKey, deviceID string) (string, time.Time, error) {
	issuedAt := c.now()
	expiresAt := issuedAt.Add(c.ttl)

	claims := &DeviceClaims{
		LicenseKey: licenseKey,
		DeviceID:   deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// Verify 디바이스 토큰 검증
// 서명과 만료를 확인하고 클레임을 반환합니다.
// 실패 시 항상 ErrInvalidToken을 반환합니다.
func (c *TokenCodec) Verify(tokenString string) (*DeviceClaims, error) {
	claims := &DeviceClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now))

	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.LicenseKey == "" || claims.DeviceID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
