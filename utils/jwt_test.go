package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCodecRoundTrip(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour)

	token, expiresAt, err := codec.Issue("AAAA-BBBB-CCCC-DDDD-EEEE", "device-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "AAAA-BBBB-CCCC-DDDD-EEEE", claims.LicenseKey)
	assert.Equal(t, "device-1", claims.DeviceID)
}

func TestTokenCodecIssueUniquePerCall(t *testing.T) {
	// 시계를 고정해 같은 초에 두 번 발급해도 토큰이 달라야 합니다.
	// 토큰 교체로 구 토큰을 무효화하는 저장값 대조가 이 성질에 의존합니다.
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	codec := NewTokenCodec("test-secret", time.Hour).WithClock(func() time.Time { return fixed })

	first, _, err := codec.Issue("KEY", "device-1")
	require.NoError(t, err)
	second, _, err := codec.Issue("KEY", "device-1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	for _, token := range []string{first, second} {
		claims, err := codec.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "KEY", claims.LicenseKey)
		assert.NotEmpty(t, claims.ID)
	}
}

func TestTokenCodecRejectsTamperedToken(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour)

	token, _, err := codec.Issue("KEY", "device-1")
	require.NoError(t, err)

	// 페이로드 한 글자 변조
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, err = codec.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenCodecRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenCodec("secret-a", time.Hour)
	verifier := NewTokenCodec("secret-b", time.Hour)

	token, _, err := issuer.Issue("KEY", "device-1")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenCodecRejectsGarbage(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour)

	for _, input := range []string{"", "garbage", "a.b.c", "Bearer something"} {
		_, err := codec.Verify(input)
		assert.ErrorIs(t, err, ErrInvalidToken, "input: %q", input)
	}
}

func TestTokenCodecExpiryBoundary(t *testing.T) {
	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ttl := time.Hour

	codec := NewTokenCodec("test-secret", ttl).WithClock(func() time.Time { return issuedAt })

	token, expiresAt, err := codec.Issue("KEY", "device-1")
	require.NoError(t, err)
	assert.Equal(t, issuedAt.Add(ttl), expiresAt)

	// 만료 1초 전: 유효
	codec.WithClock(func() time.Time { return expiresAt.Add(-time.Second) })
	_, err = codec.Verify(token)
	assert.NoError(t, err)

	// 만료 시각 정각: 무효
	codec.WithClock(func() time.Time { return expiresAt })
	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenCodecRejectsMissingClaims(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour)

	token, _, err := codec.Issue("", "")
	require.NoError(t, err)

	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
