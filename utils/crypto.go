package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// GenerateLicenseKey 라이선스 키 생성 (형식: XXXX-XXXX-XXXX-XXXX-XXXX)
// 80비트 엔트로피로 충돌 확률은 무시 가능하지만,
// 저장 시 UNIQUE 제약 위반은 호출자가 재시도로 처리합니다.
func GenerateLicenseKey() (string, error) {
	bytes := make([]byte, 10)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	key := strings.ToUpper(hex.EncodeToString(bytes))

	// 4자리씩 끊어서 대시로 연결
	groups := make([]string, 0, 5)
	for i := 0; i < len(key); i += 4 {
		groups = append(groups, key[i:i+4])
	}

	return strings.Join(groups, "-"), nil
}

// GenerateID 접두사가 붙는 행 ID 생성
func GenerateID(prefix string) (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	id := hex.EncodeToString(bytes)
	if prefix != "" {
		return fmt.Sprintf("%s-%s", prefix, id[:16]), nil
	}
	return id[:16], nil
}

// CheckAdminSecret 관리자 비밀 검증
// hashed가 true이면 저장값을 bcrypt 해시로 간주하고,
// 아니면 상수 시간 비교로 평문을 대조합니다.
func CheckAdminSecret(stored, presented string, hashed bool) bool {
	if presented == "" {
		return false
	}
	if hashed {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(presented)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

// HashAdminSecret 관리자 비밀 해시 생성 (운영 준비 도구용)
func HashAdminSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
