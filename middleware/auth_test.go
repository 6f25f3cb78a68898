package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"visionproxy/config"
	"visionproxy/database"
	"visionproxy/services"
	"visionproxy/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	codec    *utils.TokenCodec
	licenses *services.LicenseService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.CreateSchema(db, "sqlite"))

	codec := utils.NewTokenCodec("test-secret", time.Hour)
	return &authFixture{
		codec:    codec,
		licenses: services.NewLicenseService(services.NewSQLExecutor(db), codec),
	}
}

func (f *authFixture) activate(t *testing.T, maxDevices int, deviceID string) (licenseKey, token string) {
	t.Helper()
	license, err := f.licenses.CreateLicense(context.Background(), "buyer", maxDevices)
	require.NoError(t, err)
	token, _, err = f.licenses.Activate(context.Background(), license.LicenseKey, deviceID)
	require.NoError(t, err)
	return license.LicenseKey, token
}

func serveDeviceAuth(f *authFixture, next http.HandlerFunc, authHeader string) *httptest.ResponseRecorder {
	handler := DeviceAuth(f.codec, f.licenses)(next)
	req := httptest.NewRequest(http.MethodPost, "/api/ask", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestDeviceAuthMissingHeader(t *testing.T) {
	f := newAuthFixture(t)

	rec := serveDeviceAuth(f, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run")
	}, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authorization header required")
}

func TestDeviceAuthMalformedHeader(t *testing.T) {
	f := newAuthFixture(t)

	for _, header := range []string{"Bearer", "Basic abc", "Bearer a b"} {
		rec := serveDeviceAuth(f, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("next handler should not run")
		}, header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header: %q", header)
	}
}

func TestDeviceAuthInvalidToken(t *testing.T) {
	f := newAuthFixture(t)

	rec := serveDeviceAuth(f, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run")
	}, "Bearer not-a-token")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or expired device token")
}

func TestDeviceAuthForgedToken(t *testing.T) {
	f := newAuthFixture(t)

	// 다른 비밀키로 서명된 토큰
	forged, _, err := utils.NewTokenCodec("other-secret", time.Hour).Issue("KEY", "device-1")
	require.NoError(t, err)

	rec := serveDeviceAuth(f, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run")
	}, "Bearer "+forged)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeviceAuthUnknownDevice(t *testing.T) {
	f := newAuthFixture(t)

	// 서명은 유효하지만 저장소에 대응하는 행이 없는 토큰
	orphan, _, err := f.codec.Issue("NO-SUCH-KEY", "device-1")
	require.NoError(t, err)

	rec := serveDeviceAuth(f, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run")
	}, "Bearer "+orphan)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or expired device token")
}

func TestDeviceAuthRevokedDevice(t *testing.T) {
	f := newAuthFixture(t)
	licenseKey, token := f.activate(t, 1, "device-1")

	device, err := f.licenses.FindDevice(context.Background(), licenseKey, "device-1", token)
	require.NoError(t, err)
	require.NoError(t, f.licenses.RevokeDevice(context.Background(), device.ID))

	rec := serveDeviceAuth(f, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run")
	}, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or expired device token")
}

func TestDeviceAuthRotatedTokenRejected(t *testing.T) {
	f := newAuthFixture(t)
	licenseKey, oldToken := f.activate(t, 1, "device-1")

	// 재활성화로 토큰이 교체되면 이전 토큰은 거부됩니다.
	_, _, err := f.licenses.Activate(context.Background(), licenseKey, "device-1")
	require.NoError(t, err)

	rec := serveDeviceAuth(f, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run")
	}, "Bearer "+oldToken)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeviceAuthSuccessSetsContext(t *testing.T) {
	f := newAuthFixture(t)
	licenseKey, token := f.activate(t, 1, "device-1")

	called := false
	rec := serveDeviceAuth(f, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, licenseKey, r.Context().Value("license_key"))
		assert.Equal(t, "device-1", r.Context().Value("device_id"))
		assert.NotEmpty(t, r.Context().Value("device_row_id"))
		w.WriteHeader(http.StatusOK)
	}, "Bearer "+token)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)

	// 인가 성공 시 last_seen이 갱신됩니다.
	device, err := f.licenses.FindDevice(context.Background(), licenseKey, "device-1", token)
	require.NoError(t, err)
	assert.NotEmpty(t, device.LastSeen)
}

func TestAdminAuth(t *testing.T) {
	cfg := &config.Config{AdminSecret: "super-secret"}

	handler := AdminAuth(cfg)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/licenses", nil)
		req.Header.Set("X-Admin-Secret", "super-secret")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/licenses", nil)
		req.Header.Set("X-Admin-Secret", "wrong")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/licenses", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAdminAuthHashedSecret(t *testing.T) {
	hash, err := utils.HashAdminSecret("super-secret")
	require.NoError(t, err)

	cfg := &config.Config{AdminSecret: hash, AdminSecretHashed: true}
	handler := AdminAuth(cfg)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/licenses", nil)
	req.Header.Set("X-Admin-Secret", "super-secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
