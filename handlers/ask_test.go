package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"visionproxy/database"
	"visionproxy/models"
	"visionproxy/services"
	"visionproxy/upstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompletionClient 업스트림을 대신하는 테스트 더블
type fakeCompletionClient struct {
	answer     string
	usage      string
	err        error
	lastPrompt string
	lastImage  string
	calls      int
}

func (f *fakeCompletionClient) Complete(ctx context.Context, prompt, imageBase64 string) (*upstream.Completion, error) {
	f.calls++
	f.lastPrompt = prompt
	f.lastImage = imageBase64
	if f.err != nil {
		return nil, f.err
	}
	return &upstream.Completion{Answer: f.answer, Usage: f.usage}, nil
}

func newTestUsageService(t *testing.T) *services.UsageLogService {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.CreateSchema(db, "sqlite"))

	return services.NewUsageLogService(services.NewSQLExecutor(db))
}

func postAsk(h *AskHandler, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/ask", bytes.NewReader(payload))

	// 게이트 미들웨어가 넣어주는 식별자
	ctx := context.WithValue(req.Context(), "license_key", "KEY-1")
	ctx = context.WithValue(ctx, "device_id", "device-1")

	rec := httptest.NewRecorder()
	h.Ask(rec, req.WithContext(ctx))
	return rec
}

func TestAskHandlerSuccess(t *testing.T) {
	fake := &fakeCompletionClient{answer: "42", usage: `{"total_tokens":12}`}
	usage := newTestUsageService(t)
	h := NewAskHandler(fake, usage, "default prompt")

	rec := postAsk(h, models.AskRequest{Image: "aW1hZ2U=", Prompt: "custom prompt"})

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status string             `json:"status"`
		Data   models.AskResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "42", resp.Data.Answer)

	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, "custom prompt", fake.lastPrompt)
	assert.Equal(t, "aW1hZ2U=", fake.lastImage)

	// 사용 로그가 성공 상태로 남습니다.
	logs, total, err := usage.List(context.Background(), models.UsageLogFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "KEY-1", logs[0].LicenseKey)
	assert.Equal(t, "device-1", logs[0].DeviceID)
	assert.Equal(t, models.UsageStatusOK, logs[0].Status)
	assert.Equal(t, "42", logs[0].Response)
	assert.Equal(t, `{"total_tokens":12}`, logs[0].TokenUsage)
}

func TestAskHandlerDefaultPrompt(t *testing.T) {
	fake := &fakeCompletionClient{answer: "ok"}
	h := NewAskHandler(fake, newTestUsageService(t), "default prompt")

	rec := postAsk(h, models.AskRequest{Image: "aW1hZ2U="})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "default prompt", fake.lastPrompt)
}

func TestAskHandlerMissingImage(t *testing.T) {
	fake := &fakeCompletionClient{answer: "ok"}
	h := NewAskHandler(fake, newTestUsageService(t), "default prompt")

	rec := postAsk(h, models.AskRequest{Prompt: "prompt only"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "image is required")
	assert.Zero(t, fake.calls)
}

func TestAskHandlerInvalidBody(t *testing.T) {
	h := NewAskHandler(&fakeCompletionClient{}, newTestUsageService(t), "default prompt")

	req := httptest.NewRequest(http.MethodPost, "/api/ask", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	h.Ask(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskHandlerUpstreamFailure(t *testing.T) {
	fake := &fakeCompletionClient{err: fmt.Errorf("%w: status 500", upstream.ErrUpstream)}
	usage := newTestUsageService(t)
	h := NewAskHandler(fake, usage, "default prompt")

	rec := postAsk(h, models.AskRequest{Image: "aW1hZ2U="})

	// 업스트림 실패는 인가 실패와 절대 섞이지 않습니다.
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Upstream completion failed")

	logs, _, err := usage.List(context.Background(), models.UsageLogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.UsageStatusUpstreamError, logs[0].Status)
}

func TestAskHandlerUnexpectedFailure(t *testing.T) {
	fake := &fakeCompletionClient{err: errors.New("boom")}
	h := NewAskHandler(fake, newTestUsageService(t), "default prompt")

	rec := postAsk(h, models.AskRequest{Image: "aW1hZ2U="})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
