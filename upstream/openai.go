package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"visionproxy/config"
	"visionproxy/logger"
)

// ErrUpstream 업스트림 완성 API 실패
// 전송 실패, 비정상 상태 코드, 응답 형식 오류를 모두 하나로 수렴합니다.
// 인가 실패와 절대 섞이지 않아야 하는 부류입니다.
var ErrUpstream = errors.New("upstream completion failed")

// Completion 업스트림 완성 결과
// Usage는 업스트림이 보고한 토큰 사용량 JSON 원문입니다. 없으면 빈 문자열.
type Completion struct {
	Answer string
	Usage  string
}

// CompletionClient 완성 API 협력자 인터페이스
// 프롬프트와 base64 이미지를 보내고 답변과 사용량을 받습니다.
type CompletionClient interface {
	Complete(ctx context.Context, prompt, imageBase64 string) (*Completion, error)
}

// OpenAIClient OpenAI 호환 chat-completions 클라이언트
type OpenAIClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
}

// NewOpenAIClient 업스트림 클라이언트 생성
func NewOpenAIClient(cfg *config.Config) *OpenAIClient {
	return &OpenAIClient{
		httpClient: &http.Client{Timeout: cfg.UpstreamTimeout},
		baseURL:    cfg.OpenAIBaseURL,
		apiKey:     cfg.OpenAIAPIKey,
		model:      cfg.OpenAIModel,
		maxTokens:  cfg.MaxTokens,
	}
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage json.RawMessage `json:"usage"`
}

// Complete 이미지와 프롬프트를 chat-completions로 보내고 답변과 사용량을 반환합니다.
// 실패 시 ErrUpstream을 감싼 에러를 반환합니다.
func (c *OpenAIClient) Complete(ctx context.Context, prompt, imageBase64 string) (*Completion, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: prompt},
					{Type: "image_url", ImageURL: &imageURL{
						URL: fmt.Sprintf("data:image/png;base64,%s", imageBase64),
					}},
				},
			},
		},
		MaxTokens: c.maxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// 응답 본문 일부만 로그에 남기고 호출자에게는 단일 에러로 전달
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.WithFields(map[string]interface{}{
			"status": resp.StatusCode,
			"body":   string(snippet),
		}).Error("Upstream returned non-success status")
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices", ErrUpstream)
	}

	logger.WithFields(map[string]interface{}{
		"model":       c.model,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Upstream completion finished")

	usage := ""
	if len(parsed.Usage) > 0 {
		usage = string(parsed.Usage)
	}

	return &Completion{
		Answer: parsed.Choices[0].Message.Content,
		Usage:  usage,
	}, nil
}
