package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/wowinn/acg-ai/internal/config"
)

// Codec 抽象语音编解码，便于测试与替换实现。
type Codec interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Service calls the speech backend's one-shot HTTP endpoints: one request to
// recognize an utterance, one request to synthesize a reply. Both directions
// are independent failure domains.
type Service struct {
	cfg    config.SpeechConfig
	client *http.Client
}

// NewService 创建语音服务实例。
func NewService(cfg config.SpeechConfig) *Service {
	return &Service{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type appPayload struct {
	AppID string `json:"appid"`
	Token string `json:"token"`
}

type asrRequest struct {
	App   appPayload `json:"app"`
	Audio struct {
		Format   string `json:"format"`
		Data     string `json:"data"`
		Language string `json:"language"`
	} `json:"audio"`
	Request struct {
		ReqID string `json:"reqid"`
	} `json:"request"`
}

type asrResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Result  []struct {
		Text string `json:"text"`
	} `json:"result"`
}

// Transcribe decodes an utterance into text. 如果后端没听到任何语音返回
// ErrUnintelligible；后端不可达或返回失败代码归入 ErrProviderUnavailable。
func (s *Service) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if err := ValidateAudio(audio); err != nil {
		return "", err
	}

	var req asrRequest
	req.App = appPayload{AppID: s.cfg.AppID, Token: s.cfg.AccessToken}
	req.Audio.Format = "wav"
	req.Audio.Data = base64.StdEncoding.EncodeToString(audio)
	req.Audio.Language = s.cfg.Language
	req.Request.ReqID = uuid.NewString()

	var resp asrResponse
	if err := s.postJSON(ctx, "/api/v1/asr", req, &resp); err != nil {
		return "", err
	}

	if resp.Code != 0 {
		return "", fmt.Errorf("%w: asr code=%d message=%s", ErrProviderUnavailable, resp.Code, resp.Message)
	}

	var text strings.Builder
	for _, segment := range resp.Result {
		text.WriteString(segment.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", ErrUnintelligible
	}
	return text.String(), nil
}

type ttsRequest struct {
	App   appPayload `json:"app"`
	Audio struct {
		Voice    string `json:"voice_type"`
		Encoding string `json:"encoding"`
		Language string `json:"language"`
	} `json:"audio"`
	Request struct {
		ReqID string `json:"reqid"`
		Text  string `json:"text"`
	} `json:"request"`
}

type ttsResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"` // base64-encoded audio
}

// Synthesize encodes reply text into audio bytes. Any failure wraps ErrCodec;
// callers keep the text reply and drop only the audio.
func (s *Service) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty synthesis text", ErrCodec)
	}

	var req ttsRequest
	req.App = appPayload{AppID: s.cfg.AppID, Token: s.cfg.AccessToken}
	req.Audio.Voice = s.cfg.Voice
	req.Audio.Encoding = "mp3"
	req.Audio.Language = s.cfg.Language
	req.Request.ReqID = uuid.NewString()
	req.Request.Text = text

	var resp ttsResponse
	if err := s.postJSON(ctx, "/api/v1/tts", req, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodec, err)
	}

	if resp.Code != 0 {
		return nil, fmt.Errorf("%w: tts code=%d message=%s", ErrCodec, resp.Code, resp.Message)
	}

	audio, err := base64.StdEncoding.DecodeString(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid audio payload: %v", ErrCodec, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio payload", ErrCodec)
	}
	return audio, nil
}

func (s *Service) postJSON(ctx context.Context, path string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode request: %v", ErrCodec, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrCodec, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer; "+s.cfg.AccessToken)

	httpResp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrProviderUnavailable, httpResp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrProviderUnavailable, err)
	}

	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrCodec, err)
	}
	return nil
}
