package chat

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/wowinn/acg-ai/internal/model/character"
	chatservice "github.com/wowinn/acg-ai/internal/service/chat"
	"github.com/wowinn/acg-ai/internal/service/conversation"
	"github.com/wowinn/acg-ai/internal/service/voice"
)

type stubGenerator struct {
	reply string
}

func (g *stubGenerator) Reply(_ context.Context, _ string) string {
	return g.reply
}

// fakeCodec scripts the codec outcomes for one test.
type fakeCodec struct {
	transcript    string
	transcribeErr error
	audio         []byte
	synthesizeErr error
	transcribed   bool
}

func (f *fakeCodec) Transcribe(_ context.Context, _ []byte) (string, error) {
	f.transcribed = true
	if f.transcribeErr != nil {
		return "", f.transcribeErr
	}
	return f.transcript, nil
}

func (f *fakeCodec) Synthesize(_ context.Context, _ string) ([]byte, error) {
	if f.synthesizeErr != nil {
		return nil, f.synthesizeErr
	}
	return f.audio, nil
}

func setupRouter(codec voice.Codec) (*chi.Mux, *chatservice.Service) {
	chatSvc := chatservice.NewService()
	store := character.NewMemoryStore(character.Seed())
	pipeline := conversation.New(chatSvc, store, &stubGenerator{reply: "好的"}, 5)
	handler := New(pipeline, chatSvc, codec)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, chatSvc
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal err: %v", err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestSendCreatesSessionAndRepliesOnFollowUp(t *testing.T) {
	r, _ := setupRouter(nil)

	resp := doJSON(t, r, http.MethodPost, "/chat/send", map[string]string{"message": "hello"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var first sendResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &first); err != nil {
		t.Fatalf("unmarshal err: %v", err)
	}
	if first.SessionID == "" || first.Message != "好的" {
		t.Fatalf("unexpected response: %+v", first)
	}

	resp = doJSON(t, r, http.MethodPost, "/chat/send", map[string]string{
		"message":   "again",
		"sessionId": first.SessionID,
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("follow-up expected 200, got %d", resp.Code)
	}

	var second sendResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &second); err != nil {
		t.Fatalf("unmarshal err: %v", err)
	}
	if second.SessionID != first.SessionID {
		t.Fatal("follow-up must reuse the returned session")
	}
}

func TestSendUnknownSession(t *testing.T) {
	r, _ := setupRouter(nil)

	resp := doJSON(t, r, http.MethodPost, "/chat/send", map[string]string{
		"message":   "hi",
		"sessionId": "missing",
	})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestSendUnknownCharacter(t *testing.T) {
	r, chatSvc := setupRouter(nil)

	resp := doJSON(t, r, http.MethodPost, "/chat/send", map[string]string{
		"message":     "hi",
		"characterId": "nonexistent",
	})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if sessions := chatSvc.ListSessions(context.Background(), ""); len(sessions) != 0 {
		t.Fatal("declined turn must not persist a session")
	}
}

func TestVoiceEmptyAudioRejectedBeforeDecode(t *testing.T) {
	codec := &fakeCodec{transcript: "ignored"}
	r, chatSvc := setupRouter(codec)

	resp := doJSON(t, r, http.MethodPost, "/chat/voice", map[string]string{"audioData": ""})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
	if codec.transcribed {
		t.Fatal("empty audio must never reach the codec")
	}
	if sessions := chatSvc.ListSessions(context.Background(), ""); len(sessions) != 0 {
		t.Fatal("rejected voice call must not persist anything")
	}
}

func TestVoiceUnintelligibleAudioReturnsApology(t *testing.T) {
	codec := &fakeCodec{transcribeErr: voice.ErrUnintelligible}
	r, chatSvc := setupRouter(codec)

	audio := base64.StdEncoding.EncodeToString([]byte("mumbling"))
	resp := doJSON(t, r, http.MethodPost, "/chat/voice", map[string]string{"audioData": audio})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body voiceResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal err: %v", err)
	}
	if body.Text != apologyUnintelligible {
		t.Fatalf("expected apology text, got %q", body.Text)
	}
	if body.AudioResponse != "" {
		t.Fatal("no audio expected on decode failure")
	}
	if sessions := chatSvc.ListSessions(context.Background(), ""); len(sessions) != 0 {
		t.Fatal("decode failure must not persist turns")
	}
}

func TestVoiceSuccess(t *testing.T) {
	codec := &fakeCodec{transcript: "你好", audio: []byte("mp3")}
	r, chatSvc := setupRouter(codec)

	audio := base64.StdEncoding.EncodeToString([]byte("wav-bytes"))
	resp := doJSON(t, r, http.MethodPost, "/chat/voice", map[string]string{"audioData": audio})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body voiceResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal err: %v", err)
	}
	if body.Text != "好的" {
		t.Fatalf("expected assistant reply, got %q", body.Text)
	}
	if body.AudioResponse != base64.StdEncoding.EncodeToString([]byte("mp3")) {
		t.Fatalf("unexpected audio response: %q", body.AudioResponse)
	}

	messages, err := chatSvc.Messages(context.Background(), body.SessionID, 0)
	if err != nil {
		t.Fatalf("Messages err: %v", err)
	}
	if len(messages) != 2 || messages[0].Content != "你好" {
		t.Fatalf("voice turn not persisted as text: %+v", messages)
	}
	if messages[0].Modality != "voice" {
		t.Fatalf("user turn must keep the voice modality: %+v", messages[0])
	}
}

func TestVoiceSynthesisFailureKeepsText(t *testing.T) {
	codec := &fakeCodec{transcript: "你好", synthesizeErr: errors.New("tts exploded")}
	r, _ := setupRouter(codec)

	audio := base64.StdEncoding.EncodeToString([]byte("wav-bytes"))
	resp := doJSON(t, r, http.MethodPost, "/chat/voice", map[string]string{"audioData": audio})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body voiceResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal err: %v", err)
	}
	if body.Text != "好的" {
		t.Fatalf("text reply must survive synthesis failure, got %q", body.Text)
	}
	if body.AudioResponse != "" {
		t.Fatal("audio must be absent when synthesis fails")
	}
}

func TestVoiceUnavailableWithoutCodec(t *testing.T) {
	r, _ := setupRouter(nil)

	resp := doJSON(t, r, http.MethodPost, "/chat/voice", map[string]string{"audioData": "aGk="})
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestSessionLifecycleEndpoints(t *testing.T) {
	r, _ := setupRouter(nil)

	resp := doJSON(t, r, http.MethodPost, "/chat/sessions", map[string]string{"name": "测试会话"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	var session struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &session); err != nil {
		t.Fatalf("unmarshal err: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/chat/sessions/"+session.ID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/chat/sessions/"+session.ID, nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("deactivated session should be 404, got %d", rec.Code)
	}
}
