// Package aitest runs a scripted OpenAI-compatible chat completion endpoint for tests.
package aitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/openwork-hackathon/team-clawctor/internal/ai"

	"github.com/sashabaranov/go-openai"
)

// Reply scripts one response. A zero Status means 200.
type Reply struct {
	Status   int
	Content  string
	NoChoice bool
	Delay    time.Duration
}

type Server struct {
	*httptest.Server

	mu       sync.Mutex
	reply    func(req openai.ChatCompletionRequest) Reply
	requests []openai.ChatCompletionRequest
}

// NewServer starts a server answering every chat completion with reply. It is closed on cleanup.
func NewServer(t testing.TB, reply func(req openai.ChatCompletionRequest) Reply) *Server {
	t.Helper()
	s := &Server{reply: reply}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Static answers every request with the same content.
func Static(t testing.TB, content string) *Server {
	return NewServer(t, func(openai.ChatCompletionRequest) Reply { return Reply{Content: content} })
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/chat/completions" {
		http.NotFound(w, r)
		return
	}
	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	reply := s.reply
	s.mu.Unlock()

	out := reply(req)
	if out.Delay > 0 {
		select {
		case <-time.After(out.Delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if out.Status != 0 && out.Status != http.StatusOK {
		w.WriteHeader(out.Status)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{"message": "scripted failure", "type": "server_error"},
		})
		return
	}

	resp := openai.ChatCompletionResponse{
		ID:      "chatcmpl-test",
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
	}
	if !out.NoChoice {
		resp.Choices = []openai.ChatCompletionChoice{{
			Index:        0,
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: out.Content},
			FinishReason: openai.FinishReasonStop,
		}}
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// Requests returns the chat completion requests received so far.
func (s *Server) Requests() []openai.ChatCompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]openai.ChatCompletionRequest(nil), s.requests...)
}

// Client returns an ai.Client pointed at the server.
func (s *Server) Client(model string) *ai.Client {
	return ai.NewClient(ai.Config{
		APIKey:  "test-key",
		BaseURL: s.URL + "/v1/",
		Model:   model,
		Timeout: 10 * time.Second,
	})
}
