package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fdg312/run-coach/internal/config"
	"github.com/fdg312/run-coach/internal/snapshot"
)

func completionServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization %q", got)
		}
		w.WriteHeader(status)
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testOpenAIConfig(baseURL string) *config.Config {
	return &config.Config{
		AIMode:            ProviderOpenAI,
		OpenAIAPIKey:      "test-key",
		OpenAIModel:       "gpt-4.1-mini",
		OpenAIBaseURL:     baseURL + "/",
		AIMaxOutputTokens: 200,
		AITimeoutSeconds:  5,
	}
}

func TestOpenAIDecideParsesEmbeddedJSON(t *testing.T) {
	srv := completionServer(t, http.StatusOK, "Voici :\n```json\n{\"type\":\"request_week\",\"offset\":-2,\"metric\":\"distance\"}\n```")
	p := NewOpenAIProvider(testOpenAIConfig(srv.URL))

	got, err := p.Decide(context.Background(), DecideRequest{Message: "il y a 2 semaines ?"})
	if err != nil {
		t.Fatalf("decide failed: %v", err)
	}
	if got.Type != DecisionRequestWeek || got.Metric != MetricDistance {
		t.Fatalf("unexpected decision %+v", got)
	}
	if got.Offset == nil || *got.Offset != -2 {
		t.Fatalf("expected offset -2, got %v", deref(got.Offset))
	}
}

func TestOpenAIDecideFallsBackToSmallTalk(t *testing.T) {
	for _, content := range []string{"je ne sais pas", "{pas du json}", `{"answer_mode":"FACTUAL"}`} {
		srv := completionServer(t, http.StatusOK, content)
		p := NewOpenAIProvider(testOpenAIConfig(srv.URL))

		got, err := p.Decide(context.Background(), DecideRequest{Message: "?"})
		if err != nil {
			t.Fatalf("decide failed: %v", err)
		}
		if got.Type != DecisionAnswerNow || got.AnswerMode != ModeSmallTalk {
			t.Fatalf("expected small talk fallback for %q, got %+v", content, got)
		}
	}
}

func TestOpenAIStatusError(t *testing.T) {
	srv := completionServer(t, http.StatusTooManyRequests, "")
	p := NewOpenAIProvider(testOpenAIConfig(srv.URL))

	if _, err := p.Answer(context.Background(), AnswerRequest{Mode: ModeCoaching, Snapshot: snapshot.Snapshot{}}); err == nil {
		t.Fatal("expected error for non-2xx status")
	}
}

func TestOpenAIAnswerTrimsContent(t *testing.T) {
	srv := completionServer(t, http.StatusOK, "  Belle régularité !  ")
	p := NewOpenAIProvider(testOpenAIConfig(srv.URL))

	got, err := p.Answer(context.Background(), AnswerRequest{Mode: ModeCoaching, Message: "Je progresse ?"})
	if err != nil {
		t.Fatalf("answer failed: %v", err)
	}
	if got != "Belle régularité !" {
		t.Fatalf("unexpected answer %q", got)
	}
}

func TestNewProviderSelectsMode(t *testing.T) {
	if _, ok := NewProvider(&config.Config{}).(*MockProvider); !ok {
		t.Fatal("expected mock provider by default")
	}
	cfg := &config.Config{AIMode: " OpenAI "}
	p, ok := NewProvider(cfg).(*OpenAIProvider)
	if !ok {
		t.Fatal("expected openai provider")
	}
	if !strings.HasPrefix(p.baseURL, "https://api.openai.com") {
		t.Fatalf("unexpected default base url %s", p.baseURL)
	}
}
