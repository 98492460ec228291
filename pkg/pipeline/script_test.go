package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func openAIResponse(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	}
}

func TestWriteScriptOpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("authorization = %q", got)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		messages := body["messages"].([]any)
		prompt := messages[0].(map[string]any)["content"].(string)
		if !strings.Contains(prompt, "손흥민") {
			t.Errorf("prompt missing topic: %q", prompt)
		}
		json.NewEncoder(w).Encode(openAIResponse("  오늘 손흥민이 해냈습니다.  "))
	}))
	defer srv.Close()

	c := NewScriptClient("openai", "gpt-4o-mini", "sk-test", srv.URL)
	script, err := c.WriteScript(context.Background(), "손흥민", "sports")
	if err != nil {
		t.Fatalf("WriteScript: %v", err)
	}
	if script != "오늘 손흥민이 해냈습니다." {
		t.Errorf("script = %q, want trimmed text", script)
	}
}

func TestWriteScriptStripsCodeFence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openAIResponse("```text\n본문 스크립트입니다.\n```"))
	}))
	defer srv.Close()

	c := NewScriptClient("openai", "", "sk-test", srv.URL)
	script, err := c.WriteScript(context.Background(), "환율", "finance")
	if err != nil {
		t.Fatalf("WriteScript: %v", err)
	}
	if script != "본문 스크립트입니다." {
		t.Errorf("script = %q, code fence not stripped", script)
	}
}

func TestWriteScriptAnthropic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "sk-ant" {
			t.Errorf("x-api-key = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"text": "주제를 소개합니다."}},
		})
	}))
	defer srv.Close()

	c := NewScriptClient("anthropic", "", "sk-ant", srv.URL)
	script, err := c.WriteScript(context.Background(), "전기차", "auto")
	if err != nil {
		t.Fatalf("WriteScript: %v", err)
	}
	if script != "주제를 소개합니다." {
		t.Errorf("script = %q", script)
	}
}

func TestWriteScriptRequiresAPIKey(t *testing.T) {
	c := NewScriptClient("openai", "", "", "")
	if _, err := c.WriteScript(context.Background(), "topic", "general"); err == nil {
		t.Error("WriteScript succeeded without an API key")
	}
}

func TestWriteScriptRejectsEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openAIResponse("   "))
	}))
	defer srv.Close()

	c := NewScriptClient("openai", "", "sk-test", srv.URL)
	if _, err := c.WriteScript(context.Background(), "topic", "general"); err == nil {
		t.Error("WriteScript accepted an empty script")
	}
}
