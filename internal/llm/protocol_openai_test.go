package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) (*OpenAIClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewOpenAIClient(server.URL, "test-key", "text-model", "image-model", "vision-model")
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	return client, server
}

func TestGenerateText(t *testing.T) {
	var gotBody map[string]interface{}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "  generated prose  "}},
			},
		})
	}))

	text, err := client.GenerateText(context.Background(), "system prompt", "user prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "generated prose" {
		t.Fatalf("expected trimmed content, got %q", text)
	}
	if gotBody["model"] != "text-model" {
		t.Fatalf("expected text model in request, got %v", gotBody["model"])
	}
	messages, ok := gotBody["messages"].([]interface{})
	if !ok || len(messages) != 2 {
		t.Fatalf("expected system+user messages, got %v", gotBody["messages"])
	}
}

func TestGenerateImageRequestsSingleStandardImage(t *testing.T) {
	var gotBody map[string]interface{}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{{"url": "https://images.example.com/cover.png"}},
		})
	}))

	url, err := client.GenerateImage(context.Background(), "a cover image")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://images.example.com/cover.png" {
		t.Fatalf("unexpected url %q", url)
	}
	if gotBody["n"] != float64(1) {
		t.Fatalf("expected n=1, got %v", gotBody["n"])
	}
	if gotBody["size"] != "1024x1024" {
		t.Fatalf("expected standard size, got %v", gotBody["size"])
	}
	if gotBody["quality"] != "standard" {
		t.Fatalf("expected standard quality, got %v", gotBody["quality"])
	}
}

func TestDescribeImageSendsImagePart(t *testing.T) {
	var gotBody map[string]interface{}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "warm palette, minimal layout"}},
			},
		})
	}))

	desc, err := client.DescribeImage(context.Background(), "describe this", "https://images.example.com/cover.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if desc != "warm palette, minimal layout" {
		t.Fatalf("unexpected description %q", desc)
	}
	if gotBody["model"] != "vision-model" {
		t.Fatalf("expected vision model, got %v", gotBody["model"])
	}

	messages := gotBody["messages"].([]interface{})
	content := messages[0].(map[string]interface{})["content"].([]interface{})
	if len(content) != 2 {
		t.Fatalf("expected text+image parts, got %d", len(content))
	}
	imagePart := content[1].(map[string]interface{})
	if imagePart["type"] != "image_url" {
		t.Fatalf("expected image_url part, got %v", imagePart["type"])
	}
}

func TestProviderErrorSurfacesStatusAndMessage(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "rate limited upstream", "type": "rate_limit"},
		})
	}))

	_, err := client.GenerateText(context.Background(), "", "prompt")
	if err == nil {
		t.Fatal("expected error")
	}
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
	if provErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", provErr.StatusCode)
	}
	if provErr.Message != "rate limited upstream" {
		t.Fatalf("unexpected message %q", provErr.Message)
	}
}

func TestNewOpenAIClientRequiresAPIKey(t *testing.T) {
	if _, err := NewOpenAIClient("https://api.openai.com/v1", "  ", "a", "b", "c"); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
