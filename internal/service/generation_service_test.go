package service

import (
	"casestudy/internal/entity"
	"casestudy/internal/quota"
	"casestudy/internal/storage"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeRepo struct {
	caseStudies []entity.DbCaseStudy
	usageEvents []entity.DbUsageEvent

	createCaseStudyErr error
	createUsageErr     error
}

func (f *fakeRepo) CreateUser(ctx context.Context, user *entity.DbUser) error { return nil }
func (f *fakeRepo) GetUserByEmail(ctx context.Context, email string) (*entity.DbUser, error) {
	return nil, errors.New("not found")
}
func (f *fakeRepo) GetUserByID(ctx context.Context, id uint) (*entity.DbUser, error) {
	return nil, errors.New("not found")
}
func (f *fakeRepo) CountUsers(ctx context.Context) (int64, error) { return 0, nil }

func (f *fakeRepo) CreateCaseStudy(ctx context.Context, record *entity.DbCaseStudy) error {
	if f.createCaseStudyErr != nil {
		return f.createCaseStudyErr
	}
	record.ID = uint(len(f.caseStudies) + 1)
	f.caseStudies = append(f.caseStudies, *record)
	return nil
}

func (f *fakeRepo) ListCaseStudies(ctx context.Context, params *entity.CaseStudyQuery) ([]entity.DbCaseStudy, error) {
	return f.caseStudies, nil
}

func (f *fakeRepo) CreateUsageEvent(ctx context.Context, event *entity.DbUsageEvent) error {
	if f.createUsageErr != nil {
		return f.createUsageErr
	}
	f.usageEvents = append(f.usageEvents, *event)
	return nil
}

func (f *fakeRepo) CountUsageEventsByUser(ctx context.Context, userID uint) (int64, error) {
	return 0, nil
}
func (f *fakeRepo) CountUsageEventsByEmail(ctx context.Context, email string) (int64, error) {
	return 0, nil
}
func (f *fakeRepo) CountUsageEventsByIP(ctx context.Context, ip string) (int64, error) {
	return 0, nil
}

type fakeLLM struct {
	text     string
	imageURL string
	describe string

	textErr     error
	imageErr    error
	describeErr error

	lastSystemPrompt string
	lastUserPrompt   string
	lastImagePrompt  string
	lastInstruction  string
	lastImageURL     string
}

func (f *fakeLLM) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.lastSystemPrompt = systemPrompt
	f.lastUserPrompt = userPrompt
	return f.text, f.textErr
}

func (f *fakeLLM) GenerateImage(ctx context.Context, prompt string) (string, error) {
	f.lastImagePrompt = prompt
	return f.imageURL, f.imageErr
}

func (f *fakeLLM) DescribeImage(ctx context.Context, instruction, imageURL string) (string, error) {
	f.lastInstruction = instruction
	f.lastImageURL = imageURL
	return f.describe, f.describeErr
}

func TestGenerateSuccess(t *testing.T) {
	repo := &fakeRepo{}
	client := &fakeLLM{
		text:     "### The Problem\n...\n### The Solution\n...\n### The Results\n...",
		imageURL: "https://cdn.example.com/cover.png",
		describe: "Dark cinematic cover with blue accents.",
	}
	svc := NewGenerationService(repo, client, nil, "")

	userID := uint(7)
	outcome, err := svc.Generate(context.Background(), GenerateInput{
		Prompt: "  A fintech dashboard rebuild for a retail bank  ",
		Identity: quota.Identity{
			UserID:    userID,
			Email:     "dev@example.com",
			IPAddress: "203.0.113.9",
			UserAgent: "test-agent",
		},
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if !outcome.Saved {
		t.Fatal("expected Saved=true")
	}
	if outcome.CaseStudy.GeneratedText != client.text {
		t.Errorf("unexpected generated text: %q", outcome.CaseStudy.GeneratedText)
	}
	if outcome.CaseStudy.ImageURL != client.imageURL {
		t.Errorf("unexpected image URL: %q", outcome.CaseStudy.ImageURL)
	}
	if outcome.CaseStudy.ImageDesignDescription != client.describe {
		t.Errorf("unexpected description: %q", outcome.CaseStudy.ImageDesignDescription)
	}
	if outcome.CaseStudy.UserID == nil || *outcome.CaseStudy.UserID != userID {
		t.Errorf("expected user id %d, got %v", userID, outcome.CaseStudy.UserID)
	}

	// 输入提示词应去除首尾空白后参与生成
	if client.lastUserPrompt != "A fintech dashboard rebuild for a retail bank" {
		t.Errorf("prompt not trimmed: %q", client.lastUserPrompt)
	}
	if !strings.HasPrefix(client.lastImagePrompt, coverImagePromptPrefix) {
		t.Errorf("image prompt missing prefix: %q", client.lastImagePrompt)
	}
	if client.lastInstruction != coverDescribeInstruction {
		t.Errorf("unexpected describe instruction: %q", client.lastInstruction)
	}
	if client.lastImageURL != client.imageURL {
		t.Errorf("describe should receive the cover URL, got %q", client.lastImageURL)
	}
	if client.lastSystemPrompt != caseStudySystemPrompt {
		t.Errorf("unexpected system prompt: %q", client.lastSystemPrompt)
	}

	if len(repo.caseStudies) != 1 {
		t.Fatalf("expected 1 persisted case study, got %d", len(repo.caseStudies))
	}
	if len(repo.usageEvents) != 1 {
		t.Fatalf("expected 1 usage event, got %d", len(repo.usageEvents))
	}
	if repo.usageEvents[0].IPAddress != "203.0.113.9" {
		t.Errorf("usage event missing IP: %+v", repo.usageEvents[0])
	}
}

func TestGenerateStepFailureAborts(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeLLM
	}{
		{
			name:   "文本生成失败",
			client: &fakeLLM{textErr: errors.New("upstream down")},
		},
		{
			name:   "封面图生成失败",
			client: &fakeLLM{text: "ok", imageErr: errors.New("upstream down")},
		},
		{
			name:   "视觉描述失败",
			client: &fakeLLM{text: "ok", imageURL: "https://cdn.example.com/x.png", describeErr: errors.New("upstream down")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{}
			svc := NewGenerationService(repo, tt.client, nil, "")

			_, err := svc.Generate(context.Background(), GenerateInput{
				Prompt:   "A data pipeline migration story",
				Identity: quota.Identity{IPAddress: "203.0.113.9"},
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if len(repo.caseStudies) != 0 {
				t.Errorf("no case study should be persisted, got %d", len(repo.caseStudies))
			}
			if len(repo.usageEvents) != 0 {
				t.Errorf("no usage event should be recorded, got %d", len(repo.usageEvents))
			}
		})
	}
}

func TestGeneratePersistenceFailureKeepsContent(t *testing.T) {
	repo := &fakeRepo{createCaseStudyErr: errors.New("db gone")}
	client := &fakeLLM{
		text:     "### The Problem\n...",
		imageURL: "https://cdn.example.com/cover.png",
		describe: "Light airy layout.",
	}
	svc := NewGenerationService(repo, client, nil, "")

	outcome, err := svc.Generate(context.Background(), GenerateInput{
		Prompt:   "An on-call rotation tooling revamp",
		Identity: quota.Identity{IPAddress: "203.0.113.9"},
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if outcome.Saved {
		t.Fatal("expected Saved=false when persistence fails")
	}
	if outcome.CaseStudy.GeneratedText != client.text {
		t.Errorf("content lost on persistence failure: %q", outcome.CaseStudy.GeneratedText)
	}
	// 落库失败不影响使用事件追加
	if len(repo.usageEvents) != 1 {
		t.Errorf("expected usage event despite save failure, got %d", len(repo.usageEvents))
	}
}

type fakeStorage struct {
	savedPayloads [][]byte
	lastOpts      storage.SaveOptions
	relPath       string
	err           error
}

func (f *fakeStorage) Save(ctx context.Context, data []byte, opts storage.SaveOptions) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.savedPayloads = append(f.savedPayloads, data)
	f.lastOpts = opts
	return f.relPath, nil
}

func TestGenerateArchivesCoverAfterDescription(t *testing.T) {
	imageBody := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(imageBody)
	}))
	defer upstream.Close()

	providerURL := upstream.URL + "/cover.png"
	repo := &fakeRepo{}
	client := &fakeLLM{text: "### The Problem\n...", imageURL: providerURL, describe: "Dark palette."}
	store := &fakeStorage{relPath: "covers/2026/01/02/abc.png"}
	svc := NewGenerationService(repo, client, store, "/files")

	outcome, err := svc.Generate(context.Background(), GenerateInput{
		Prompt:   "A checkout flow redesign for a grocer",
		Identity: quota.Identity{IPAddress: "203.0.113.9"},
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	// 视觉描述必须收到服务商的可外网访问 URL，而不是归档后的站内路径
	if client.lastImageURL != providerURL {
		t.Errorf("describe received %q, want provider URL %q", client.lastImageURL, providerURL)
	}

	// 落库的是归档后的稳定 URL
	if outcome.CaseStudy.ImageURL != "/files/covers/2026/01/02/abc.png" {
		t.Errorf("persisted image URL = %q", outcome.CaseStudy.ImageURL)
	}
	if len(store.savedPayloads) != 1 || string(store.savedPayloads[0]) != string(imageBody) {
		t.Errorf("unexpected archived payloads: %d", len(store.savedPayloads))
	}
	if store.lastOpts.Category != "covers" || store.lastOpts.Extension != "png" {
		t.Errorf("unexpected save options: %+v", store.lastOpts)
	}
}

func TestGenerateKeepsProviderURLWhenArchivalFails(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{0x01})
	}))
	defer upstream.Close()

	providerURL := upstream.URL + "/cover.png"
	repo := &fakeRepo{}
	client := &fakeLLM{text: "### The Problem\n...", imageURL: providerURL, describe: "Light palette."}
	store := &fakeStorage{err: errors.New("bucket unreachable")}
	svc := NewGenerationService(repo, client, store, "/files")

	outcome, err := svc.Generate(context.Background(), GenerateInput{
		Prompt:   "A warehouse picking workflow rebuild",
		Identity: quota.Identity{IPAddress: "203.0.113.9"},
	})
	if err != nil {
		t.Fatalf("archival failure must not fail the request, got %v", err)
	}
	if !outcome.Saved {
		t.Error("expected Saved=true")
	}
	if outcome.CaseStudy.ImageURL != providerURL {
		t.Errorf("persisted image URL = %q, want provider URL", outcome.CaseStudy.ImageURL)
	}
}

func TestExtensionFromMime(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		expected    string
	}{
		{name: "png", contentType: "image/png", expected: "png"},
		{name: "jpeg 带参数", contentType: "image/jpeg; charset=binary", expected: "jpg"},
		{name: "webp", contentType: "image/webp", expected: "webp"},
		{name: "未知类型回退", contentType: "text/html", expected: "png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extensionFromMime(tt.contentType, []byte{0x01, 0x02})
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
