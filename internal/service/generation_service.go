package service

import (
	"casestudy/internal/entity"
	"casestudy/internal/llm"
	"casestudy/internal/model"
	"casestudy/internal/quota"
	"casestudy/internal/storage"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// 三步生成链使用的固定提示词。
const (
	caseStudySystemPrompt = "You are an expert portfolio marketer. Write a professional case study based on the user's prompt. Structure it into 3 clear sections: '### The Problem', '### The Solution', and '### The Results'. Write in a professional and concise tone.\n\nCrucially, you must write the entire case study in the SAME language as the user's prompt."

	coverImagePromptPrefix = "Una imagen de portada cinematográfica y profesional para un caso de estudio de una web app. El tema es: "

	coverDescribeInstruction = "Analyze the provided image. Give a concise description of its visual style, dominant colors, and key elements that would be useful for a web designer to create a cohesive page layout. Focus on UI/UX design inspiration and keep it under 100 words."
)

// GenerationService 案例生成服务，封装三步生成链和落库逻辑
type GenerationService struct {
	repo      model.Repository
	textGen   llm.TextGenerator
	imageGen  llm.ImageGenerator
	describer llm.ImageDescriber
	storage   storage.Storage

	// publicBase 为封面归档后的公开访问前缀
	publicBase string
}

// NewGenerationService 创建生成服务实例。store 为 nil 时不归档封面图。
func NewGenerationService(repo model.Repository, client llm.Client, store storage.Storage, publicBase string) *GenerationService {
	return &GenerationService{
		repo:       repo,
		textGen:    client,
		imageGen:   client,
		describer:  client,
		storage:    store,
		publicBase: strings.TrimRight(strings.TrimSpace(publicBase), "/"),
	}
}

// GenerateInput 一次生成请求的输入
type GenerateInput struct {
	Prompt   string
	Identity quota.Identity
}

// GenerateOutcome 生成结果。Saved 为 false 表示内容已生成但落库失败。
type GenerateOutcome struct {
	CaseStudy entity.DbCaseStudy
	Saved     bool
}

// Generate 依次执行文本生成、封面图生成、视觉描述，然后持久化。
// 任何一步生成失败都会中止并返回错误；落库失败不丢内容，仅置 Saved=false。
func (s *GenerationService) Generate(ctx context.Context, input GenerateInput) (GenerateOutcome, error) {
	prompt := strings.TrimSpace(input.Prompt)

	text, err := s.textGen.GenerateText(ctx, caseStudySystemPrompt, prompt)
	if err != nil {
		return GenerateOutcome{}, fmt.Errorf("generate text: %w", err)
	}

	imageURL, err := s.imageGen.GenerateImage(ctx, coverImagePromptPrefix+prompt)
	if err != nil {
		return GenerateOutcome{}, fmt.Errorf("generate cover image: %w", err)
	}

	// 视觉描述必须使用服务商返回的可外网访问 URL，归档在其后进行
	description, err := s.describer.DescribeImage(ctx, coverDescribeInstruction, imageURL)
	if err != nil {
		return GenerateOutcome{}, fmt.Errorf("describe cover image: %w", err)
	}

	// 归档封面图为尽力而为：失败时保留服务商的临时 URL
	if archived := s.archiveCover(ctx, imageURL); archived != "" {
		imageURL = archived
	}

	record := entity.DbCaseStudy{
		Prompt:                 prompt,
		GeneratedText:          text,
		ImageURL:               imageURL,
		ImageDesignDescription: description,
	}
	if input.Identity.UserID > 0 {
		userID := input.Identity.UserID
		record.UserID = &userID
	}

	saved := true
	if err := s.repo.CreateCaseStudy(ctx, &record); err != nil {
		saved = false
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": input.Identity.UserID,
			"ip":      input.Identity.IPAddress,
		}).Error("failed to save case study")
	}

	s.recordUsage(input.Identity)

	return GenerateOutcome{CaseStudy: record, Saved: saved}, nil
}

// recordUsage 追加一条使用事件，失败只记日志不影响响应。
func (s *GenerationService) recordUsage(identity quota.Identity) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event := entity.DbUsageEvent{
		UserID:    identity.UserID,
		Email:     strings.TrimSpace(identity.Email),
		IPAddress: strings.TrimSpace(identity.IPAddress),
		UserAgent: identity.UserAgent,
	}
	if err := s.repo.CreateUsageEvent(ctx, &event); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": identity.UserID,
			"ip":      identity.IPAddress,
		}).Error("failed to record usage event")
	}
}

// archiveCover 下载服务商返回的封面图并转存到配置的存储后端，
// 成功时返回稳定的公开 URL，任何失败都返回空串。
func (s *GenerationService) archiveCover(parentCtx context.Context, imageURL string) string {
	if s.storage == nil {
		return ""
	}
	trimmed := strings.TrimSpace(imageURL)
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		return ""
	}

	ctx, cancel := context.WithTimeout(parentCtx, 60*time.Second)
	defer cancel()

	data, ext, err := downloadImage(ctx, trimmed)
	if err != nil {
		logrus.WithError(err).Warn("failed to download cover image")
		return ""
	}

	relPath, err := s.storage.Save(ctx, data, storage.SaveOptions{
		Category:  "covers",
		Extension: ext,
		BaseName:  uuid.NewString(),
	})
	if err != nil {
		logrus.WithError(err).Warn("failed to archive cover image")
		return ""
	}

	if s.publicBase == "" {
		return relPath
	}
	return s.publicBase + "/" + strings.TrimLeft(path.Clean(relPath), "/")
}

func downloadImage(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download image http %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, "", fmt.Errorf("read image body: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty image body")
	}

	return data, extensionFromMime(resp.Header.Get("Content-Type"), data), nil
}

func extensionFromMime(contentType string, data []byte) string {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(mediaType, ";"); idx >= 0 {
		mediaType = strings.TrimSpace(mediaType[:idx])
	}
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = strings.ToLower(http.DetectContentType(data))
		if idx := strings.Index(mediaType, ";"); idx >= 0 {
			mediaType = strings.TrimSpace(mediaType[:idx])
		}
	}
	switch mediaType {
	case "image/png":
		return "png"
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}
