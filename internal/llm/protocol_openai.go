package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type oaiImageURL struct {
	URL string `json:"url"`
}

type oaiMsgPart struct {
	Type     string       `json:"type"` // "text" | "image_url"
	Text     string       `json:"text,omitempty"`
	ImageURL *oaiImageURL `json:"image_url,omitempty"`
}

type oaiMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type oaiChatRequest struct {
	Model    string       `json:"model"`
	Messages []oaiMessage `json:"messages"`
}

type oaiChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type oaiImageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n"`
	Size    string `json:"size"`
	Quality string `json:"quality"`
}

type oaiImageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

type oaiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// OpenAIClient calls any OpenAI-compatible API for chat completions, image
// generation and vision-conditioned chat. baseURL includes the /v1 prefix.
type OpenAIClient struct {
	baseURL     string
	apiKey      string
	textModel   string
	imageModel  string
	visionModel string
	httpClient  *http.Client
}

// NewOpenAIClient builds a client for the configured provider endpoint.
func NewOpenAIClient(baseURL, apiKey, textModel, imageModel, visionModel string) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai api key is not configured")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIClient{
		baseURL:     baseURL,
		apiKey:      strings.TrimSpace(apiKey),
		textModel:   strings.TrimSpace(textModel),
		imageModel:  strings.TrimSpace(imageModel),
		visionModel: strings.TrimSpace(visionModel),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// GenerateText implements TextGenerator using the chat completions API.
func (c *OpenAIClient) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.textModel == "" {
		return "", errors.New("text model is not configured")
	}

	messages := make([]oaiMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, oaiMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, oaiMessage{Role: "user", Content: userPrompt})

	var parsed oaiChatResponse
	if err := c.postJSON(ctx, "/chat/completions", oaiChatRequest{Model: c.textModel, Messages: messages}, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("empty chat completion response")
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("empty chat completion response")
	}
	return text, nil
}

// GenerateImage implements ImageGenerator. Exactly one standard-quality
// 1024x1024 image is requested and the first returned URL is used.
func (c *OpenAIClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if c.imageModel == "" {
		return "", errors.New("image model is not configured")
	}

	request := oaiImageRequest{
		Model:   c.imageModel,
		Prompt:  prompt,
		N:       1,
		Size:    "1024x1024",
		Quality: "standard",
	}

	var parsed oaiImageResponse
	if err := c.postJSON(ctx, "/images/generations", request, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Data) == 0 || strings.TrimSpace(parsed.Data[0].URL) == "" {
		return "", errors.New("no image in generation response")
	}
	return strings.TrimSpace(parsed.Data[0].URL), nil
}

// DescribeImage implements ImageDescriber via a multimodal chat completion.
func (c *OpenAIClient) DescribeImage(ctx context.Context, instruction, imageURL string) (string, error) {
	if c.visionModel == "" {
		return "", errors.New("vision model is not configured")
	}
	if strings.TrimSpace(imageURL) == "" {
		return "", errors.New("image url is empty")
	}

	parts := []oaiMsgPart{
		{Type: "text", Text: instruction},
		{Type: "image_url", ImageURL: &oaiImageURL{URL: imageURL}},
	}
	request := oaiChatRequest{
		Model:    c.visionModel,
		Messages: []oaiMessage{{Role: "user", Content: parts}},
	}

	var parsed oaiChatResponse
	if err := c.postJSON(ctx, "/chat/completions", request, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("empty vision response")
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("empty vision response")
	}
	return text, nil
}

func (c *OpenAIClient) postJSON(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		message := strings.TrimSpace(string(raw))
		var errResp oaiErrorResponse
		if json.Unmarshal(raw, &errResp) == nil && errResp.Error.Message != "" {
			message = errResp.Error.Message
		}
		logrus.WithFields(logrus.Fields{
			"path":   path,
			"status": resp.StatusCode,
			"body":   message,
		}).Error("openai provider call failed")
		return &ProviderError{StatusCode: resp.StatusCode, Message: message}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}

var _ Client = (*OpenAIClient)(nil)
