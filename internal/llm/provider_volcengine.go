package llm

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	volcModel "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"github.com/volcengine/volcengine-go-sdk/volcengine"
)

// VolcengineImageGenerator 通过火山引擎 Ark 生成封面图。
// 文档:https://www.volcengine.com/docs/82379/1824121
type VolcengineImageGenerator struct {
	apiKey string
	model  string
}

func NewVolcengineImageGenerator(apiKey, model string) (*VolcengineImageGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("volcengine api key is not configured")
	}
	if strings.TrimSpace(model) == "" {
		model = "doubao-seedream-4-0-250828"
	}
	return &VolcengineImageGenerator{
		apiKey: strings.TrimSpace(apiKey),
		model:  strings.TrimSpace(model),
	}, nil
}

// GenerateImage requests a single image and returns the first URL from the stream.
func (g *VolcengineImageGenerator) GenerateImage(ctx context.Context, prompt string) (string, error) {
	client := arkruntime.NewClientWithApiKey(g.apiKey)

	var sequentialImageGeneration volcModel.SequentialImageGeneration = "disabled" // 只生成一张
	generateReq := volcModel.GenerateImagesRequest{
		Model:                     g.model,
		Prompt:                    prompt,
		Size:                      volcengine.String("1024x1024"),
		ResponseFormat:            volcengine.String(volcModel.GenerateImagesResponseFormatURL),
		Watermark:                 volcengine.Bool(false),
		SequentialImageGeneration: &sequentialImageGeneration,
	}

	stream, err := client.GenerateImagesStreaming(ctx, generateReq)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var imageURL string
	for {
		recv, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if recv.Type == "image_generation.partial_failed" && recv.Error != nil {
			logrus.WithFields(logrus.Fields{
				"code":    recv.Error.Code,
				"message": recv.Error.Message,
			}).Error("volcengine image generation failed")
			return "", errors.New(recv.Error.Message)
		}
		if recv.Type == "image_generation.partial_succeeded" {
			if recv.Error == nil && recv.Url != nil && imageURL == "" {
				imageURL = *recv.Url
			}
		}
	}

	if strings.TrimSpace(imageURL) == "" {
		return "", errors.New("no image in streamed response")
	}
	return imageURL, nil
}

var _ ImageGenerator = (*VolcengineImageGenerator)(nil)
