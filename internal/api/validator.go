package api

import (
	"casestudy/internal/entity"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	promptMinLength = 10
	promptMaxLength = 500
)

// ValidateCaseStudyInput 校验生成请求的输入，按字段返回校验错误。
// 提示词按去除首尾空白后的字符数判断长度。
func ValidateCaseStudyInput(req entity.GenerateCaseStudyRequest) []entity.FieldError {
	var fieldErrors []entity.FieldError

	prompt := strings.TrimSpace(req.Prompt)
	length := utf8.RuneCountInString(prompt)
	switch {
	case length == 0:
		fieldErrors = append(fieldErrors, entity.FieldError{
			Field:   "prompt",
			Message: "prompt is required",
		})
	case length < promptMinLength:
		fieldErrors = append(fieldErrors, entity.FieldError{
			Field:   "prompt",
			Message: fmt.Sprintf("prompt must be at least %d characters", promptMinLength),
		})
	case length > promptMaxLength:
		fieldErrors = append(fieldErrors, entity.FieldError{
			Field:   "prompt",
			Message: fmt.Sprintf("prompt must be at most %d characters", promptMaxLength),
		})
	}

	return fieldErrors
}
