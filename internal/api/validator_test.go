package api

import (
	"casestudy/internal/entity"
	"strings"
	"testing"
)

func TestValidateCaseStudyInput(t *testing.T) {
	tests := []struct {
		name      string
		prompt    string
		wantField string
	}{
		{name: "空提示词", prompt: "", wantField: "prompt"},
		{name: "仅空白", prompt: "   \t\n  ", wantField: "prompt"},
		{name: "过短", prompt: "too short", wantField: "prompt"},
		{name: "去空白后过短", prompt: "   123456789   ", wantField: "prompt"},
		{name: "过长", prompt: strings.Repeat("a", 501), wantField: "prompt"},
		{name: "最短合法长度", prompt: "1234567890", wantField: ""},
		{name: "最长合法长度", prompt: strings.Repeat("a", 500), wantField: ""},
		{name: "空白不计入长度上限", prompt: "  " + strings.Repeat("a", 500) + "  ", wantField: ""},
		{name: "多字节字符按字符数计", prompt: strings.Repeat("案", 10), wantField: ""},
		{name: "正常提示词", prompt: "Redesigned checkout flow, cut cart abandonment by 32%", wantField: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fieldErrors := ValidateCaseStudyInput(entity.GenerateCaseStudyRequest{Prompt: tt.prompt})
			if tt.wantField == "" {
				if len(fieldErrors) != 0 {
					t.Errorf("expected no errors, got %+v", fieldErrors)
				}
				return
			}
			if len(fieldErrors) != 1 {
				t.Fatalf("expected 1 error, got %+v", fieldErrors)
			}
			if fieldErrors[0].Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, fieldErrors[0].Field)
			}
			if fieldErrors[0].Message == "" {
				t.Error("expected a message")
			}
		})
	}
}
