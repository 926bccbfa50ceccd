package entity

import "time"

type GenerateCaseStudyRequest struct {
	Prompt string `json:"prompt"`
}

// CaseStudyQuery 过滤 case study 列表。UserID 为 0 时列出全部。
type CaseStudyQuery struct {
	UserID uint
	Limit  int
}

// FieldError 描述单个字段的校验错误。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// CaseStudyItem 是 case study 的对外 JSON 形态。ID 在持久化失败时为 null。
type CaseStudyItem struct {
	ID                     *uint     `json:"id"`
	CreatedAt              time.Time `json:"created_at"`
	Prompt                 string    `json:"prompt"`
	GeneratedText          string    `json:"generated_text"`
	ImageURL               string    `json:"image_url"`
	ImageDesignDescription string    `json:"image_design_description"`
	UserID                 *uint     `json:"user_id,omitempty"`
}

type GenerateCaseStudyResponse struct {
	NewCaseStudy CaseStudyItem `json:"newCaseStudy"`
	Saved        bool          `json:"saved"`
}

type CaseStudyListResponse struct {
	CaseStudies []CaseStudyItem `json:"caseStudies"`
	Count       int             `json:"count"`
	Limit       int             `json:"limit"`
	Remaining   int             `json:"remaining"`
}

// MakeCaseStudyItem 将数据库行转换为对外结构。
func MakeCaseStudyItem(record *DbCaseStudy) CaseStudyItem {
	if record == nil {
		return CaseStudyItem{}
	}
	item := CaseStudyItem{
		CreatedAt:              record.CreatedAt,
		Prompt:                 record.Prompt,
		GeneratedText:          record.GeneratedText,
		ImageURL:               record.ImageURL,
		ImageDesignDescription: record.ImageDesignDescription,
		UserID:                 record.UserID,
	}
	if record.ID != 0 {
		id := record.ID
		item.ID = &id
	}
	return item
}

type AuthRegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserSummary struct {
	ID          uint      `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type AuthResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      UserSummary `json:"user"`
}

type AuthStatusResponse struct {
	HasUser bool `json:"has_user"`
}
