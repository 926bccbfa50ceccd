package entity

import "time"

// DbCaseStudy stores one completed generation result. Rows are written once
// and never mutated afterwards.
type DbCaseStudy struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`

	UserID *uint   `gorm:"column:user_id;index" json:"user_id"`
	User   *DbUser `gorm:"foreignKey:UserID" json:"-"`

	Prompt                 string `gorm:"column:prompt;type:text" json:"prompt"`
	GeneratedText          string `gorm:"column:generated_text;type:text" json:"generated_text"`
	ImageURL               string `gorm:"column:image_url;type:text" json:"image_url"`
	ImageDesignDescription string `gorm:"column:image_design_description;type:text" json:"image_design_description"`
}

// TableName 指定表名
func (DbCaseStudy) TableName() string {
	return "case_studies"
}
