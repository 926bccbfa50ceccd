package sql

import (
	"casestudy/internal/entity"
	"context"
	"fmt"
)

// CreateCaseStudy inserts a completed case study row.
func (r *GormRepository) CreateCaseStudy(ctx context.Context, record *entity.DbCaseStudy) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// ListCaseStudies retrieves case studies ordered newest first.
func (r *GormRepository) ListCaseStudies(ctx context.Context, params *entity.CaseStudyQuery) ([]entity.DbCaseStudy, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}

	query := r.db.WithContext(ctx).Model(&entity.DbCaseStudy{})
	if params != nil {
		if params.UserID > 0 {
			query = query.Where("user_id = ?", params.UserID)
		}
		if params.Limit > 0 {
			query = query.Limit(params.Limit)
		}
	}

	var records []entity.DbCaseStudy
	if err := query.Order("created_at DESC, id DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
