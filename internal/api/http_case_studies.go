package api

import (
	"casestudy/internal/entity"
	"casestudy/internal/llm"
	"casestudy/internal/quota"
	"casestudy/internal/service"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// GenerateCaseStudy 处理生成请求：校验、配额检查、三步生成、返回结果。
func (h *HTTPHandler) GenerateCaseStudy(c *gin.Context) {
	var req entity.GenerateCaseStudyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid input",
			"details": []entity.FieldError{
				{Field: "prompt", Message: "request body must be JSON with a prompt field"},
			},
		})
		return
	}

	if fieldErrors := ValidateCaseStudyInput(req); len(fieldErrors) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid input",
			"details": fieldErrors,
		})
		return
	}

	identity := h.requestIdentity(c)

	ctx := c.Request.Context()
	if err := h.quotaTracker.Check(ctx, identity); err != nil {
		var exceeded *quota.ExceededError
		if errors.As(err, &exceeded) {
			c.JSON(http.StatusForbidden, gin.H{
				"error":     "generation_limit_exceeded",
				"message":   "You have reached your free generation limit.",
				"limit":     exceeded.Limit,
				"current":   exceeded.Current,
				"limitType": exceeded.Dimension,
			})
			return
		}
		logrus.WithError(err).Error("failed to check generation quota")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to verify usage limits.",
		})
		return
	}

	outcome, err := h.generationService.Generate(ctx, service.GenerateInput{
		Prompt:   req.Prompt,
		Identity: identity,
	})
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": identity.UserID,
			"ip":      identity.IPAddress,
		}).Error("case study generation failed")

		status := http.StatusInternalServerError
		var providerErr *llm.ProviderError
		if errors.As(err, &providerErr) && providerErr.StatusCode >= 400 {
			status = providerErr.StatusCode
		}
		c.JSON(status, gin.H{
			"error":   "generation_failed",
			"message": "Failed to generate the case study. Please try again.",
		})
		return
	}

	c.JSON(http.StatusOK, entity.GenerateCaseStudyResponse{
		NewCaseStudy: entity.MakeCaseStudyItem(&outcome.CaseStudy),
		Saved:        outcome.Saved,
	})
}

// ListCaseStudies 返回 case study 列表。认证请求仅返回当前用户的数据，
// 匿名请求返回全部，并附带配额使用情况。
func (h *HTTPHandler) ListCaseStudies(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	query := entity.CaseStudyQuery{}
	if user := CurrentUser(c); user != nil {
		query.UserID = user.ID
	}

	records, err := h.repo.ListCaseStudies(ctx, &query)
	if err != nil {
		logrus.WithError(err).Error("failed to list case studies")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to load case studies.",
		})
		return
	}

	items := make([]entity.CaseStudyItem, 0, len(records))
	for i := range records {
		items = append(items, entity.MakeCaseStudyItem(&records[i]))
	}

	limit := h.quotaTracker.Limit()
	used, err := h.quotaTracker.Used(ctx, h.requestIdentity(c))
	if err != nil {
		logrus.WithError(err).Warn("failed to count usage for listing")
		used = 0
	}
	remaining := limit - int(used)
	if remaining < 0 {
		remaining = 0
	}

	c.JSON(http.StatusOK, entity.CaseStudyListResponse{
		CaseStudies: items,
		Count:       len(items),
		Limit:       limit,
		Remaining:   remaining,
	})
}

// requestIdentity 汇总请求携带的身份维度：认证用户、邮箱与客户端 IP。
func (h *HTTPHandler) requestIdentity(c *gin.Context) quota.Identity {
	identity := quota.Identity{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if user := CurrentUser(c); user != nil {
		identity.UserID = user.ID
		identity.Email = user.Email
	}
	return identity
}
