package service

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/NhaLeTruc/todo-sync/internal/model"
	"github.com/NhaLeTruc/todo-sync/internal/repo"
)

const maxLabelName = 50

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// LabelService manages either categories or tags, depending on its repo.
type LabelService struct {
	repo repo.LabelRepository
}

func NewLabelService(r repo.LabelRepository) *LabelService {
	return &LabelService{repo: r}
}

func (s *LabelService) List(ctx context.Context, userID int64) ([]model.Label, error) {
	return s.repo.List(ctx, userID)
}

func (s *LabelService) Create(ctx context.Context, userID int64, req model.LabelRequest) (model.Label, error) {
	if err := validateLabel(&req); err != nil {
		return model.Label{}, err
	}
	return s.repo.Create(ctx, userID, req)
}

func (s *LabelService) Update(ctx context.Context, userID, id int64, req model.LabelRequest) (model.Label, error) {
	if err := validateLabel(&req); err != nil {
		return model.Label{}, err
	}
	return s.repo.Update(ctx, userID, id, req)
}

func (s *LabelService) Delete(ctx context.Context, userID, id int64) error {
	return s.repo.Delete(ctx, userID, id)
}

func validateLabel(req *model.LabelRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return invalid("name is required")
	}
	if utf8.RuneCountInString(req.Name) > maxLabelName {
		return invalid("name must be at most %d characters", maxLabelName)
	}
	if req.Color != nil && !colorPattern.MatchString(*req.Color) {
		return invalid("color must look like #RRGGBB")
	}
	return nil
}
