package service

import (
	"context"

	"discovery-client/internal/model"
	"discovery-client/internal/pkg/logger"
	"discovery-client/internal/repository/contract"
)

// HintSearchLike is the "tap the heart to like" tooltip on the first
// candidate of the first session.
const HintSearchLike = "search-like-tooltip"

type IHintService interface {
	ShouldShow(ctx context.Context, key string) bool
	MarkShown(ctx context.Context, key string) error
}

type hintService struct {
	kv     contract.KeyValueRepository
	logger logger.ILogger
}

func NewHintService(kv contract.KeyValueRepository, logger logger.ILogger) IHintService {
	return &hintService{kv: kv, logger: logger}
}

// ShouldShow is false when the flag cannot be read; a missed tooltip is
// better than a repeated one.
func (s *hintService) ShouldShow(ctx context.Context, key string) bool {
	_, found, err := s.kv.Get(ctx, model.KeyHintPrefix+key)
	if err != nil {
		s.logger.Warn("HINT", "Failed to read hint flag", map[string]interface{}{"key": key, "error": err.Error()})
		return false
	}
	return !found
}

func (s *hintService) MarkShown(ctx context.Context, key string) error {
	if err := s.kv.Set(ctx, model.KeyHintPrefix+key, "1"); err != nil {
		s.logger.Error("HINT", "Failed to persist hint flag", map[string]interface{}{"key": key, "error": err.Error()})
		return err
	}
	s.logger.Debug("HINT", "Hint marked as shown", map[string]interface{}{"key": key})
	return nil
}
