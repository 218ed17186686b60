package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/scorer"
)

// AnalysisService runs ad-hoc answer checks for admins.
type AnalysisService struct {
	scorer scorer.Scorer
	log    zerolog.Logger
}

func NewAnalysisService(sc scorer.Scorer, log zerolog.Logger) *AnalysisService {
	return &AnalysisService{scorer: sc, log: log.With().Str("component", "analysis_service").Logger()}
}

// Analyze returns the scorer verdict. Without a scorer the verdict is
// "not suspicious" with zero confidence and Available unset.
func (s *AnalysisService) Analyze(ctx context.Context, req model.AnswerAnalysisRequest) (*model.AnswerAnalysis, error) {
	neutral := &model.AnswerAnalysis{Reasons: []string{}}
	if s.scorer == nil {
		return neutral, nil
	}

	verdict, err := s.scorer.AnalyzeAnswer(ctx, req.QuestionText, req.AnswerText)
	if err != nil {
		if !errors.Is(err, ErrExternalServiceUnavailable) {
			s.log.Warn().Err(err).Msg("Answer analysis failed")
		}
		return neutral, nil
	}
	verdict.Available = true
	if verdict.Reasons == nil {
		verdict.Reasons = []string{}
	}
	return verdict, nil
}
