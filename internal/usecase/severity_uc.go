package usecase

import (
	"context"
	"strings"

	"github.com/ardiansr/mediqueue/internal/domain"
	"github.com/ardiansr/mediqueue/pkg/logger"
	"github.com/ardiansr/mediqueue/pkg/metrics"
)

// keywordScores drives the deterministic fallback. The highest score among
// matched keywords wins; unmatched text defaults to baselineScore.
var keywordScores = []struct {
	keyword string
	score   float64
}{
	{"unconscious", 9.5},
	{"not breathing", 9.5},
	{"cardiac", 9.0},
	{"chest pain", 9.0},
	{"stroke", 9.0},
	{"seizure", 8.5},
	{"severe bleeding", 8.5},
	{"bleeding", 7.5},
	{"fracture", 7.0},
	{"broken", 7.0},
	{"burn", 6.5},
	{"high fever", 6.0},
	{"difficulty breathing", 8.0},
	{"shortness of breath", 8.0},
	{"vomiting", 5.0},
	{"dehydration", 5.0},
	{"fever", 4.5},
	{"infection", 4.5},
	{"dizziness", 4.0},
	{"migraine", 4.0},
	{"pain", 3.5},
	{"nausea", 3.0},
	{"headache", 3.0},
	{"rash", 2.5},
	{"cough", 2.0},
	{"cold", 1.5},
	{"checkup", 1.0},
}

const baselineScore = 2.0

type severityUsecase struct {
	classifier domain.SeverityClassifier
	boundaries domain.TierBoundaries
}

var _ domain.SeverityClassifier = (*severityUsecase)(nil)

// NewSeverityUsecase wraps the remote classifier with one retry and a
// deterministic keyword fallback so triage never blocks an upload.
func NewSeverityUsecase(classifier domain.SeverityClassifier, boundaries domain.TierBoundaries) *severityUsecase {
	return &severityUsecase{
		classifier: classifier,
		boundaries: boundaries,
	}
}

// Classify resolves a severity for the upload. The remote classifier is
// tried twice; if both attempts fail the heuristic score is used instead.
// The returned error is always nil.
func (uc *severityUsecase) Classify(ctx context.Context, ref domain.ArtifactRef, symptomText string) (domain.Severity, error) {
	if uc.classifier != nil {
		for attempt := 1; attempt <= 2; attempt++ {
			severity, err := uc.classifier.Classify(ctx, ref, symptomText)
			if err == nil {
				metrics.RecordSeverityScore("model", severity.Score)
				return severity, nil
			}

			logger.Warn("Severity classifier attempt failed",
				logger.String("artifact_key", ref.Key),
				logger.Int("attempt", attempt),
				logger.ErrorField(err),
			)

			if ctx.Err() != nil {
				break
			}
		}
	}

	severity := uc.heuristic(symptomText)
	metrics.RecordClassifierFallback()
	metrics.RecordSeverityScore("heuristic", severity.Score)

	logger.Info("Severity resolved by heuristic fallback",
		logger.String("artifact_key", ref.Key),
		logger.Float64("score", severity.Score),
		logger.String("tier", domain.TierName(severity.Tier)),
	)

	return severity, nil
}

// heuristic derives a severity from symptom keywords. Deterministic for
// identical input.
func (uc *severityUsecase) heuristic(symptomText string) domain.Severity {
	text := strings.ToLower(symptomText)

	score := 0.0
	for _, ks := range keywordScores {
		if strings.Contains(text, ks.keyword) && ks.score > score {
			score = ks.score
		}
	}
	if score == 0 {
		score = baselineScore
	}

	return domain.Severity{
		Score: score,
		Tier:  uc.boundaries.TierFor(score),
	}
}
