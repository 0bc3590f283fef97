package service

import (
	"fmt"
	"math"

	"github.com/noah-isme/sma-assessment-api/internal/models"
	appErrors "github.com/noah-isme/sma-assessment-api/pkg/errors"
)

const (
	minScore = 0.0
	maxScore = 100.0

	// weightTolerance absorbs NUMERIC(5,2) to float64 drift when summing weights.
	weightTolerance = 0.001
)

// ConductedStatusFor derives the gate status from the conducted and total stage counts.
func ConductedStatusFor(conducted, total int) models.ConductedStatus {
	switch {
	case conducted <= 0:
		return models.ConductedStatusPlanned
	case conducted < total:
		return models.ConductedStatusInProgress
	default:
		return models.ConductedStatusCompleted
	}
}

// ValidateWeights fails unless the weights of types sum to 100.
func ValidateWeights(types []models.SetupType) error {
	total := 0.0
	for _, t := range types {
		total += t.Weight
	}
	if math.Abs(total-100) > weightTolerance {
		return appErrors.Clone(appErrors.ErrInvalidWeights, fmt.Sprintf("assessment weights sum to %.2f, expected 100", total))
	}
	return nil
}

// BuildMarksheetTemplate returns one zero score per setup type, in setup order.
func BuildMarksheetTemplate(setup *models.AssessmentSetup) models.ScoreEntries {
	entries := make(models.ScoreEntries, len(setup.Types))
	for i, t := range setup.Types {
		entries[i] = models.ScoreEntry{TypeID: t.TypeID, TypeName: t.Name, Score: 0}
	}
	return entries
}

// NewMarksheet builds an unsaved marksheet for a student from the GSA's setup.
func NewMarksheet(studentID string, gsa *models.GradeSubjectAssessment, setup *models.AssessmentSetup) *models.AssessmentScore {
	return &models.AssessmentScore{
		StudentID: studentID,
		GSAID:     gsa.ID,
		SetupID:   setup.ID,
		Scores:    BuildMarksheetTemplate(setup),
		Result:    0,
	}
}

// RecalcResult recomputes marksheet.Result from the stages conducted on gsa.
// Entries whose type is not conducted, or not part of setup, contribute nothing.
func RecalcResult(marksheet *models.AssessmentScore, gsa *models.GradeSubjectAssessment, setup *models.AssessmentSetup) float64 {
	weights := make(map[string]float64, len(setup.Types))
	for _, t := range setup.Types {
		weights[t.TypeID] = t.Weight
	}
	total := 0.0
	for _, entry := range marksheet.Scores {
		weight, ok := weights[entry.TypeID]
		if !ok || !gsa.IsConducted(entry.TypeID) {
			continue
		}
		total += entry.Score * weight / 100
	}
	marksheet.Result = roundScore(total)
	return marksheet.Result
}

// ValidateConducted fails unless typeID has been conducted on gsa.
func ValidateConducted(gsa *models.GradeSubjectAssessment, typeID, typeName string) error {
	if gsa.IsConducted(typeID) {
		return nil
	}
	label := typeName
	if label == "" {
		label = typeID
	}
	return appErrors.Clone(appErrors.ErrStageNotConducted, fmt.Sprintf("assessment %q has not been conducted yet", label))
}

// ClampScore bounds a raw score to [0, 100].
func ClampScore(score float64) float64 {
	if math.IsNaN(score) {
		return minScore
	}
	return math.Max(minScore, math.Min(maxScore, score))
}

// SetEntryScore writes score into the entry for typeID. It reports false if the marksheet has no such entry.
func SetEntryScore(marksheet *models.AssessmentScore, typeID string, score float64) bool {
	for i := range marksheet.Scores {
		if marksheet.Scores[i].TypeID == typeID {
			marksheet.Scores[i].Score = ClampScore(score)
			return true
		}
	}
	return false
}

// AdvanceGate validates appending typeID to rec under setup's order and returns the resulting status.
// The record is not modified.
func AdvanceGate(rec *models.ConductedAssessment, setup *models.AssessmentSetup, typeID string) (models.ConductedStatus, error) {
	position := setup.Position(typeID)
	if position < 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "assessment type is not part of the setup")
	}
	for _, id := range rec.ConductedStages {
		if id == typeID {
			return "", appErrors.Clone(appErrors.ErrAlreadyConducted, fmt.Sprintf("assessment %q has already been conducted", setup.Types[position].Name))
		}
	}
	conducted := len(rec.ConductedStages)
	if position > conducted {
		next := setup.Types[conducted]
		return "", appErrors.Clone(appErrors.ErrOutOfOrder, fmt.Sprintf("assessment %q must be conducted before %q", next.Name, setup.Types[position].Name))
	}
	if position < conducted {
		return "", appErrors.Clone(appErrors.ErrConflict, "conducted stages do not follow the current setup order")
	}
	return ConductedStatusFor(conducted+1, len(setup.Types)), nil
}

func roundScore(v float64) float64 {
	return math.Round(v*100) / 100
}
