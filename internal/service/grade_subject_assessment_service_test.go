package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-assessment-api/internal/dto"
	"github.com/noah-isme/sma-assessment-api/internal/models"
	appErrors "github.com/noah-isme/sma-assessment-api/pkg/errors"
)

func TestGSACreateFallsBackToDefaultSetup(t *testing.T) {
	f := newAssessmentFixture(t)
	ctx := context.Background()

	gsa, err := f.gsaSvc.Create(ctx, dto.CreateGSARequest{GradeID: gradeEleven, SubjectID: subjectMath})
	require.NoError(t, err)
	assert.Equal(t, setupFull, gsa.SetupID)
	assert.Empty(t, gsa.ConductedStages)

	_, err = f.gsaSvc.Create(ctx, dto.CreateGSARequest{GradeID: gradeEleven, SubjectID: subjectMath})
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicate))
}

func TestGSACreateErrors(t *testing.T) {
	f := newAssessmentFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  dto.CreateGSARequest
		want *appErrors.Error
	}{
		{"unknown grade", dto.CreateGSARequest{GradeID: "grade-missing", SubjectID: subjectMath}, appErrors.ErrReference},
		{"unknown subject", dto.CreateGSARequest{GradeID: gradeEleven, SubjectID: "subject-missing"}, appErrors.ErrReference},
		{"unknown setup", dto.CreateGSARequest{GradeID: gradeEleven, SubjectID: "subject-physics", SetupID: "setup-missing"}, appErrors.ErrReference},
		{"missing grade", dto.CreateGSARequest{SubjectID: subjectMath}, appErrors.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.gsaSvc.Create(ctx, tc.req)
			require.Error(t, err)
			assert.True(t, appErrors.Is(err, tc.want), err.Error())
		})
	}
}

func TestGSACreateWithoutDefaultSetup(t *testing.T) {
	f := newAssessmentFixture(t)
	ctx := context.Background()
	f.setups.setups[setupFull] = models.AssessmentSetup{ID: setupFull, Name: "Legacy", Types: f.setups.setups[setupFull].Types}

	_, err := f.gsaSvc.Create(ctx, dto.CreateGSARequest{GradeID: gradeEleven, SubjectID: subjectMath})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNoSetup))

	gsa, err := f.gsaSvc.Create(ctx, dto.CreateGSARequest{GradeID: gradeEleven, SubjectID: subjectMath, SetupID: setupFull})
	require.NoError(t, err)
	assert.Equal(t, setupFull, gsa.SetupID)
}

func TestGSAAssignSetupGuardsDependencies(t *testing.T) {
	f := newAssessmentFixture(t)
	ctx := context.Background()
	f.types.types[typeQuiz] = models.AssessmentType{ID: typeQuiz, Name: "Quiz", Weight: 100}
	f.setups.setups["setup-quiz"] = models.AssessmentSetup{ID: "setup-quiz", Name: "Quiz Only", Types: []models.SetupType{
		{SetupID: "setup-quiz", TypeID: typeQuiz, Name: "Quiz", Weight: 100},
	}}

	f.gsas.deps[gsaMath] = models.DependencyReport{models.DependentScores: 3}
	_, err := f.gsaSvc.AssignSetup(ctx, gsaMath, dto.AssignSetupRequest{SetupID: "setup-quiz"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDependency))

	delete(f.gsas.deps, gsaMath)
	gsa, err := f.gsaSvc.AssignSetup(ctx, gsaMath, dto.AssignSetupRequest{SetupID: "setup-quiz"})
	require.NoError(t, err)
	assert.Equal(t, "setup-quiz", gsa.SetupID)
	assert.Equal(t, "setup-quiz", f.gsas.gsas[gsaMath].SetupID)

	_, err = f.gsaSvc.AssignSetup(ctx, "gsa-missing", dto.AssignSetupRequest{SetupID: setupFull})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestGSAAssignSetupRevalidatesWeights(t *testing.T) {
	f := newAssessmentFixture(t)
	f.types.types[typeFinal] = models.AssessmentType{ID: typeFinal, Name: "Final", Weight: 50}

	_, err := f.gsaSvc.AssignSetup(context.Background(), gsaMath, dto.AssignSetupRequest{SetupID: setupFull})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidWeights))
}

func TestGSADelete(t *testing.T) {
	f := newAssessmentFixture(t)
	ctx := context.Background()
	f.gsas.deps[gsaMath] = models.DependencyReport{models.DependentConducted: 1}

	err := f.gsaSvc.Delete(ctx, gsaMath)
	assert.True(t, appErrors.Is(err, appErrors.ErrDependency))

	delete(f.gsas.deps, gsaMath)
	require.NoError(t, f.gsaSvc.Delete(ctx, gsaMath))
	assert.True(t, appErrors.Is(f.gsaSvc.Delete(ctx, gsaMath), appErrors.ErrNotFound))
}
