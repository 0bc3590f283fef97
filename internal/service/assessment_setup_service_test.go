package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-assessment-api/internal/dto"
	"github.com/noah-isme/sma-assessment-api/internal/models"
	"github.com/noah-isme/sma-assessment-api/pkg/cache"
	appErrors "github.com/noah-isme/sma-assessment-api/pkg/errors"
)

type memoryCacheRepo struct {
	items map[string][]byte
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			delete(m.items, k)
		}
	}
	return nil
}

func TestAssessmentSetupCreateValidatesTypes(t *testing.T) {
	f := newAssessmentFixture(t)
	ctx := context.Background()

	err := f.types.Create(ctx, &models.AssessmentType{Name: "Project", Weight: 50})
	require.NoError(t, err)

	created, err := f.setupSvc.Create(ctx, dto.CreateAssessmentSetupRequest{Name: "Midterm and Project", TypeIDs: []string{typeMidterm, "type-1"}})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidWeights))
	assert.Nil(t, created)

	cases := []struct {
		name string
		req  dto.CreateAssessmentSetupRequest
		want *appErrors.Error
	}{
		{"unknown type", dto.CreateAssessmentSetupRequest{Name: "Ghost", TypeIDs: []string{typeMidterm, "type-ghost"}}, appErrors.ErrReference},
		{"duplicate type", dto.CreateAssessmentSetupRequest{Name: "Twice", TypeIDs: []string{typeMidterm, typeMidterm}}, appErrors.ErrValidation},
		{"empty list", dto.CreateAssessmentSetupRequest{Name: "Empty"}, appErrors.ErrValidation},
		{"weights off", dto.CreateAssessmentSetupRequest{Name: "Short", TypeIDs: []string{typeMidterm, typeQuiz}}, appErrors.ErrInvalidWeights},
		{"name taken", dto.CreateAssessmentSetupRequest{Name: "full term assessment", TypeIDs: []string{typeMidterm, typeFinal}}, appErrors.ErrDuplicate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.setupSvc.Create(ctx, tc.req)
			require.Error(t, err)
			assert.True(t, appErrors.Is(err, tc.want), err.Error())
		})
	}

	setup, err := f.setupSvc.Create(ctx, dto.CreateAssessmentSetupRequest{Name: "Final Only Plus Quiz", TypeIDs: []string{typeFinal, "type-1"}})
	require.Error(t, err)
	assert.Nil(t, setup)

	f.types.types[typeQuiz] = models.AssessmentType{ID: typeQuiz, Name: "Quiz", Weight: 60}
	setup, err = f.setupSvc.Create(ctx, dto.CreateAssessmentSetupRequest{Name: "Quiz Heavy", TypeIDs: []string{typeQuiz, typeMidterm}})
	require.NoError(t, err)
	assert.Equal(t, []string{typeQuiz, typeMidterm}, setup.TypeIDs())
	assert.Equal(t, 1, setup.Types[1].Position)
}

func TestAssessmentSetupUpdateRefusedOnceUsed(t *testing.T) {
	f := newAssessmentFixture(t)
	ctx := context.Background()
	f.types.types[typeQuiz] = models.AssessmentType{ID: typeQuiz, Name: "Quiz", Weight: 60}
	f.setups.deps[setupFull] = models.DependencyReport{models.DependentScores: 12}

	_, err := f.setupSvc.Update(ctx, setupFull, dto.UpdateAssessmentSetupRequest{Name: "Full Term Assessment", TypeIDs: []string{typeMidterm, typeQuiz}})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDependency))

	renamed, err := f.setupSvc.Update(ctx, setupFull, dto.UpdateAssessmentSetupRequest{Name: "Full Term", TypeIDs: []string{typeMidterm, typeFinal}})
	require.NoError(t, err)
	assert.Equal(t, "Full Term", renamed.Name)
	assert.False(t, f.setups.replacedTypes)

	f.setups.deps[setupFull] = models.DependencyReport{models.DependentGSAs: 1}
	replaced, err := f.setupSvc.Update(ctx, setupFull, dto.UpdateAssessmentSetupRequest{Name: "Full Term", TypeIDs: []string{typeMidterm, typeQuiz}})
	require.NoError(t, err)
	assert.True(t, f.setups.replacedTypes)
	assert.Equal(t, []string{typeMidterm, typeQuiz}, replaced.TypeIDs())
}

func TestAssessmentSetupDeleteGuardsReferences(t *testing.T) {
	f := newAssessmentFixture(t)
	ctx := context.Background()
	f.setups.deps[setupFull] = models.DependencyReport{models.DependentGSAs: 1}

	err := f.setupSvc.Delete(ctx, setupFull)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDependency))
	assert.Contains(t, err.Error(), models.DependentGSAs)

	delete(f.setups.deps, setupFull)
	require.NoError(t, f.setupSvc.Delete(ctx, setupFull))
	assert.True(t, appErrors.Is(f.setupSvc.Delete(ctx, setupFull), appErrors.ErrNotFound))
}

func TestAssessmentSetupDefault(t *testing.T) {
	f := newAssessmentFixture(t)
	ctx := context.Background()

	setup, err := f.setupSvc.Default(ctx)
	require.NoError(t, err)
	assert.Equal(t, setupFull, setup.ID)

	custom := NewAssessmentSetupService(f.setups, f.types, nil, "Semester Only", nil, nil)
	_, err = custom.Default(ctx)
	assert.True(t, appErrors.Is(err, appErrors.ErrNoSetup))
}

func TestAssessmentSetupGetReadsThroughCache(t *testing.T) {
	f := newAssessmentFixture(t)
	ctx := context.Background()
	repo := &memoryCacheRepo{items: map[string][]byte{}}
	cacheSvc := NewCacheService(repo, f.metrics, time.Minute, nil, true)
	svc := NewAssessmentSetupService(f.setups, f.types, cacheSvc, "", nil, nil)

	setup, hit, err := svc.GetCached(ctx, setupFull)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, setup.Types, 2)
	assert.Contains(t, repo.items, cache.SetupKey(setupFull))

	setup, hit, err = svc.GetCached(ctx, setupFull)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{typeMidterm, typeFinal}, setup.TypeIDs())
	assert.Equal(t, 60.0, setup.Types[1].Weight)

	_, err = svc.Update(ctx, setupFull, dto.UpdateAssessmentSetupRequest{Name: "Renamed"})
	require.NoError(t, err)
	assert.NotContains(t, repo.items, cache.SetupKey(setupFull))

	_, _, err = svc.GetCached(ctx, "setup-missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
