package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-assessment-api/internal/models"
)

var assessmentTypeRowColumns = []string{"id", "name", "weight", "description", "created_at", "updated_at"}

func TestAssessmentTypeRepositoryListCapsPageSize(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssessmentTypeRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM assessment_types WHERE 1=1 AND LOWER(name) LIKE $1 ORDER BY name ASC LIMIT 50 OFFSET 50")).
		WithArgs("%exam%").
		WillReturnRows(sqlmock.NewRows(assessmentTypeRowColumns).AddRow("type-1", "Exam", 60.0, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM assessment_types")).
		WithArgs("%exam%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(51))

	items, total, err := repo.List(context.Background(), models.AssessmentTypeFilter{Search: "Exam", Page: 2, PageSize: 500})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 51, total)
	assert.Equal(t, 60.0, items[0].Weight)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssessmentTypeRepositoryFindByIDsEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssessmentTypeRepository(db)

	items, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, items)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssessmentTypeRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssessmentTypeRepository(db)

	mock.ExpectExec("INSERT INTO assessment_types").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.AssessmentType{Name: "Quiz", Weight: 10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateKey))
}

func TestAssessmentTypeRepositoryCountDependencies(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssessmentTypeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM assessment_setup_types WHERE type_id = $1")).
		WithArgs("type-1").
		WillReturnRows(sqlmock.NewRows([]string{"setups", "conducted"}).AddRow(2, 0))

	report, err := repo.CountDependencies(context.Background(), "type-1")
	require.NoError(t, err)
	assert.Equal(t, []string{models.DependentSetups}, report.Blocking())
	require.NoError(t, mock.ExpectationsWereMet())
}
