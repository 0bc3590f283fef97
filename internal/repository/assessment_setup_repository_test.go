package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-assessment-api/internal/models"
)

func TestAssessmentSetupRepositoryCreateWritesOrderedTypes(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssessmentSetupRepository(db)

	setup := &models.AssessmentSetup{
		Name:  "Two Stage",
		Types: []models.SetupType{{TypeID: "type-a"}, {TypeID: "type-b"}},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO assessment_setups").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM assessment_setup_types WHERE setup_id = $1")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO assessment_setup_types").
		WithArgs(sqlmock.AnyArg(), "type-a", 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO assessment_setup_types").
		WithArgs(sqlmock.AnyArg(), "type-b", 1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), setup))
	assert.NotEmpty(t, setup.ID)
	assert.Equal(t, 1, setup.Types[1].Position)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssessmentSetupRepositoryCreateRollsBackOnTypeFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssessmentSetupRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO assessment_setups").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM assessment_setup_types").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO assessment_setup_types").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.AssessmentSetup{Name: "Broken", Types: []models.SetupType{{TypeID: "type-a"}}})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssessmentSetupRepositoryFindByIDLoadsTypes(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssessmentSetupRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM assessment_setups WHERE id = $1")).
		WithArgs("setup-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "created_at", "updated_at"}).
			AddRow("setup-1", "Full Term Assessment", nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM assessment_setup_types st")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"setup_id", "type_id", "name", "weight", "position"}).
			AddRow("setup-1", "type-a", "Continuous Assessment", 40.0, 0).
			AddRow("setup-1", "type-b", "End of Term Exam", 60.0, 1))

	setup, err := repo.FindByID(context.Background(), "setup-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"type-a", "type-b"}, setup.TypeIDs())
	assert.Equal(t, 1, setup.Position("type-b"))
	require.NoError(t, mock.ExpectationsWereMet())
}
