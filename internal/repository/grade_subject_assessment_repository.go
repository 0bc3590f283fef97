package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-assessment-api/internal/models"
)

const gsaColumns = "id, grade_id, subject_id, setup_id, created_at, updated_at"

// GradeSubjectAssessmentRepository persists grade+subject bindings.
type GradeSubjectAssessmentRepository struct {
	db *sqlx.DB
}

// NewGradeSubjectAssessmentRepository constructs the repository.
func NewGradeSubjectAssessmentRepository(db *sqlx.DB) *GradeSubjectAssessmentRepository {
	return &GradeSubjectAssessmentRepository{db: db}
}

// List returns GSAs with grade, subject and setup names.
func (r *GradeSubjectAssessmentRepository) List(ctx context.Context, filter models.GSAFilter) ([]models.GradeSubjectAssessmentDetail, int, error) {
	base := `FROM grade_subject_assessments g
LEFT JOIN grades gr ON gr.id = g.grade_id
LEFT JOIN subjects s ON s.id = g.subject_id
LEFT JOIN assessment_setups a ON a.id = g.setup_id
WHERE 1=1`
	var args []interface{}
	if filter.GradeID != "" {
		base += fmt.Sprintf(" AND g.grade_id = $%d", len(args)+1)
		args = append(args, filter.GradeID)
	}
	if filter.SubjectID != "" {
		base += fmt.Sprintf(" AND g.subject_id = $%d", len(args)+1)
		args = append(args, filter.SubjectID)
	}
	if filter.SetupID != "" {
		base += fmt.Sprintf(" AND g.setup_id = $%d", len(args)+1)
		args = append(args, filter.SetupID)
	}
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT g.id, g.grade_id, g.subject_id, g.setup_id, g.created_at, g.updated_at,
        COALESCE(gr.name, '') AS grade_name, COALESCE(s.name, '') AS subject_name, COALESCE(a.name, '') AS setup_name
        %s ORDER BY g.created_at DESC LIMIT %d OFFSET %d`, base, limit, offset)
	var items []models.GradeSubjectAssessmentDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list grade subject assessments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count grade subject assessments: %w", err)
	}
	return items, total, nil
}

// FindByID returns a GSA by id.
func (r *GradeSubjectAssessmentRepository) FindByID(ctx context.Context, id string) (*models.GradeSubjectAssessment, error) {
	query := "SELECT " + gsaColumns + " FROM grade_subject_assessments WHERE id = $1"
	var gsa models.GradeSubjectAssessment
	if err := r.db.GetContext(ctx, &gsa, query, id); err != nil {
		return nil, err
	}
	return &gsa, nil
}

// FindByGradeAndSubject returns the GSA bound to a grade+subject pair.
func (r *GradeSubjectAssessmentRepository) FindByGradeAndSubject(ctx context.Context, gradeID, subjectID string) (*models.GradeSubjectAssessment, error) {
	query := "SELECT " + gsaColumns + " FROM grade_subject_assessments WHERE grade_id = $1 AND subject_id = $2"
	var gsa models.GradeSubjectAssessment
	if err := r.db.GetContext(ctx, &gsa, query, gradeID, subjectID); err != nil {
		return nil, err
	}
	return &gsa, nil
}

// Exists checks whether the grade+subject pair is already bound.
func (r *GradeSubjectAssessmentRepository) Exists(ctx context.Context, gradeID, subjectID string) (bool, error) {
	const query = "SELECT 1 FROM grade_subject_assessments WHERE grade_id = $1 AND subject_id = $2 LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, gradeID, subjectID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check grade subject assessment: %w", err)
	}
	return true, nil
}

// Create persists a new GSA. A concurrent insert of the same pair returns ErrDuplicateKey.
func (r *GradeSubjectAssessmentRepository) Create(ctx context.Context, gsa *models.GradeSubjectAssessment) error {
	if gsa.ID == "" {
		gsa.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if gsa.CreatedAt.IsZero() {
		gsa.CreatedAt = now
	}
	gsa.UpdatedAt = now
	const query = `INSERT INTO grade_subject_assessments (id, grade_id, subject_id, setup_id, created_at, updated_at)
        VALUES (:id, :grade_id, :subject_id, :setup_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, gsa); err != nil {
		return fmt.Errorf("create grade subject assessment: %w", mapWriteError(err))
	}
	return nil
}

// UpdateSetup rebinds a GSA to another setup.
func (r *GradeSubjectAssessmentRepository) UpdateSetup(ctx context.Context, id, setupID string) error {
	const query = `UPDATE grade_subject_assessments SET setup_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, setupID, time.Now().UTC()); err != nil {
		return fmt.Errorf("update grade subject assessment setup: %w", err)
	}
	return nil
}

// Delete removes a GSA.
func (r *GradeSubjectAssessmentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM grade_subject_assessments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete grade subject assessment: %w", err)
	}
	return nil
}

// CountDependencies reports marksheets and gate records of the GSA.
func (r *GradeSubjectAssessmentRepository) CountDependencies(ctx context.Context, id string) (models.DependencyReport, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM assessment_scores WHERE gsa_id = $1) AS scores,
        (SELECT COUNT(*) FROM conducted_assessments WHERE gsa_id = $1) AS conducted`
	var counts struct {
		Scores    int `db:"scores"`
		Conducted int `db:"conducted"`
	}
	if err := r.db.GetContext(ctx, &counts, query, id); err != nil {
		return nil, fmt.Errorf("count grade subject assessment dependencies: %w", err)
	}
	return models.DependencyReport{
		models.DependentScores:    counts.Scores,
		models.DependentConducted: counts.Conducted,
	}, nil
}
