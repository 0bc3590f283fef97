package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-assessment-api/internal/models"
)

const assessmentScoreColumns = "id, student_id, gsa_id, setup_id, scores, result, created_at, updated_at"

// AssessmentScoreRepository persists student marksheets.
type AssessmentScoreRepository struct {
	db *sqlx.DB
}

// NewAssessmentScoreRepository constructs the repository.
func NewAssessmentScoreRepository(db *sqlx.DB) *AssessmentScoreRepository {
	return &AssessmentScoreRepository{db: db}
}

// List returns marksheets matching the filter.
func (r *AssessmentScoreRepository) List(ctx context.Context, filter models.AssessmentScoreFilter) ([]models.AssessmentScore, int, error) {
	base := "FROM assessment_scores WHERE 1=1"
	var args []interface{}
	if filter.GSAID != "" {
		base += fmt.Sprintf(" AND gsa_id = $%d", len(args)+1)
		args = append(args, filter.GSAID)
	}
	if filter.StudentID != "" {
		base += fmt.Sprintf(" AND student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.SubjectID != "" {
		base += fmt.Sprintf(" AND gsa_id IN (SELECT id FROM grade_subject_assessments WHERE subject_id = $%d)", len(args)+1)
		args = append(args, filter.SubjectID)
	}
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at ASC, id ASC LIMIT %d OFFSET %d", assessmentScoreColumns, base, limit, offset)
	var items []models.AssessmentScore
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assessment scores: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count assessment scores: %w", err)
	}
	return items, total, nil
}

// ListByGSA returns every marksheet of a GSA.
func (r *AssessmentScoreRepository) ListByGSA(ctx context.Context, gsaID string) ([]models.AssessmentScore, error) {
	query := "SELECT " + assessmentScoreColumns + " FROM assessment_scores WHERE gsa_id = $1 ORDER BY created_at ASC, id ASC"
	var items []models.AssessmentScore
	if err := r.db.SelectContext(ctx, &items, query, gsaID); err != nil {
		return nil, fmt.Errorf("list gsa assessment scores: %w", err)
	}
	return items, nil
}

// FindByID returns a marksheet by id.
func (r *AssessmentScoreRepository) FindByID(ctx context.Context, id string) (*models.AssessmentScore, error) {
	query := "SELECT " + assessmentScoreColumns + " FROM assessment_scores WHERE id = $1"
	var score models.AssessmentScore
	if err := r.db.GetContext(ctx, &score, query, id); err != nil {
		return nil, err
	}
	return &score, nil
}

// FindByStudentAndGSA returns a student's marksheet for a GSA.
func (r *AssessmentScoreRepository) FindByStudentAndGSA(ctx context.Context, studentID, gsaID string) (*models.AssessmentScore, error) {
	query := "SELECT " + assessmentScoreColumns + " FROM assessment_scores WHERE student_id = $1 AND gsa_id = $2"
	var score models.AssessmentScore
	if err := r.db.GetContext(ctx, &score, query, studentID, gsaID); err != nil {
		return nil, err
	}
	return &score, nil
}

// ExistingStudents returns the subset of studentIDs that already have a marksheet for the GSA.
func (r *AssessmentScoreRepository) ExistingStudents(ctx context.Context, gsaID string, studentIDs []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(studentIDs) == 0 {
		return existing, nil
	}
	const query = `SELECT student_id FROM assessment_scores WHERE gsa_id = $1 AND student_id = ANY($2)`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, gsaID, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("find existing assessment scores: %w", err)
	}
	for _, id := range ids {
		existing[id] = true
	}
	return existing, nil
}

// CreateIfAbsent inserts the marksheet unless one exists for (student, gsa). It reports whether a row was written.
func (r *AssessmentScoreRepository) CreateIfAbsent(ctx context.Context, score *models.AssessmentScore) (bool, error) {
	if score.ID == "" {
		score.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if score.CreatedAt.IsZero() {
		score.CreatedAt = now
	}
	score.UpdatedAt = now
	const query = `INSERT INTO assessment_scores (id, student_id, gsa_id, setup_id, scores, result, created_at, updated_at)
        VALUES (:id, :student_id, :gsa_id, :setup_id, :scores, :result, :created_at, :updated_at)
        ON CONFLICT (student_id, gsa_id) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, score)
	if err != nil {
		return false, fmt.Errorf("create assessment score: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create assessment score: %w", err)
	}
	return affected == 1, nil
}

// Update writes the raw scores and derived result of a marksheet.
func (r *AssessmentScoreRepository) Update(ctx context.Context, score *models.AssessmentScore) error {
	score.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assessment_scores SET scores = :scores, result = :result, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, score); err != nil {
		return fmt.Errorf("update assessment score: %w", err)
	}
	return nil
}
