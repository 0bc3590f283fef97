package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-assessment-api/internal/models"
)

const conductedColumns = "id, gsa_id, academic_term_id, conducted_stages, status, created_at, updated_at"

// ConductedAssessmentRepository persists per-term stage gates.
type ConductedAssessmentRepository struct {
	db *sqlx.DB
}

// NewConductedAssessmentRepository constructs the repository.
func NewConductedAssessmentRepository(db *sqlx.DB) *ConductedAssessmentRepository {
	return &ConductedAssessmentRepository{db: db}
}

// List returns gate records matching the filter, newest first.
func (r *ConductedAssessmentRepository) List(ctx context.Context, filter models.ConductedAssessmentFilter) ([]models.ConductedAssessment, int, error) {
	base := "FROM conducted_assessments WHERE 1=1"
	var args []interface{}
	if filter.GSAID != "" {
		base += fmt.Sprintf(" AND gsa_id = $%d", len(args)+1)
		args = append(args, filter.GSAID)
	}
	if filter.TermID != "" {
		base += fmt.Sprintf(" AND academic_term_id = $%d", len(args)+1)
		args = append(args, filter.TermID)
	}
	if filter.Status != "" {
		base += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY updated_at DESC LIMIT %d OFFSET %d", conductedColumns, base, limit, offset)
	var items []models.ConductedAssessment
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list conducted assessments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count conducted assessments: %w", err)
	}
	return items, total, nil
}

// FindByID returns a gate record by id.
func (r *ConductedAssessmentRepository) FindByID(ctx context.Context, id string) (*models.ConductedAssessment, error) {
	query := "SELECT " + conductedColumns + " FROM conducted_assessments WHERE id = $1"
	var rec models.ConductedAssessment
	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindByGSAAndTerm returns the gate record of a GSA for one term.
func (r *ConductedAssessmentRepository) FindByGSAAndTerm(ctx context.Context, gsaID, termID string) (*models.ConductedAssessment, error) {
	query := "SELECT " + conductedColumns + " FROM conducted_assessments WHERE gsa_id = $1 AND academic_term_id = $2"
	var rec models.ConductedAssessment
	if err := r.db.GetContext(ctx, &rec, query, gsaID, termID); err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindLatestByGSA returns the most recently updated gate record of a GSA.
func (r *ConductedAssessmentRepository) FindLatestByGSA(ctx context.Context, gsaID string) (*models.ConductedAssessment, error) {
	query := "SELECT " + conductedColumns + " FROM conducted_assessments WHERE gsa_id = $1 ORDER BY updated_at DESC LIMIT 1"
	var rec models.ConductedAssessment
	if err := r.db.GetContext(ctx, &rec, query, gsaID); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create inserts a new gate record. An existing (gsa, term) pair returns ErrDuplicateKey.
func (r *ConductedAssessmentRepository) Create(ctx context.Context, rec *models.ConductedAssessment) error {
	prepareConducted(rec)
	const query = `INSERT INTO conducted_assessments (id, gsa_id, academic_term_id, conducted_stages, status, created_at, updated_at)
        VALUES (:id, :gsa_id, :academic_term_id, :conducted_stages, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("create conducted assessment: %w", mapWriteError(err))
	}
	return nil
}

// CreateIfAbsent inserts rec unless a record for its (gsa, term) pair exists. It reports whether a row was written.
func (r *ConductedAssessmentRepository) CreateIfAbsent(ctx context.Context, rec *models.ConductedAssessment) (bool, error) {
	prepareConducted(rec)
	const query = `INSERT INTO conducted_assessments (id, gsa_id, academic_term_id, conducted_stages, status, created_at, updated_at)
        VALUES (:id, :gsa_id, :academic_term_id, :conducted_stages, :status, :created_at, :updated_at)
        ON CONFLICT (gsa_id, academic_term_id) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, rec)
	if err != nil {
		return false, fmt.Errorf("ensure conducted assessment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ensure conducted assessment: %w", err)
	}
	return affected == 1, nil
}

// AppendStage appends typeID to the gate only when it still holds expectedCount stages.
// It reports false when another writer advanced the gate first.
func (r *ConductedAssessmentRepository) AppendStage(ctx context.Context, id, typeID string, expectedCount int, status models.ConductedStatus) (bool, error) {
	const query = `UPDATE conducted_assessments
        SET conducted_stages = array_append(conducted_stages, $2::uuid), status = $3, updated_at = $4
        WHERE id = $1 AND cardinality(conducted_stages) = $5`
	res, err := r.db.ExecContext(ctx, query, id, typeID, status, time.Now().UTC(), expectedCount)
	if err != nil {
		return false, fmt.Errorf("append conducted stage: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("append conducted stage: %w", err)
	}
	return affected == 1, nil
}

func prepareConducted(rec *models.ConductedAssessment) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if rec.ConductedStages == nil {
		rec.ConductedStages = []string{}
	}
	if rec.Status == "" {
		rec.Status = models.ConductedStatusPlanned
	}
}
