package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-assessment-api/internal/models"
)

const assessmentTypeColumns = "id, name, weight, description, created_at, updated_at"

// AssessmentTypeRepository handles persistence of the assessment type catalog.
type AssessmentTypeRepository struct {
	db *sqlx.DB
}

// NewAssessmentTypeRepository constructs the repository.
func NewAssessmentTypeRepository(db *sqlx.DB) *AssessmentTypeRepository {
	return &AssessmentTypeRepository{db: db}
}

// List returns assessment types ordered by name.
func (r *AssessmentTypeRepository) List(ctx context.Context, filter models.AssessmentTypeFilter) ([]models.AssessmentType, int, error) {
	base := "FROM assessment_types WHERE 1=1"
	var args []interface{}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND LOWER(name) LIKE $%d", len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY name ASC LIMIT %d OFFSET %d", assessmentTypeColumns, base, limit, offset)
	var types []models.AssessmentType
	if err := r.db.SelectContext(ctx, &types, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assessment types: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count assessment types: %w", err)
	}
	return types, total, nil
}

// FindByID returns a type by id.
func (r *AssessmentTypeRepository) FindByID(ctx context.Context, id string) (*models.AssessmentType, error) {
	query := "SELECT " + assessmentTypeColumns + " FROM assessment_types WHERE id = $1"
	var t models.AssessmentType
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		return nil, err
	}
	return &t, nil
}

// FindByIDs returns every type whose id is in ids. Order is unspecified.
func (r *AssessmentTypeRepository) FindByIDs(ctx context.Context, ids []string) ([]models.AssessmentType, error) {
	if len(ids) == 0 {
		return []models.AssessmentType{}, nil
	}
	query := "SELECT " + assessmentTypeColumns + " FROM assessment_types WHERE id = ANY($1)"
	var types []models.AssessmentType
	if err := r.db.SelectContext(ctx, &types, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find assessment types: %w", err)
	}
	return types, nil
}

// ExistsByName checks case-insensitive name uniqueness.
func (r *AssessmentTypeRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	query := "SELECT 1 FROM assessment_types WHERE LOWER(name) = LOWER($1)"
	args := []interface{}{name}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check assessment type name: %w", err)
	}
	return true, nil
}

// Create persists a new type.
func (r *AssessmentTypeRepository) Create(ctx context.Context, t *models.AssessmentType) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	const query = `INSERT INTO assessment_types (id, name, weight, description, created_at, updated_at)
        VALUES (:id, :name, :weight, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("create assessment type: %w", mapWriteError(err))
	}
	return nil
}

// Update modifies a type.
func (r *AssessmentTypeRepository) Update(ctx context.Context, t *models.AssessmentType) error {
	t.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assessment_types SET name = :name, weight = :weight, description = :description, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("update assessment type: %w", mapWriteError(err))
	}
	return nil
}

// Delete removes a type.
func (r *AssessmentTypeRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM assessment_types WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete assessment type: %w", err)
	}
	return nil
}

// CountDependencies reports setups and gate records that reference the type.
func (r *AssessmentTypeRepository) CountDependencies(ctx context.Context, id string) (models.DependencyReport, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM assessment_setup_types WHERE type_id = $1) AS setups,
        (SELECT COUNT(*) FROM conducted_assessments WHERE $1::uuid = ANY(conducted_stages)) AS conducted`
	var counts struct {
		Setups    int `db:"setups"`
		Conducted int `db:"conducted"`
	}
	if err := r.db.GetContext(ctx, &counts, query, id); err != nil {
		return nil, fmt.Errorf("count assessment type dependencies: %w", err)
	}
	return models.DependencyReport{
		models.DependentSetups:    counts.Setups,
		models.DependentConducted: counts.Conducted,
	}, nil
}
