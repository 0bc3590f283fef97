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

const assessmentSetupColumns = "id, name, description, created_at, updated_at"

// AssessmentSetupRepository persists setups and their ordered type lists.
type AssessmentSetupRepository struct {
	db *sqlx.DB
}

// NewAssessmentSetupRepository constructs the repository.
func NewAssessmentSetupRepository(db *sqlx.DB) *AssessmentSetupRepository {
	return &AssessmentSetupRepository{db: db}
}

// List returns setups with their types.
func (r *AssessmentSetupRepository) List(ctx context.Context, filter models.AssessmentSetupFilter) ([]models.AssessmentSetup, int, error) {
	base := "FROM assessment_setups WHERE 1=1"
	var args []interface{}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND LOWER(name) LIKE $%d", len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY name ASC LIMIT %d OFFSET %d", assessmentSetupColumns, base, limit, offset)
	var setups []models.AssessmentSetup
	if err := r.db.SelectContext(ctx, &setups, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assessment setups: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count assessment setups: %w", err)
	}

	if len(setups) == 0 {
		return setups, total, nil
	}
	ids := make([]string, len(setups))
	for i := range setups {
		ids[i] = setups[i].ID
	}
	types, err := r.loadTypes(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range setups {
		setups[i].Types = types[setups[i].ID]
	}
	return setups, total, nil
}

// FindByID returns a setup with its ordered types.
func (r *AssessmentSetupRepository) FindByID(ctx context.Context, id string) (*models.AssessmentSetup, error) {
	return r.findOne(ctx, "SELECT "+assessmentSetupColumns+" FROM assessment_setups WHERE id = $1", id)
}

// FindByName returns a setup by exact name.
func (r *AssessmentSetupRepository) FindByName(ctx context.Context, name string) (*models.AssessmentSetup, error) {
	return r.findOne(ctx, "SELECT "+assessmentSetupColumns+" FROM assessment_setups WHERE name = $1", name)
}

func (r *AssessmentSetupRepository) findOne(ctx context.Context, query string, arg string) (*models.AssessmentSetup, error) {
	var setup models.AssessmentSetup
	if err := r.db.GetContext(ctx, &setup, query, arg); err != nil {
		return nil, err
	}
	types, err := r.loadTypes(ctx, []string{setup.ID})
	if err != nil {
		return nil, err
	}
	setup.Types = types[setup.ID]
	return &setup, nil
}

// ExistsByName checks case-insensitive name uniqueness.
func (r *AssessmentSetupRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	query := "SELECT 1 FROM assessment_setups WHERE LOWER(name) = LOWER($1)"
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
		return false, fmt.Errorf("check assessment setup name: %w", err)
	}
	return true, nil
}

// Create inserts a setup together with its ordered types.
func (r *AssessmentSetupRepository) Create(ctx context.Context, setup *models.AssessmentSetup) error {
	if setup.ID == "" {
		setup.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if setup.CreatedAt.IsZero() {
		setup.CreatedAt = now
	}
	setup.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assessment setup tx: %w", err)
	}
	const insertSetup = `INSERT INTO assessment_setups (id, name, description, created_at, updated_at)
        VALUES (:id, :name, :description, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertSetup, setup); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert assessment setup: %w", mapWriteError(err))
	}
	if err := r.replaceTypesTx(ctx, tx, setup.ID, setup.Types); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assessment setup: %w", err)
	}
	return nil
}

// Update modifies setup metadata and, when replaceTypes is set, rewrites the type list.
func (r *AssessmentSetupRepository) Update(ctx context.Context, setup *models.AssessmentSetup, replaceTypes bool) error {
	setup.UpdatedAt = time.Now().UTC()
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assessment setup tx: %w", err)
	}
	const updateSetup = `UPDATE assessment_setups SET name = :name, description = :description, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, updateSetup, setup); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("update assessment setup: %w", mapWriteError(err))
	}
	if replaceTypes {
		if err := r.replaceTypesTx(ctx, tx, setup.ID, setup.Types); err != nil {
			tx.Rollback() //nolint:errcheck
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assessment setup: %w", err)
	}
	return nil
}

// Delete removes a setup; its type rows cascade.
func (r *AssessmentSetupRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM assessment_setups WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete assessment setup: %w", err)
	}
	return nil
}

// CountDependencies reports GSAs, marksheets and gate records that hang off the setup.
func (r *AssessmentSetupRepository) CountDependencies(ctx context.Context, id string) (models.DependencyReport, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM grade_subject_assessments WHERE setup_id = $1) AS gsas,
        (SELECT COUNT(*) FROM assessment_scores WHERE setup_id = $1) AS scores,
        (SELECT COUNT(*) FROM conducted_assessments ca
            JOIN grade_subject_assessments g ON g.id = ca.gsa_id
            WHERE g.setup_id = $1) AS conducted`
	var counts struct {
		GSAs      int `db:"gsas"`
		Scores    int `db:"scores"`
		Conducted int `db:"conducted"`
	}
	if err := r.db.GetContext(ctx, &counts, query, id); err != nil {
		return nil, fmt.Errorf("count assessment setup dependencies: %w", err)
	}
	return models.DependencyReport{
		models.DependentGSAs:      counts.GSAs,
		models.DependentScores:    counts.Scores,
		models.DependentConducted: counts.Conducted,
	}, nil
}

func (r *AssessmentSetupRepository) replaceTypesTx(ctx context.Context, tx *sqlx.Tx, setupID string, types []models.SetupType) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM assessment_setup_types WHERE setup_id = $1", setupID); err != nil {
		return fmt.Errorf("clear assessment setup types: %w", err)
	}
	const insertType = `INSERT INTO assessment_setup_types (setup_id, type_id, position) VALUES ($1, $2, $3)`
	for i := range types {
		types[i].SetupID = setupID
		types[i].Position = i
		if _, err := tx.ExecContext(ctx, insertType, setupID, types[i].TypeID, i); err != nil {
			return fmt.Errorf("insert assessment setup type: %w", err)
		}
	}
	return nil
}

func (r *AssessmentSetupRepository) loadTypes(ctx context.Context, setupIDs []string) (map[string][]models.SetupType, error) {
	const query = `SELECT st.setup_id, st.type_id, t.name, t.weight, st.position
        FROM assessment_setup_types st
        JOIN assessment_types t ON t.id = st.type_id
        WHERE st.setup_id = ANY($1)
        ORDER BY st.setup_id, st.position`
	var rows []models.SetupType
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(setupIDs)); err != nil {
		return nil, fmt.Errorf("load assessment setup types: %w", err)
	}
	grouped := make(map[string][]models.SetupType, len(setupIDs))
	for _, row := range rows {
		grouped[row.SetupID] = append(grouped[row.SetupID], row)
	}
	return grouped, nil
}
