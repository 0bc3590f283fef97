package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-assessment-api/internal/models"
)

const enrollmentColumns = "id, student_id, grade_id, term_id, joined_at, left_at, status"

// EnrollmentRepository reads grade enrollments owned by the student registry.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindActiveByStudent returns the student's current active enrollment.
func (r *EnrollmentRepository) FindActiveByStudent(ctx context.Context, studentID string) (*models.Enrollment, error) {
	query := "SELECT " + enrollmentColumns + " FROM enrollments WHERE student_id = $1 AND status = $2 AND left_at IS NULL ORDER BY joined_at DESC LIMIT 1"
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, models.EnrollmentStatusActive); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListActiveByStudents returns the current active enrollment of each listed student that has one.
func (r *EnrollmentRepository) ListActiveByStudents(ctx context.Context, studentIDs []string) ([]models.Enrollment, error) {
	if len(studentIDs) == 0 {
		return []models.Enrollment{}, nil
	}
	query := "SELECT DISTINCT ON (student_id) " + enrollmentColumns + ` FROM enrollments
        WHERE student_id = ANY($1) AND status = $2 AND left_at IS NULL
        ORDER BY student_id, joined_at DESC`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, pq.Array(studentIDs), models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// ListActiveStudentIDsByGrade returns the ids of students actively enrolled in a grade.
func (r *EnrollmentRepository) ListActiveStudentIDsByGrade(ctx context.Context, gradeID string) ([]string, error) {
	const query = `SELECT DISTINCT e.student_id FROM enrollments e
        JOIN students s ON s.id = e.student_id
        WHERE e.grade_id = $1 AND e.status = $2 AND e.left_at IS NULL AND s.active = TRUE
        ORDER BY e.student_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, gradeID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list grade enrollments: %w", err)
	}
	return ids, nil
}
