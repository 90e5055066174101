package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evaldesk/copyflow/internal/app/models"
)

// Teacher error types
var (
	ErrTeacherNotFound = errors.New("teacher not found")
)

// TeacherRepository resolves evaluator references against the teacher
// directory owned by the hosting application.
type TeacherRepository struct {
	db *pgxpool.Pool
}

// NewTeacherRepository creates a new teacher repository
func NewTeacherRepository(db *pgxpool.Pool) *TeacherRepository {
	return &TeacherRepository{
		db: db,
	}
}

// GetBySapID retrieves a teacher by employee identifier, or nil when no
// teacher matches.
func (r *TeacherRepository) GetBySapID(ctx context.Context, sapID string) (*models.Teacher, error) {
	query := `
		SELECT id, sap_id, name, email, phone, created_at
		FROM teachers
		WHERE sap_id = $1
	`

	var teacher models.Teacher
	err := r.db.QueryRow(ctx, query, sapID).Scan(
		&teacher.ID,
		&teacher.SapID,
		&teacher.Name,
		&teacher.Email,
		&teacher.Phone,
		&teacher.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error retrieving teacher: %w", err)
	}

	return &teacher, nil
}

// GetByID retrieves a teacher by internal ID, or nil when absent.
func (r *TeacherRepository) GetByID(ctx context.Context, id int64) (*models.Teacher, error) {
	query := `
		SELECT id, sap_id, name, email, phone, created_at
		FROM teachers
		WHERE id = $1
	`

	var teacher models.Teacher
	err := r.db.QueryRow(ctx, query, id).Scan(
		&teacher.ID,
		&teacher.SapID,
		&teacher.Name,
		&teacher.Email,
		&teacher.Phone,
		&teacher.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error retrieving teacher: %w", err)
	}

	return &teacher, nil
}
