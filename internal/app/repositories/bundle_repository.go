package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evaldesk/copyflow/internal/app/models"
	"github.com/evaldesk/copyflow/internal/pkg/dberrors"
)

// Bundle error types
var (
	ErrBundleNotFound = errors.New("bundle not found")
	ErrCopyNotFound   = errors.New("copy not found")
	ErrCopyDuplicate  = errors.New("copy with this batch and program already exists in the bundle")
)

// BundleRepository handles database operations for copy bundles
type BundleRepository struct {
	db *pgxpool.Pool
}

// NewBundleRepository creates a new bundle repository
func NewBundleRepository(db *pgxpool.Pool) *BundleRepository {
	return &BundleRepository{
		db: db,
	}
}

const bundleColumns = `id, date_of_exam, evaluation_mode, evaluator_id, subject_code, subject_name, subject_school, room_no, created_at, updated_at`

func scanBundle(row pgx.Row) (*models.CopyBundle, error) {
	var bundle models.CopyBundle
	err := row.Scan(
		&bundle.ID,
		&bundle.DateOfExam,
		&bundle.EvaluationMode,
		&bundle.EvaluatorID,
		&bundle.SubjectCode,
		&bundle.SubjectName,
		&bundle.SubjectSchool,
		&bundle.RoomNo,
		&bundle.CreatedAt,
		&bundle.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &bundle, nil
}

// Create inserts a new bundle together with its initial copies in one
// transaction.
func (r *BundleRepository) Create(ctx context.Context, bundle *models.CopyBundle) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO copy_bundles (id, date_of_exam, evaluation_mode, evaluator_id, subject_code, subject_name, subject_school, room_no)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err = tx.QueryRow(ctx, query,
		bundle.ID, bundle.DateOfExam, bundle.EvaluationMode, bundle.EvaluatorID,
		bundle.SubjectCode, bundle.SubjectName, bundle.SubjectSchool, bundle.RoomNo,
	).Scan(&bundle.CreatedAt, &bundle.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating bundle: %w", err)
	}

	for i := range bundle.Copies {
		if err := insertCopy(ctx, tx, bundle.ID, &bundle.Copies[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing bundle creation: %w", err)
	}
	return nil
}

// AppendCopy adds a copy to an existing bundle. A duplicate (batch, program)
// pair surfaces as ErrCopyDuplicate via the table's unique constraint.
func (r *BundleRepository) AppendCopy(ctx context.Context, bundleID uuid.UUID, copy *models.Copy) error {
	if err := insertCopy(ctx, r.db, bundleID, copy); err != nil {
		return err
	}
	return r.touchBundle(ctx, bundleID)
}

type execQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertCopy(ctx context.Context, q execQuerier, bundleID uuid.UUID, copy *models.Copy) error {
	query := `
		INSERT INTO bundle_copies (bundle_id, batch, program, no_of_students, status, available_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	copy.BundleID = bundleID
	err := q.QueryRow(ctx, query,
		bundleID, copy.Batch, copy.Program, copy.NoOfStudents, copy.Status, copy.AvailableDate,
	).Scan(&copy.ID)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "bundle_copies_bundle_id_batch_program_key") {
			return ErrCopyDuplicate
		}
		return fmt.Errorf("error inserting copy: %w", err)
	}
	return nil
}

func (r *BundleRepository) touchBundle(ctx context.Context, bundleID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE copy_bundles SET updated_at = $1 WHERE id = $2`, time.Now(), bundleID)
	if err != nil {
		return fmt.Errorf("error updating bundle timestamp: %w", err)
	}
	return nil
}

// GetByKey retrieves the bundle matching the aggregate identifying key, or
// nil when no such bundle exists.
func (r *BundleRepository) GetByKey(ctx context.Context, dateOfExam time.Time, subjectCode, subjectSchool string, evaluatorID int64) (*models.CopyBundle, error) {
	query := `
		SELECT ` + bundleColumns + `
		FROM copy_bundles
		WHERE date_of_exam = $1 AND subject_code = $2 AND subject_school = $3 AND evaluator_id = $4
	`

	bundle, err := scanBundle(r.db.QueryRow(ctx, query, dateOfExam, subjectCode, subjectSchool, evaluatorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error retrieving bundle by key: %w", err)
	}

	if err := r.loadCopies(ctx, bundle); err != nil {
		return nil, err
	}
	return bundle, nil
}

// GetByID retrieves a bundle with its copies, or nil when absent.
func (r *BundleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CopyBundle, error) {
	query := `
		SELECT ` + bundleColumns + `
		FROM copy_bundles
		WHERE id = $1
	`

	bundle, err := scanBundle(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error retrieving bundle: %w", err)
	}

	if err := r.loadCopies(ctx, bundle); err != nil {
		return nil, err
	}
	return bundle, nil
}

// GetAll retrieves all bundles with their copies.
func (r *BundleRepository) GetAll(ctx context.Context) ([]*models.CopyBundle, error) {
	query := `
		SELECT ` + bundleColumns + `
		FROM copy_bundles
		ORDER BY created_at
	`
	return r.queryBundles(ctx, query)
}

// GetByEvaluator retrieves all bundles allotted to one evaluator.
func (r *BundleRepository) GetByEvaluator(ctx context.Context, evaluatorID int64) ([]*models.CopyBundle, error) {
	query := `
		SELECT ` + bundleColumns + `
		FROM copy_bundles
		WHERE evaluator_id = $1
		ORDER BY created_at
	`
	return r.queryBundles(ctx, query, evaluatorID)
}

func (r *BundleRepository) queryBundles(ctx context.Context, query string, args ...any) ([]*models.CopyBundle, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bundles []*models.CopyBundle
	for rows.Next() {
		bundle, err := scanBundle(rows)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, bundle)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, bundle := range bundles {
		if err := r.loadCopies(ctx, bundle); err != nil {
			return nil, err
		}
	}
	return bundles, nil
}

// loadCopies populates bundle.Copies in insertion order.
func (r *BundleRepository) loadCopies(ctx context.Context, bundle *models.CopyBundle) error {
	query := `
		SELECT id, bundle_id, batch, program, no_of_students, status,
		       available_date, allotted_date, start_date, submit_date,
		       answersheet, award_softcopy, award_hardcopy
		FROM bundle_copies
		WHERE bundle_id = $1
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, bundle.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	bundle.Copies = nil
	for rows.Next() {
		var copy models.Copy
		if err := rows.Scan(
			&copy.ID,
			&copy.BundleID,
			&copy.Batch,
			&copy.Program,
			&copy.NoOfStudents,
			&copy.Status,
			&copy.AvailableDate,
			&copy.AllottedDate,
			&copy.StartDate,
			&copy.SubmitDate,
			&copy.Answersheet,
			&copy.AwardSoftcopy,
			&copy.AwardHardcopy,
		); err != nil {
			return err
		}
		bundle.Copies = append(bundle.Copies, copy)
	}
	return rows.Err()
}

// UpdateCopy persists a copy's status, lifecycle timestamps and artifact
// flags.
func (r *BundleRepository) UpdateCopy(ctx context.Context, copy *models.Copy) error {
	query := `
		UPDATE bundle_copies
		SET status = $1, allotted_date = $2, start_date = $3, submit_date = $4,
		    answersheet = $5, award_softcopy = $6, award_hardcopy = $7
		WHERE id = $8
	`

	cmdTag, err := r.db.Exec(ctx, query,
		copy.Status, copy.AllottedDate, copy.StartDate, copy.SubmitDate,
		copy.Answersheet, copy.AwardSoftcopy, copy.AwardHardcopy, copy.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating copy: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCopyNotFound
	}

	return r.touchBundle(ctx, copy.BundleID)
}

// Delete removes a bundle and, via cascade, its copies.
func (r *BundleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM copy_bundles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting bundle: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrBundleNotFound
	}
	return nil
}
