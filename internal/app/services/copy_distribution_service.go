package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/evaldesk/copyflow/internal/app/models"
	"github.com/evaldesk/copyflow/internal/app/models/dto"
	"github.com/evaldesk/copyflow/internal/app/repositories"
	"github.com/evaldesk/copyflow/internal/pkg/apperrors"
	"github.com/evaldesk/copyflow/internal/pkg/keymutex"
	"github.com/evaldesk/copyflow/internal/pkg/workdays"
)

// examDatePattern accepts the dd/mm/yyyy wire format for exam dates.
var examDatePattern = regexp.MustCompile(`^([0-2][0-9]|3[0-1])/((0[0-9])|(1[0-2]))/\d{4}$`)

// isoDate is the canonical storage/display form for exam dates.
const isoDate = "2006-01-02"

// BundleStore is the persistence surface the distribution service uses.
// Implemented by repositories.BundleRepository.
type BundleStore interface {
	Create(ctx context.Context, bundle *models.CopyBundle) error
	AppendCopy(ctx context.Context, bundleID uuid.UUID, copy *models.Copy) error
	GetByKey(ctx context.Context, dateOfExam time.Time, subjectCode, subjectSchool string, evaluatorID int64) (*models.CopyBundle, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.CopyBundle, error)
	GetAll(ctx context.Context) ([]*models.CopyBundle, error)
	GetByEvaluator(ctx context.Context, evaluatorID int64) ([]*models.CopyBundle, error)
	UpdateCopy(ctx context.Context, copy *models.Copy) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TeacherStore resolves evaluator references. Implemented by
// repositories.TeacherRepository.
type TeacherStore interface {
	GetBySapID(ctx context.Context, sapID string) (*models.Teacher, error)
	GetByID(ctx context.Context, id int64) (*models.Teacher, error)
}

// CopyDistributionService owns the copy bundle lifecycle: registering copies
// for distribution, driving status transitions and producing the
// evaluator/administrator views.
type CopyDistributionService struct {
	bundles  BundleStore
	teachers TeacherStore
	locks    *keymutex.KeyMutex
	logger   zerolog.Logger
	now      func() time.Time
}

// NewCopyDistributionService creates a new copy distribution service
func NewCopyDistributionService(bundles BundleStore, teachers TeacherStore, lgr zerolog.Logger) *CopyDistributionService {
	return &CopyDistributionService{
		bundles:  bundles,
		teachers: teachers,
		locks:    keymutex.New(),
		logger:   lgr,
		now:      time.Now,
	}
}

// aggregateKey serializes concurrent writers touching the same bundle
// identity before the bundle has an ID.
func aggregateKey(dateOfExam time.Time, subjectCode, subjectSchool string, evaluatorID int64) string {
	return strings.Join([]string{
		dateOfExam.Format(isoDate),
		subjectCode,
		subjectSchool,
		strconv.FormatInt(evaluatorID, 10),
	}, "|")
}

// parseExamDate validates the dd/mm/yyyy wire format and converts it to the
// canonical calendar date.
func parseExamDate(raw string) (time.Time, error) {
	if !examDatePattern.MatchString(raw) {
		return time.Time{}, apperrors.NewValidationError(
			fmt.Sprintf("Invalid date format for bundle %s. Please use dd/mm/yyyy format.", raw))
	}

	parts := strings.Split(raw, "/")
	day, _ := strconv.Atoi(parts[0])
	month, _ := strconv.Atoi(parts[1])
	year, _ := strconv.Atoi(parts[2])

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// AddBundle registers one copy for distribution. The copy joins the bundle
// identified by (exam date, subject code, subject school, evaluator) when
// one exists, otherwise a new bundle is created around it. A (batch,
// program) pair may appear at most once per bundle.
func (s *CopyDistributionService) AddBundle(ctx context.Context, req dto.AddBundleRequest) error {
	teacher, err := s.teachers.GetBySapID(ctx, req.EvaluatorSap)
	if err != nil {
		return fmt.Errorf("error resolving evaluator: %w", err)
	}
	if teacher == nil {
		return apperrors.NewResourceNotFoundError(apperrors.ErrTeacherNotFound, "Teacher not found")
	}

	dateOfExam, err := parseExamDate(req.DateOfExam)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(aggregateKey(dateOfExam, req.SubjectCode, req.SubjectSchool, teacher.ID))
	defer unlock()

	bundle, err := s.bundles.GetByKey(ctx, dateOfExam, req.SubjectCode, req.SubjectSchool, teacher.ID)
	if err != nil {
		return fmt.Errorf("error looking up bundle: %w", err)
	}

	copy := models.Copy{
		Batch:         req.Batch,
		Program:       req.Program,
		NoOfStudents:  req.NoOfStudents,
		Status:        models.StatusAvailable,
		AvailableDate: s.now(),
	}

	if bundle != nil {
		if bundle.FindCopy(req.Batch, req.Program) != nil {
			return apperrors.NewConflictError("CopyBundle already exists")
		}
		if err := s.bundles.AppendCopy(ctx, bundle.ID, &copy); err != nil {
			if errors.Is(err, repositories.ErrCopyDuplicate) {
				return apperrors.NewConflictError("CopyBundle already exists")
			}
			return fmt.Errorf("error appending copy: %w", err)
		}
		s.logger.Info().Str("bundleId", bundle.ID.String()).Str("batch", req.Batch).Str("program", req.Program).Msg("Copy appended to bundle")
		return nil
	}

	bundle = &models.CopyBundle{
		ID:             uuid.New(),
		DateOfExam:     dateOfExam,
		EvaluationMode: req.EvaluationMode,
		EvaluatorID:    teacher.ID,
		SubjectCode:    req.SubjectCode,
		SubjectName:    req.SubjectName,
		SubjectSchool:  req.SubjectSchool,
		RoomNo:         req.RoomNo,
		Copies:         []models.Copy{copy},
	}
	if err := s.bundles.Create(ctx, bundle); err != nil {
		return fmt.Errorf("error creating bundle: %w", err)
	}
	s.logger.Info().Str("bundleId", bundle.ID.String()).Str("subjectCode", req.SubjectCode).Msg("Copy bundle created")
	return nil
}

// Progress advances one copy a single lifecycle step: AVAILABLE copies
// become ALLOTTED, INPROGRESS copies become SUBMITTED. ALLOTTED copies must
// be accepted by the evaluator instead.
func (s *CopyDistributionService) Progress(ctx context.Context, req dto.ProgressBundleRequest) error {
	bundleID, err := uuid.Parse(req.BundleID)
	if err != nil {
		return apperrors.NewValidationError("Invalid bundle ID")
	}

	unlock := s.locks.Lock(bundleID.String())
	defer unlock()

	copy, err := s.findCopy(ctx, bundleID, req.Batch, req.Program)
	if err != nil {
		return err
	}

	if err := copy.Advance(s.now()); err != nil {
		return err
	}
	if err := s.bundles.UpdateCopy(ctx, copy); err != nil {
		return fmt.Errorf("error persisting transition: %w", err)
	}

	s.logger.Info().Str("bundleId", req.BundleID).Str("batch", req.Batch).Str("status", string(copy.Status)).Msg("Copy progressed")
	return nil
}

// Accept moves an ALLOTTED copy to INPROGRESS on behalf of the requesting
// evaluator. Only the bundle's own evaluator may accept.
func (s *CopyDistributionService) Accept(ctx context.Context, req dto.ProgressBundleRequest, evaluatorSap string) error {
	teacher, err := s.teachers.GetBySapID(ctx, evaluatorSap)
	if err != nil {
		return fmt.Errorf("error resolving evaluator: %w", err)
	}
	if teacher == nil {
		return apperrors.NewResourceNotFoundError(apperrors.ErrTeacherNotFound, "Teacher not found")
	}

	bundleID, err := uuid.Parse(req.BundleID)
	if err != nil {
		return apperrors.NewValidationError("Invalid bundle ID")
	}

	unlock := s.locks.Lock(bundleID.String())
	defer unlock()

	bundle, err := s.bundles.GetByID(ctx, bundleID)
	if err != nil {
		return fmt.Errorf("error retrieving bundle: %w", err)
	}
	if bundle == nil {
		return apperrors.NewResourceNotFoundError(apperrors.ErrBundleNotFound, "Bundle not found")
	}

	if bundle.EvaluatorID != teacher.ID {
		return apperrors.NewForbiddenError("Bundle Not Alloted to Teacher")
	}

	copy := bundle.FindCopy(req.Batch, req.Program)
	if copy == nil {
		return apperrors.NewResourceNotFoundError(apperrors.ErrCopyNotFound, "Batch not found")
	}

	if err := copy.Accept(s.now()); err != nil {
		return err
	}
	if err := s.bundles.UpdateCopy(ctx, copy); err != nil {
		return fmt.Errorf("error persisting transition: %w", err)
	}

	s.logger.Info().Str("bundleId", req.BundleID).Str("batch", req.Batch).Str("evaluator", evaluatorSap).Msg("Allotment accepted")
	return nil
}

// RecordSubmission stores which artifacts were received for a submitted
// copy. Copies that have not been submitted yet are rejected.
func (s *CopyDistributionService) RecordSubmission(ctx context.Context, req dto.SubmissionUpdateRequest) error {
	bundleID, err := uuid.Parse(req.BundleID)
	if err != nil {
		return apperrors.NewValidationError("Invalid bundle ID")
	}

	unlock := s.locks.Lock(bundleID.String())
	defer unlock()

	copy, err := s.findCopy(ctx, bundleID, req.Batch, req.Program)
	if err != nil {
		return err
	}

	if copy.Status != models.StatusSubmitted {
		return apperrors.NewConflictError("Bundle not submitted")
	}

	copy.Answersheet = *req.Answersheet
	copy.AwardSoftcopy = *req.AwardSoftcopy
	copy.AwardHardcopy = *req.AwardHardcopy

	if err := s.bundles.UpdateCopy(ctx, copy); err != nil {
		return fmt.Errorf("error persisting submission record: %w", err)
	}
	return nil
}

// Delete removes a bundle while no copy has progressed past AVAILABLE.
func (s *CopyDistributionService) Delete(ctx context.Context, rawID string) error {
	bundleID, err := uuid.Parse(rawID)
	if err != nil {
		return apperrors.NewValidationError("Invalid bundle ID")
	}

	unlock := s.locks.Lock(bundleID.String())
	defer unlock()

	bundle, err := s.bundles.GetByID(ctx, bundleID)
	if err != nil {
		return fmt.Errorf("error retrieving bundle: %w", err)
	}
	if bundle == nil {
		return apperrors.NewResourceNotFoundError(apperrors.ErrBundleNotFound, "Bundle not found")
	}

	if !bundle.Deletable() {
		return apperrors.NewConflictError("Bundle has copies already in evaluation")
	}

	if err := s.bundles.Delete(ctx, bundleID); err != nil {
		return fmt.Errorf("error deleting bundle: %w", err)
	}

	s.logger.Info().Str("bundleId", rawID).Msg("Copy bundle deleted")
	return nil
}

// ListAll returns every bundle with its evaluator details resolved.
func (s *CopyDistributionService) ListAll(ctx context.Context) ([]dto.BundleResponse, error) {
	bundles, err := s.bundles.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error retrieving bundles: %w", err)
	}

	responses := make([]dto.BundleResponse, 0, len(bundles))
	for _, bundle := range bundles {
		evaluator, err := s.teachers.GetByID(ctx, bundle.EvaluatorID)
		if err != nil {
			return nil, fmt.Errorf("error resolving evaluator: %w", err)
		}
		responses = append(responses, s.projectBundle(bundle, evaluator, false))
	}
	return responses, nil
}

// GetByID returns one bundle with evaluator details and due/overdue
// annotations on every copy.
func (s *CopyDistributionService) GetByID(ctx context.Context, rawID string) (*dto.BundleResponse, error) {
	bundleID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid bundle ID")
	}

	bundle, err := s.bundles.GetByID(ctx, bundleID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving bundle: %w", err)
	}
	if bundle == nil {
		return nil, apperrors.NewResourceNotFoundError(apperrors.ErrBundleNotFound, "Bundle not found")
	}

	evaluator, err := s.teachers.GetByID(ctx, bundle.EvaluatorID)
	if err != nil {
		return nil, fmt.Errorf("error resolving evaluator: %w", err)
	}

	response := s.projectBundle(bundle, evaluator, true)
	return &response, nil
}

// ListForEvaluator returns the requesting evaluator's bundles with
// due/overdue annotations. The evaluator block is omitted since the caller
// is the evaluator.
func (s *CopyDistributionService) ListForEvaluator(ctx context.Context, evaluatorSap string) ([]dto.BundleResponse, error) {
	teacher, err := s.teachers.GetBySapID(ctx, evaluatorSap)
	if err != nil {
		return nil, fmt.Errorf("error resolving evaluator: %w", err)
	}
	if teacher == nil {
		return nil, apperrors.NewResourceNotFoundError(apperrors.ErrTeacherNotFound, "Teacher not found")
	}

	bundles, err := s.bundles.GetByEvaluator(ctx, teacher.ID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving bundles: %w", err)
	}

	responses := make([]dto.BundleResponse, 0, len(bundles))
	for _, bundle := range bundles {
		responses = append(responses, s.projectBundle(bundle, nil, true))
	}
	return responses, nil
}

// findCopy loads the copy addressed by (bundle, batch, program), mapping
// both levels of absence to not-found errors.
func (s *CopyDistributionService) findCopy(ctx context.Context, bundleID uuid.UUID, batch, program string) (*models.Copy, error) {
	bundle, err := s.bundles.GetByID(ctx, bundleID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving bundle: %w", err)
	}
	if bundle == nil {
		return nil, apperrors.NewResourceNotFoundError(apperrors.ErrBundleNotFound, "Bundle not found")
	}

	copy := bundle.FindCopy(batch, program)
	if copy == nil {
		return nil, apperrors.NewResourceNotFoundError(apperrors.ErrCopyNotFound, "Batch not found")
	}
	return copy, nil
}

// projectBundle builds the caller-facing view of a bundle. With annotate
// set, each copy gets its due label and the OVERDUE effective-status
// override; the stored status is never modified.
func (s *CopyDistributionService) projectBundle(bundle *models.CopyBundle, evaluator *models.Teacher, annotate bool) dto.BundleResponse {
	response := dto.BundleResponse{
		ID:             bundle.ID.String(),
		DateOfExam:     bundle.DateOfExam.Format(isoDate),
		EvaluationMode: bundle.EvaluationMode,
		SubjectCode:    bundle.SubjectCode,
		SubjectName:    bundle.SubjectName,
		SubjectSchool:  bundle.SubjectSchool,
		RoomNo:         bundle.RoomNo,
		Copies:         make([]dto.CopyResponse, 0, len(bundle.Copies)),
	}

	if evaluator != nil {
		response.Evaluator = &dto.EvaluatorResponse{
			SapID: evaluator.SapID,
			Name:  evaluator.Name,
			Email: evaluator.Email,
			Phone: evaluator.Phone,
		}
	}

	for _, copy := range bundle.Copies {
		response.Copies = append(response.Copies, s.projectCopy(copy, annotate))
	}
	return response
}

func (s *CopyDistributionService) projectCopy(copy models.Copy, annotate bool) dto.CopyResponse {
	response := dto.CopyResponse{
		ID:            copy.ID,
		Batch:         copy.Batch,
		Program:       copy.Program,
		NoOfStudents:  copy.NoOfStudents,
		Status:        copy.Status,
		AvailableDate: copy.AvailableDate,
		AllottedDate:  copy.AllottedDate,
		StartDate:     copy.StartDate,
		SubmitDate:    copy.SubmitDate,
		Answersheet:   copy.Answersheet,
		AwardSoftcopy: copy.AwardSoftcopy,
		AwardHardcopy: copy.AwardHardcopy,
	}

	if !annotate || copy.StartDate == nil || copy.Status == models.StatusSubmitted {
		return response
	}

	remaining := workdays.DaysRemaining(*copy.StartDate, s.now())
	label := workdays.DueLabel(remaining)
	response.DueIn = &label
	if remaining < 0 {
		response.Status = models.StatusOverdue
	}
	return response
}
