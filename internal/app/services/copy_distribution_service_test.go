package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evaldesk/copyflow/internal/app/models"
	"github.com/evaldesk/copyflow/internal/app/models/dto"
	"github.com/evaldesk/copyflow/internal/app/repositories"
	"github.com/evaldesk/copyflow/internal/pkg/apperrors"
)

// --- in-memory stores ---

type memoryBundleStore struct {
	mu         sync.Mutex
	order      []uuid.UUID
	bundles    map[uuid.UUID]*models.CopyBundle
	nextCopyID int64
}

func newMemoryBundleStore() *memoryBundleStore {
	return &memoryBundleStore{bundles: make(map[uuid.UUID]*models.CopyBundle)}
}

func cloneBundle(b *models.CopyBundle) *models.CopyBundle {
	clone := *b
	clone.Copies = append([]models.Copy(nil), b.Copies...)
	return &clone
}

func (s *memoryBundleStore) Create(_ context.Context, bundle *models.CopyBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range bundle.Copies {
		s.nextCopyID++
		bundle.Copies[i].ID = s.nextCopyID
		bundle.Copies[i].BundleID = bundle.ID
	}
	s.bundles[bundle.ID] = cloneBundle(bundle)
	s.order = append(s.order, bundle.ID)
	return nil
}

func (s *memoryBundleStore) AppendCopy(_ context.Context, bundleID uuid.UUID, copy *models.Copy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bundle, ok := s.bundles[bundleID]
	if !ok {
		return repositories.ErrBundleNotFound
	}
	if bundle.FindCopy(copy.Batch, copy.Program) != nil {
		return repositories.ErrCopyDuplicate
	}
	s.nextCopyID++
	copy.ID = s.nextCopyID
	copy.BundleID = bundleID
	bundle.Copies = append(bundle.Copies, *copy)
	return nil
}

func (s *memoryBundleStore) GetByKey(_ context.Context, dateOfExam time.Time, subjectCode, subjectSchool string, evaluatorID int64) (*models.CopyBundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, bundle := range s.bundles {
		if bundle.DateOfExam.Equal(dateOfExam) &&
			bundle.SubjectCode == subjectCode &&
			bundle.SubjectSchool == subjectSchool &&
			bundle.EvaluatorID == evaluatorID {
			return cloneBundle(bundle), nil
		}
	}
	return nil, nil
}

func (s *memoryBundleStore) GetByID(_ context.Context, id uuid.UUID) (*models.CopyBundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bundle, ok := s.bundles[id]
	if !ok {
		return nil, nil
	}
	return cloneBundle(bundle), nil
}

func (s *memoryBundleStore) GetAll(_ context.Context) ([]*models.CopyBundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.CopyBundle
	for _, id := range s.order {
		if bundle, ok := s.bundles[id]; ok {
			out = append(out, cloneBundle(bundle))
		}
	}
	return out, nil
}

func (s *memoryBundleStore) GetByEvaluator(_ context.Context, evaluatorID int64) ([]*models.CopyBundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.CopyBundle
	for _, id := range s.order {
		bundle, ok := s.bundles[id]
		if ok && bundle.EvaluatorID == evaluatorID {
			out = append(out, cloneBundle(bundle))
		}
	}
	return out, nil
}

func (s *memoryBundleStore) UpdateCopy(_ context.Context, copy *models.Copy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bundle, ok := s.bundles[copy.BundleID]
	if !ok {
		return repositories.ErrCopyNotFound
	}
	for i := range bundle.Copies {
		if bundle.Copies[i].ID == copy.ID {
			bundle.Copies[i] = *copy
			return nil
		}
	}
	return repositories.ErrCopyNotFound
}

func (s *memoryBundleStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bundles[id]; !ok {
		return repositories.ErrBundleNotFound
	}
	delete(s.bundles, id)
	return nil
}

type memoryTeacherStore struct {
	teachers map[string]*models.Teacher
}

func (s *memoryTeacherStore) GetBySapID(_ context.Context, sapID string) (*models.Teacher, error) {
	teacher, ok := s.teachers[sapID]
	if !ok {
		return nil, nil
	}
	return teacher, nil
}

func (s *memoryTeacherStore) GetByID(_ context.Context, id int64) (*models.Teacher, error) {
	for _, teacher := range s.teachers {
		if teacher.ID == id {
			return teacher, nil
		}
	}
	return nil, nil
}

// --- fixtures ---

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func newTestService() (*CopyDistributionService, *memoryBundleStore, *fakeClock) {
	store := newMemoryBundleStore()
	teachers := &memoryTeacherStore{teachers: map[string]*models.Teacher{
		"E1": {ID: 1, SapID: "E1", Name: "A. Sharma", Email: "a.sharma@univ.edu", Phone: "111"},
		"E2": {ID: 2, SapID: "E2", Name: "B. Rao", Email: "b.rao@univ.edu", Phone: "222"},
	}}
	svc := NewCopyDistributionService(store, teachers, zerolog.Nop())
	clock := &fakeClock{t: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc.now = clock.Now
	return svc, store, clock
}

func addRequest() dto.AddBundleRequest {
	return dto.AddBundleRequest{
		DateOfExam:     "15/03/2024",
		EvaluationMode: "OFFLINE",
		EvaluatorSap:   "E1",
		SubjectCode:    "CS101",
		SubjectName:    "Data Structures",
		SubjectSchool:  "SOCS",
		RoomNo:         204,
		NoOfStudents:   30,
		Program:        "P1",
		Batch:          "B1",
	}
}

func boolPtr(b bool) *bool { return &b }

// --- AddBundle ---

func Test_AddBundle_CreatesBundleWithOneAvailableCopy(t *testing.T) {
	svc, store, clock := newTestService()
	ctx := context.Background()

	err := svc.AddBundle(ctx, addRequest())

	require.NoError(t, err)
	bundles, _ := store.GetAll(ctx)
	require.Len(t, bundles, 1)
	bundle := bundles[0]
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), bundle.DateOfExam)
	assert.Equal(t, int64(1), bundle.EvaluatorID)
	require.Len(t, bundle.Copies, 1)
	copy := bundle.Copies[0]
	assert.Equal(t, models.StatusAvailable, copy.Status)
	assert.Equal(t, clock.Now(), copy.AvailableDate)
	assert.Nil(t, copy.AllottedDate)
}

func Test_AddBundle_DuplicateBatchProgramIsConflict(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.AddBundle(ctx, addRequest()))
	err := svc.AddBundle(ctx, addRequest())

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, "CopyBundle already exists", err.Error())
	bundles, _ := store.GetAll(ctx)
	require.Len(t, bundles, 1)
	assert.Len(t, bundles[0].Copies, 1)
}

func Test_AddBundle_SameKeyAppendsToExistingBundle(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.AddBundle(ctx, addRequest()))
	second := addRequest()
	second.Batch = "B2"
	require.NoError(t, svc.AddBundle(ctx, second))

	bundles, _ := store.GetAll(ctx)
	require.Len(t, bundles, 1)
	assert.Len(t, bundles[0].Copies, 2)
}

func Test_AddBundle_DifferentEvaluatorCreatesSeparateBundle(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.AddBundle(ctx, addRequest()))
	second := addRequest()
	second.EvaluatorSap = "E2"
	require.NoError(t, svc.AddBundle(ctx, second))

	bundles, _ := store.GetAll(ctx)
	assert.Len(t, bundles, 2)
}

func Test_AddBundle_UnknownEvaluatorIsNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	req := addRequest()
	req.EvaluatorSap = "E99"
	err := svc.AddBundle(context.Background(), req)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrTeacherNotFound))
	assert.Equal(t, "Teacher not found", err.Error())
}

func Test_AddBundle_RejectsIsoFormattedDate(t *testing.T) {
	svc, store, _ := newTestService()

	req := addRequest()
	req.DateOfExam = "2024-03-15"
	err := svc.AddBundle(context.Background(), req)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidationFailed))
	assert.Equal(t, "Invalid date format for bundle 2024-03-15. Please use dd/mm/yyyy format.", err.Error())
	bundles, _ := store.GetAll(context.Background())
	assert.Empty(t, bundles)
}

func Test_AddBundle_ConcurrentDuplicatesYieldOneSuccess(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	const attempts = 20
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.AddBundle(ctx, addRequest())
		}()
	}
	wg.Wait()
	close(results)

	successes, conflicts := 0, 0
	for err := range results {
		if err == nil {
			successes++
		} else if errors.Is(err, apperrors.ErrConflict) {
			conflicts++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)
	bundles, _ := store.GetAll(ctx)
	require.Len(t, bundles, 1)
	assert.Len(t, bundles[0].Copies, 1)
}

// --- Progress / Accept ---

func setupBundle(t *testing.T, svc *CopyDistributionService, store *memoryBundleStore) *models.CopyBundle {
	t.Helper()
	require.NoError(t, svc.AddBundle(context.Background(), addRequest()))
	bundles, _ := store.GetAll(context.Background())
	require.Len(t, bundles, 1)
	return bundles[0]
}

func Test_Progress_AvailableBecomesAllotted(t *testing.T) {
	svc, store, clock := newTestService()
	bundle := setupBundle(t, svc, store)
	ctx := context.Background()
	clock.Set(time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC))

	err := svc.Progress(ctx, dto.ProgressBundleRequest{BundleID: bundle.ID.String(), Batch: "B1", Program: "P1"})

	require.NoError(t, err)
	stored, _ := store.GetByID(ctx, bundle.ID)
	copy := stored.Copies[0]
	assert.Equal(t, models.StatusAllotted, copy.Status)
	require.NotNil(t, copy.AllottedDate)
	assert.Equal(t, clock.Now(), *copy.AllottedDate)
}

func Test_Progress_SecondCallAwaitsAcceptance(t *testing.T) {
	svc, store, _ := newTestService()
	bundle := setupBundle(t, svc, store)
	ctx := context.Background()
	req := dto.ProgressBundleRequest{BundleID: bundle.ID.String(), Batch: "B1", Program: "P1"}

	require.NoError(t, svc.Progress(ctx, req))
	err := svc.Progress(ctx, req)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, "Awaiting Teacher to Accept allotment", err.Error())
}

func Test_Progress_UnknownBundleIsNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	err := svc.Progress(context.Background(), dto.ProgressBundleRequest{
		BundleID: uuid.NewString(), Batch: "B1", Program: "P1",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrBundleNotFound))
}

func Test_Progress_UnknownBatchIsNotFound(t *testing.T) {
	svc, store, _ := newTestService()
	bundle := setupBundle(t, svc, store)

	err := svc.Progress(context.Background(), dto.ProgressBundleRequest{
		BundleID: bundle.ID.String(), Batch: "B9", Program: "P1",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrCopyNotFound))
}

func Test_Accept_ByOwningEvaluatorStartsEvaluation(t *testing.T) {
	svc, store, clock := newTestService()
	bundle := setupBundle(t, svc, store)
	ctx := context.Background()
	req := dto.ProgressBundleRequest{BundleID: bundle.ID.String(), Batch: "B1", Program: "P1"}
	require.NoError(t, svc.Progress(ctx, req))
	clock.Set(time.Date(2024, 3, 12, 11, 0, 0, 0, time.UTC))

	err := svc.Accept(ctx, req, "E1")

	require.NoError(t, err)
	stored, _ := store.GetByID(ctx, bundle.ID)
	copy := stored.Copies[0]
	assert.Equal(t, models.StatusInProgress, copy.Status)
	require.NotNil(t, copy.StartDate)
	assert.Equal(t, clock.Now(), *copy.StartDate)
}

func Test_Accept_ByOtherEvaluatorIsForbidden(t *testing.T) {
	svc, store, _ := newTestService()
	bundle := setupBundle(t, svc, store)
	ctx := context.Background()
	req := dto.ProgressBundleRequest{BundleID: bundle.ID.String(), Batch: "B1", Program: "P1"}
	require.NoError(t, svc.Progress(ctx, req))

	err := svc.Accept(ctx, req, "E2")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrPermissionDenied))
	assert.Equal(t, "Bundle Not Alloted to Teacher", err.Error())

	stored, _ := store.GetByID(ctx, bundle.ID)
	assert.Equal(t, models.StatusAllotted, stored.Copies[0].Status)
}

func Test_Accept_BeforeAllotmentIsConflict(t *testing.T) {
	svc, store, _ := newTestService()
	bundle := setupBundle(t, svc, store)

	err := svc.Accept(context.Background(), dto.ProgressBundleRequest{
		BundleID: bundle.ID.String(), Batch: "B1", Program: "P1",
	}, "E1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
}

func Test_Progress_InProgressBecomesSubmittedAndStays(t *testing.T) {
	svc, store, clock := newTestService()
	bundle := setupBundle(t, svc, store)
	ctx := context.Background()
	req := dto.ProgressBundleRequest{BundleID: bundle.ID.String(), Batch: "B1", Program: "P1"}
	require.NoError(t, svc.Progress(ctx, req))
	require.NoError(t, svc.Accept(ctx, req, "E1"))
	clock.Set(time.Date(2024, 3, 20, 16, 0, 0, 0, time.UTC))

	require.NoError(t, svc.Progress(ctx, req))

	stored, _ := store.GetByID(ctx, bundle.ID)
	copy := stored.Copies[0]
	assert.Equal(t, models.StatusSubmitted, copy.Status)
	require.NotNil(t, copy.SubmitDate)
	assert.Equal(t, clock.Now(), *copy.SubmitDate)

	err := svc.Progress(ctx, req)
	require.Error(t, err)
	assert.Equal(t, "Bundle already submitted", err.Error())
}

// --- RecordSubmission ---

func Test_RecordSubmission_RequiresSubmittedCopy(t *testing.T) {
	svc, store, _ := newTestService()
	bundle := setupBundle(t, svc, store)

	err := svc.RecordSubmission(context.Background(), dto.SubmissionUpdateRequest{
		BundleID: bundle.ID.String(), Batch: "B1", Program: "P1",
		Answersheet: boolPtr(true), AwardSoftcopy: boolPtr(true), AwardHardcopy: boolPtr(false),
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
}

func Test_RecordSubmission_StoresArtifactFlags(t *testing.T) {
	svc, store, _ := newTestService()
	bundle := setupBundle(t, svc, store)
	ctx := context.Background()
	req := dto.ProgressBundleRequest{BundleID: bundle.ID.String(), Batch: "B1", Program: "P1"}
	require.NoError(t, svc.Progress(ctx, req))
	require.NoError(t, svc.Accept(ctx, req, "E1"))
	require.NoError(t, svc.Progress(ctx, req))

	err := svc.RecordSubmission(ctx, dto.SubmissionUpdateRequest{
		BundleID: bundle.ID.String(), Batch: "B1", Program: "P1",
		Answersheet: boolPtr(true), AwardSoftcopy: boolPtr(true), AwardHardcopy: boolPtr(false),
	})

	require.NoError(t, err)
	stored, _ := store.GetByID(ctx, bundle.ID)
	copy := stored.Copies[0]
	assert.True(t, copy.Answersheet)
	assert.True(t, copy.AwardSoftcopy)
	assert.False(t, copy.AwardHardcopy)
}

// --- Delete ---

func Test_Delete_AllowedWhileAllCopiesAvailable(t *testing.T) {
	svc, store, _ := newTestService()
	bundle := setupBundle(t, svc, store)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, bundle.ID.String()))

	bundles, _ := store.GetAll(ctx)
	assert.Empty(t, bundles)
}

func Test_Delete_RejectedOnceACopyProgressed(t *testing.T) {
	svc, store, _ := newTestService()
	bundle := setupBundle(t, svc, store)
	ctx := context.Background()
	require.NoError(t, svc.Progress(ctx, dto.ProgressBundleRequest{
		BundleID: bundle.ID.String(), Batch: "B1", Program: "P1",
	}))

	err := svc.Delete(ctx, bundle.ID.String())

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
}

// --- Projections ---

func Test_GetByID_EmbedsEvaluatorDetails(t *testing.T) {
	svc, store, _ := newTestService()
	bundle := setupBundle(t, svc, store)

	resp, err := svc.GetByID(context.Background(), bundle.ID.String())

	require.NoError(t, err)
	require.NotNil(t, resp.Evaluator)
	assert.Equal(t, "E1", resp.Evaluator.SapID)
	assert.Equal(t, "A. Sharma", resp.Evaluator.Name)
	assert.Equal(t, "2024-03-15", resp.DateOfExam)
	require.Len(t, resp.Copies, 1)
	assert.Equal(t, models.StatusAvailable, resp.Copies[0].Status)
	assert.Nil(t, resp.Copies[0].DueIn)
}

func Test_GetByID_OverdueCopyGetsEffectiveStatusAndLabel(t *testing.T) {
	svc, store, clock := newTestService()
	bundle := setupBundle(t, svc, store)
	ctx := context.Background()
	req := dto.ProgressBundleRequest{BundleID: bundle.ID.String(), Batch: "B1", Program: "P1"}
	require.NoError(t, svc.Progress(ctx, req))

	// Evaluation starts Friday 2024-03-15; 7 working days end 2024-03-22.
	clock.Set(time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC))
	require.NoError(t, svc.Accept(ctx, req, "E1"))

	// Two days past due.
	clock.Set(time.Date(2024, 3, 24, 12, 0, 0, 0, time.UTC))
	resp, err := svc.GetByID(ctx, bundle.ID.String())

	require.NoError(t, err)
	copy := resp.Copies[0]
	assert.Equal(t, models.StatusOverdue, copy.Status)
	require.NotNil(t, copy.DueIn)
	assert.Equal(t, "Overdue by 2 days", *copy.DueIn)

	// The override is projection only; storage still holds INPROGRESS.
	stored, _ := store.GetByID(ctx, bundle.ID)
	assert.Equal(t, models.StatusInProgress, stored.Copies[0].Status)
}

func Test_GetByID_SubmittedCopyHasNoDueLabel(t *testing.T) {
	svc, store, clock := newTestService()
	bundle := setupBundle(t, svc, store)
	ctx := context.Background()
	req := dto.ProgressBundleRequest{BundleID: bundle.ID.String(), Batch: "B1", Program: "P1"}
	require.NoError(t, svc.Progress(ctx, req))
	require.NoError(t, svc.Accept(ctx, req, "E1"))
	require.NoError(t, svc.Progress(ctx, req))
	clock.Set(clock.Now().AddDate(0, 1, 0))

	resp, err := svc.GetByID(ctx, bundle.ID.String())

	require.NoError(t, err)
	copy := resp.Copies[0]
	assert.Equal(t, models.StatusSubmitted, copy.Status)
	assert.Nil(t, copy.DueIn)
}

func Test_GetByID_DueInLabelBeforeDueDate(t *testing.T) {
	svc, store, clock := newTestService()
	bundle := setupBundle(t, svc, store)
	ctx := context.Background()
	req := dto.ProgressBundleRequest{BundleID: bundle.ID.String(), Batch: "B1", Program: "P1"}
	require.NoError(t, svc.Progress(ctx, req))
	clock.Set(time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC))
	require.NoError(t, svc.Accept(ctx, req, "E1"))

	clock.Set(time.Date(2024, 3, 19, 9, 0, 0, 0, time.UTC))
	resp, err := svc.GetByID(ctx, bundle.ID.String())

	require.NoError(t, err)
	copy := resp.Copies[0]
	assert.Equal(t, models.StatusInProgress, copy.Status)
	require.NotNil(t, copy.DueIn)
	assert.Equal(t, "Due in 3 days", *copy.DueIn)
}

func Test_ListForEvaluator_OmitsEvaluatorBlockAndFilters(t *testing.T) {
	svc, store, _ := newTestService()
	setupBundle(t, svc, store)
	other := addRequest()
	other.EvaluatorSap = "E2"
	other.SubjectCode = "CS102"
	require.NoError(t, svc.AddBundle(context.Background(), other))

	mine, err := svc.ListForEvaluator(context.Background(), "E1")

	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Nil(t, mine[0].Evaluator)
	assert.Equal(t, "CS101", mine[0].SubjectCode)
}

func Test_ListAll_ResolvesEvaluators(t *testing.T) {
	svc, store, _ := newTestService()
	setupBundle(t, svc, store)

	all, err := svc.ListAll(context.Background())

	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].Evaluator)
	assert.Equal(t, "E1", all[0].Evaluator.SapID)
}
