package models_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evaldesk/copyflow/internal/app/models"
	"github.com/evaldesk/copyflow/internal/pkg/apperrors"
)

func newAvailableCopy() models.Copy {
	return models.Copy{
		Batch:         "B1",
		Program:       "P1",
		NoOfStudents:  30,
		Status:        models.StatusAvailable,
		AvailableDate: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func Test_Advance_AvailableBecomesAllotted(t *testing.T) {
	copy := newAvailableCopy()
	now := time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC)

	err := copy.Advance(now)

	require.NoError(t, err)
	assert.Equal(t, models.StatusAllotted, copy.Status)
	require.NotNil(t, copy.AllottedDate)
	assert.Equal(t, now, *copy.AllottedDate)
	assert.Nil(t, copy.StartDate)
	assert.Nil(t, copy.SubmitDate)
}

func Test_Advance_AllottedIsRejectedUntilAccepted(t *testing.T) {
	copy := newAvailableCopy()
	require.NoError(t, copy.Advance(time.Now()))

	err := copy.Advance(time.Now())

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, "Awaiting Teacher to Accept allotment", err.Error())
	assert.Equal(t, models.StatusAllotted, copy.Status)
}

func Test_Advance_InProgressBecomesSubmitted(t *testing.T) {
	copy := newAvailableCopy()
	require.NoError(t, copy.Advance(time.Now()))
	require.NoError(t, copy.Accept(time.Now()))
	now := time.Date(2024, 3, 20, 16, 0, 0, 0, time.UTC)

	err := copy.Advance(now)

	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, copy.Status)
	require.NotNil(t, copy.SubmitDate)
	assert.Equal(t, now, *copy.SubmitDate)
}

func Test_Advance_SubmittedIsAbsorbing(t *testing.T) {
	copy := newAvailableCopy()
	require.NoError(t, copy.Advance(time.Now()))
	require.NoError(t, copy.Accept(time.Now()))
	require.NoError(t, copy.Advance(time.Now()))

	err := copy.Advance(time.Now())

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, "Bundle already submitted", err.Error())
	assert.Equal(t, models.StatusSubmitted, copy.Status)
}

func Test_Accept_OnlyFromAllotted(t *testing.T) {
	copy := newAvailableCopy()

	err := copy.Accept(time.Now())

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, models.StatusAvailable, copy.Status)
	assert.Nil(t, copy.StartDate)
}

func Test_Accept_AllottedBecomesInProgress(t *testing.T) {
	copy := newAvailableCopy()
	require.NoError(t, copy.Advance(time.Now()))
	now := time.Date(2024, 3, 12, 11, 0, 0, 0, time.UTC)

	err := copy.Accept(now)

	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, copy.Status)
	require.NotNil(t, copy.StartDate)
	assert.Equal(t, now, *copy.StartDate)
}

func Test_Lifecycle_NeverSkipsAState(t *testing.T) {
	// The only path to SUBMITTED is Advance, Accept, Advance in that order.
	copy := newAvailableCopy()

	require.Error(t, copy.Accept(time.Now()))
	require.NoError(t, copy.Advance(time.Now()))
	require.Error(t, copy.Advance(time.Now()))
	require.NoError(t, copy.Accept(time.Now()))
	require.Error(t, copy.Accept(time.Now()))
	require.NoError(t, copy.Advance(time.Now()))
	require.Error(t, copy.Accept(time.Now()))

	assert.Equal(t, models.StatusSubmitted, copy.Status)
	assert.NotNil(t, copy.AllottedDate)
	assert.NotNil(t, copy.StartDate)
	assert.NotNil(t, copy.SubmitDate)
}

func Test_FindCopy_MatchesBatchAndProgram(t *testing.T) {
	bundle := models.CopyBundle{
		Copies: []models.Copy{
			{Batch: "B1", Program: "P1"},
			{Batch: "B1", Program: "P2"},
		},
	}

	found := bundle.FindCopy("B1", "P2")
	require.NotNil(t, found)
	assert.Equal(t, "P2", found.Program)

	assert.Nil(t, bundle.FindCopy("B2", "P1"))
}

func Test_Deletable_OnlyWhileNothingProgressed(t *testing.T) {
	bundle := models.CopyBundle{
		Copies: []models.Copy{
			{Batch: "B1", Program: "P1", Status: models.StatusAvailable},
			{Batch: "B2", Program: "P1", Status: models.StatusAvailable},
		},
	}
	assert.True(t, bundle.Deletable())

	bundle.Copies[1].Status = models.StatusAllotted
	assert.False(t, bundle.Deletable())
}
