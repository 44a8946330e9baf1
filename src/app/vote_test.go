package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockVoteStore struct {
	mock.Mock
}

func (m *mockVoteStore) InsertVote(ctx context.Context, vote Vote) error {
	return m.Called(vote).Error(0)
}

func (m *mockVoteStore) UpdateVote(ctx context.Context, captionID, voterID string, value int, modifiedAt time.Time) (int64, error) {
	args := m.Called(captionID, voterID, value, modifiedAt)
	return args.Get(0).(int64), args.Error(1)
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestReconciler(store VoteStore) *VoteReconciler {
	return NewVoteReconciler(store, nil,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return "vote-1" }),
	)
}

func TestVoteReconcilerInvalidValues(t *testing.T) {
	store := new(mockVoteStore)
	r := newTestReconciler(store)

	for _, value := range []int{0, 2, -5, 100, -2} {
		assert.Equal(t, VoteInvalid, r.Submit(context.Background(), "c1", "u1", value), "value %d", value)
	}
	assert.Equal(t, VoteInvalid, r.Submit(context.Background(), "  ", "u1", 1))
	assert.Equal(t, VoteInvalid, r.Submit(context.Background(), "c1", "", 1))
	store.AssertNotCalled(t, "InsertVote", mock.Anything)
	store.AssertNotCalled(t, "UpdateVote", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVoteReconcilerCreated(t *testing.T) {
	store := new(mockVoteStore)
	store.On("InsertVote", Vote{
		ID:         "vote-1",
		CaptionID:  "c1",
		VoterID:    "u1",
		Value:      1,
		CreatedAt:  fixedNow,
		ModifiedAt: fixedNow,
	}).Return(nil).Once()

	assert.Equal(t, VoteCreated, newTestReconciler(store).Submit(context.Background(), " c1 ", "u1", 1))
	store.AssertExpectations(t)
	store.AssertNumberOfCalls(t, "UpdateVote", 0)
}

func TestVoteReconcilerConflictUpdates(t *testing.T) {
	store := new(mockVoteStore)
	store.On("InsertVote", mock.Anything).Return(fmt.Errorf("insert: %w", ErrDuplicateVote)).Once()
	store.On("UpdateVote", "c1", "u1", -1, fixedNow).Return(int64(1), nil).Once()

	assert.Equal(t, VoteUpdated, newTestReconciler(store).Submit(context.Background(), "c1", "u1", -1))
	store.AssertExpectations(t)
	store.AssertNumberOfCalls(t, "InsertVote", 1)
	store.AssertNumberOfCalls(t, "UpdateVote", 1)
}

func TestVoteReconcilerConflictUpdateFails(t *testing.T) {
	store := new(mockVoteStore)
	store.On("InsertVote", mock.Anything).Return(ErrDuplicateVote).Once()
	store.On("UpdateVote", "c1", "u1", 1, fixedNow).Return(int64(0), errors.New("permission denied")).Once()

	assert.Equal(t, VoteError, newTestReconciler(store).Submit(context.Background(), "c1", "u1", 1))
	store.AssertNumberOfCalls(t, "UpdateVote", 1)
}

func TestVoteReconcilerConflictUpdateNoRows(t *testing.T) {
	store := new(mockVoteStore)
	store.On("InsertVote", mock.Anything).Return(ErrDuplicateVote).Once()
	store.On("UpdateVote", "c1", "u1", 1, fixedNow).Return(int64(0), nil).Once()

	assert.Equal(t, VoteError, newTestReconciler(store).Submit(context.Background(), "c1", "u1", 1))
}

func TestVoteReconcilerOtherInsertFailure(t *testing.T) {
	store := new(mockVoteStore)
	store.On("InsertVote", mock.Anything).Return(errors.New("connection reset")).Once()

	assert.Equal(t, VoteError, newTestReconciler(store).Submit(context.Background(), "c1", "u1", 1))
	store.AssertNumberOfCalls(t, "UpdateVote", 0)
}

func TestValidVoteValue(t *testing.T) {
	assert.True(t, ValidVoteValue(1))
	assert.True(t, ValidVoteValue(-1))
	assert.False(t, ValidVoteValue(0))
}
