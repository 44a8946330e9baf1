package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// VoteOutcome is the terminal state of one vote submission.
type VoteOutcome string

const (
	VoteCreated VoteOutcome = "created"
	VoteUpdated VoteOutcome = "updated"
	VoteInvalid VoteOutcome = "invalid"
	VoteError   VoteOutcome = "error"
)

const (
	VoteUp   = 1
	VoteDown = -1
)

// ErrDuplicateVote is returned by VoteStore.InsertVote when a vote for the
// same (caption, voter) pair already exists.
var ErrDuplicateVote = errors.New("vote already exists for caption and voter")

// Vote is one voter's judgment on one caption.
type Vote struct {
	ID         string    `json:"id"`
	CaptionID  string    `json:"captionId"`
	VoterID    string    `json:"voterId"`
	Value      int       `json:"voteValue"`
	CreatedAt  time.Time `json:"createdDatetimeUtc"`
	ModifiedAt time.Time `json:"modifiedDatetimeUtc"`
}

// VoteStore is the write side of caption_votes. UpdateVote returns the
// number of rows it changed.
type VoteStore interface {
	InsertVote(ctx context.Context, vote Vote) error
	UpdateVote(ctx context.Context, captionID, voterID string, value int, modifiedAt time.Time) (int64, error)
}

type VoteReconciler struct {
	store  VoteStore
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

type VoteOption func(*VoteReconciler)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) VoteOption {
	return func(r *VoteReconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator overrides how new vote row ids are minted.
func WithIDGenerator(newID func() string) VoteOption {
	return func(r *VoteReconciler) {
		if newID != nil {
			r.newID = newID
		}
	}
}

func NewVoteReconciler(store VoteStore, logger *slog.Logger, opts ...VoteOption) *VoteReconciler {
	r := &VoteReconciler{
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		logger: ResolveLogger(logger),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ValidVoteValue reports whether value is a like or a dislike.
func ValidVoteValue(value int) bool {
	return value == VoteUp || value == VoteDown
}

// Submit records a vote. It inserts first and, only when the insert reports
// a duplicate, updates the existing row for the same caption and voter. No
// prior read decides the path, and at most two writes are attempted.
func (r *VoteReconciler) Submit(ctx context.Context, captionID, voterID string, value int) VoteOutcome {
	captionID = strings.TrimSpace(captionID)
	voterID = strings.TrimSpace(voterID)
	if captionID == "" || voterID == "" || !ValidVoteValue(value) {
		r.logger.Warn("vote rejected",
			"event", "vote_invalid",
			"caption_id", captionID,
			"voter_id", voterID,
			"vote_value", value,
		)
		return VoteInvalid
	}

	now := r.now()
	err := r.store.InsertVote(ctx, Vote{
		ID:         r.newID(),
		CaptionID:  captionID,
		VoterID:    voterID,
		Value:      value,
		CreatedAt:  now,
		ModifiedAt: now,
	})
	if err == nil {
		r.logger.Info("vote created",
			"event", "vote_created",
			"caption_id", captionID,
			"voter_id", voterID,
			"vote_value", value,
		)
		return VoteCreated
	}
	if !errors.Is(err, ErrDuplicateVote) {
		r.logger.Error("vote insert failed",
			"event", "vote_insert_failed",
			"caption_id", captionID,
			"voter_id", voterID,
			"error", err.Error(),
		)
		return VoteError
	}

	rows, err := r.store.UpdateVote(ctx, captionID, voterID, value, r.now())
	if err != nil {
		r.logger.Error("vote update failed",
			"event", "vote_update_failed",
			"caption_id", captionID,
			"voter_id", voterID,
			"error", err.Error(),
		)
		return VoteError
	}
	if rows == 0 {
		// Row vanished between the conflicting insert and the update.
		r.logger.Error("vote update matched no rows",
			"event", "vote_update_no_rows",
			"caption_id", captionID,
			"voter_id", voterID,
		)
		return VoteError
	}
	r.logger.Info("vote updated",
		"event", "vote_updated",
		"caption_id", captionID,
		"voter_id", voterID,
		"vote_value", value,
	)
	return VoteUpdated
}
