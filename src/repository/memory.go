package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"capserv/src/app"
)

type voteKey struct {
	captionID string
	voterID   string
}

// MemoryStore keeps votes and captions in process memory. The (caption,
// voter) key enforces the same uniqueness as the caption_votes index.
type MemoryStore struct {
	mu       sync.RWMutex
	votes    map[voteKey]app.Vote
	captions []memoryCaption
}

type memoryCaption struct {
	caption app.Caption
	public  bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{votes: make(map[voteKey]app.Vote)}
}

// AddCaption seeds a caption for the public feed.
func (s *MemoryStore) AddCaption(caption app.Caption, public bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captions = append(s.captions, memoryCaption{caption: caption, public: public})
}

func (s *MemoryStore) InsertVote(ctx context.Context, vote app.Vote) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := voteKey{strings.TrimSpace(vote.CaptionID), strings.TrimSpace(vote.VoterID)}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.votes[key]; ok {
		return app.ErrDuplicateVote
	}
	vote.CreatedAt = vote.CreatedAt.UTC()
	vote.ModifiedAt = vote.ModifiedAt.UTC()
	s.votes[key] = vote
	return nil
}

func (s *MemoryStore) UpdateVote(ctx context.Context, captionID, voterID string, value int, modifiedAt time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	key := voteKey{strings.TrimSpace(captionID), strings.TrimSpace(voterID)}
	s.mu.Lock()
	defer s.mu.Unlock()
	vote, ok := s.votes[key]
	if !ok {
		return 0, nil
	}
	vote.Value = value
	vote.ModifiedAt = modifiedAt.UTC()
	s.votes[key] = vote
	return 1, nil
}

func (s *MemoryStore) GetVote(ctx context.Context, captionID, voterID string) (app.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vote, ok := s.votes[voteKey{strings.TrimSpace(captionID), strings.TrimSpace(voterID)}]
	if !ok {
		return app.Vote{}, ErrVoteNotFound
	}
	return vote, nil
}

func (s *MemoryStore) ListRecentVotes(ctx context.Context, voterID string, limit int) ([]app.Vote, error) {
	voterID = strings.TrimSpace(voterID)
	s.mu.RLock()
	votes := make([]app.Vote, 0)
	for key, vote := range s.votes {
		if key.voterID == voterID {
			votes = append(votes, vote)
		}
	}
	s.mu.RUnlock()

	sort.Slice(votes, func(i, j int) bool {
		if votes[i].ModifiedAt.Equal(votes[j].ModifiedAt) {
			return votes[i].ID < votes[j].ID
		}
		return votes[i].ModifiedAt.After(votes[j].ModifiedAt)
	})
	if limit > 0 && len(votes) > limit {
		votes = votes[:limit]
	}
	return votes, nil
}

func (s *MemoryStore) ListPublicCaptions(ctx context.Context, limit int) ([]app.Caption, error) {
	s.mu.RLock()
	captions := make([]app.Caption, 0, len(s.captions))
	for _, c := range s.captions {
		if c.public {
			captions = append(captions, c.caption)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(captions, func(i, j int) bool {
		return captions[i].CreatedAt.After(captions[j].CreatedAt)
	})
	if limit > 0 && len(captions) > limit {
		captions = captions[:limit]
	}
	return captions, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
