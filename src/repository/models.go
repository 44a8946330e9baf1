package repository

import (
	"time"

	"capserv/src/app"
)

type captionVoteModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	CaptionID  string    `gorm:"column:caption_id;not null;uniqueIndex:caption_votes_caption_id_profile_id_key"`
	ProfileID  string    `gorm:"column:profile_id;not null;uniqueIndex:caption_votes_caption_id_profile_id_key;index"`
	VoteValue  int       `gorm:"column:vote_value;not null"`
	CreatedAt  time.Time `gorm:"column:created_datetime_utc;autoCreateTime:false"`
	ModifiedAt time.Time `gorm:"column:modified_datetime_utc;autoUpdateTime:false"`
}

func (captionVoteModel) TableName() string {
	return "caption_votes"
}

func captionVoteModelFromVote(vote app.Vote) captionVoteModel {
	return captionVoteModel{
		ID:         vote.ID,
		CaptionID:  vote.CaptionID,
		ProfileID:  vote.VoterID,
		VoteValue:  vote.Value,
		CreatedAt:  vote.CreatedAt.UTC(),
		ModifiedAt: vote.ModifiedAt.UTC(),
	}
}

func (m captionVoteModel) toVote() app.Vote {
	return app.Vote{
		ID:         m.ID,
		CaptionID:  m.CaptionID,
		VoterID:    m.ProfileID,
		Value:      m.VoteValue,
		CreatedAt:  m.CreatedAt.UTC(),
		ModifiedAt: m.ModifiedAt.UTC(),
	}
}

type captionModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Content   string    `gorm:"column:content"`
	IsPublic  bool      `gorm:"column:is_public;index"`
	LikeCount int       `gorm:"column:like_count"`
	CreatedAt time.Time `gorm:"column:created_datetime_utc"`
}

func (captionModel) TableName() string {
	return "captions"
}

func (m captionModel) toCaption() app.Caption {
	return app.Caption{
		ID:        m.ID,
		Content:   m.Content,
		LikeCount: m.LikeCount,
		CreatedAt: m.CreatedAt.UTC(),
	}
}
