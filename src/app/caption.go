package app

import "time"

// Caption is a published caption from the captions table.
type Caption struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	LikeCount int       `json:"likeCount"`
	CreatedAt time.Time `json:"createdDatetimeUtc"`
}
