package repository

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"capserv/src/app"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: app.ResolveLogger(logger),
	}
}

func (r *Repository) InsertVote(ctx context.Context, vote app.Vote) error {
	row := captionVoteModelFromVote(vote)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return app.ErrDuplicateVote
		}
		return r.logError("caption_votes_insert_failed", err,
			"caption_id", vote.CaptionID,
			"voter_id", vote.VoterID,
		)
	}
	return nil
}

func (r *Repository) UpdateVote(ctx context.Context, captionID, voterID string, value int, modifiedAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&captionVoteModel{}).
		Where("caption_id = ?", strings.TrimSpace(captionID)).
		Where("profile_id = ?", strings.TrimSpace(voterID)).
		Updates(map[string]any{
			"vote_value":            value,
			"modified_datetime_utc": modifiedAt.UTC(),
		})
	if result.Error != nil {
		return 0, r.logError("caption_votes_update_failed", result.Error,
			"caption_id", captionID,
			"voter_id", voterID,
		)
	}
	return result.RowsAffected, nil
}

func (r *Repository) GetVote(ctx context.Context, captionID, voterID string) (app.Vote, error) {
	var row captionVoteModel
	err := r.db.WithContext(ctx).
		Where("caption_id = ?", strings.TrimSpace(captionID)).
		Where("profile_id = ?", strings.TrimSpace(voterID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return app.Vote{}, ErrVoteNotFound
		}
		return app.Vote{}, r.logError("caption_votes_get_failed", err,
			"caption_id", captionID,
			"voter_id", voterID,
		)
	}
	return row.toVote(), nil
}

// ListRecentVotes returns the voter's votes, most recently changed first.
func (r *Repository) ListRecentVotes(ctx context.Context, voterID string, limit int) ([]app.Vote, error) {
	var rows []captionVoteModel
	err := r.db.WithContext(ctx).
		Where("profile_id = ?", strings.TrimSpace(voterID)).
		Order("modified_datetime_utc DESC").
		Scopes(limitRows(limit)).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("caption_votes_list_failed", err, "voter_id", voterID)
	}
	votes := make([]app.Vote, 0, len(rows))
	for _, row := range rows {
		votes = append(votes, row.toVote())
	}
	return votes, nil
}

// ListPublicCaptions returns public captions, newest first.
func (r *Repository) ListPublicCaptions(ctx context.Context, limit int) ([]app.Caption, error) {
	var rows []captionModel
	err := r.db.WithContext(ctx).
		Where("is_public = ?", true).
		Order("created_datetime_utc DESC").
		Scopes(limitRows(limit)).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("captions_list_failed", err)
	}
	captions := make([]app.Caption, 0, len(rows))
	for _, row := range rows {
		captions = append(captions, row.toCaption())
	}
	return captions, nil
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+4)
	fields = append(fields,
		"event", event,
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("repository operation failed", fields...)
	return err
}

// limitRows applies limit when positive; zero or less lists everything.
func limitRows(limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	}
}

// isUniqueViolation also accepts gorm's translated form, since Connect turns
// on TranslateError.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ Store = (*Repository)(nil)
