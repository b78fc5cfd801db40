package sql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mcoot/searchgame/internal/model"
	"github.com/mcoot/searchgame/internal/storage"
)

// Storage is a GORM-backed implementation of the storage interface.
// It works against SQLite and Postgres.
type Storage struct {
	db *gorm.DB
}

// NewWithDB creates a SQL storage around an existing GORM handle (for testing)
func NewWithDB(db *gorm.DB) *Storage {
	return &Storage{db: db}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Migrate creates or updates the schema
func (s *Storage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&userRow{}, &gameSessionRow{}, &iconSetRow{})
}

// Ping verifies the database is reachable
func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	row := userRowFromModel(user)
	err := s.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return model.ErrPhoneExists
	}
	return err
}

func (s *Storage) UpdateUserName(ctx context.Context, id model.UserID, name string, updatedAt time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&userRow{}).
		Where("id = ?", string(id)).
		Updates(map[string]any{"name": name, "updated_at": updatedAt})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).Where("id = ?", string(id)).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (s *Storage) GetUserByPhone(ctx context.Context, phone string) (*model.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).Where("phone = ?", phone).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

// Session operations

func (s *Storage) CreateSessionWithinLimit(ctx context.Context, session *model.GameSession, phone string, limit int) error {
	row := gameSessionRowFromModel(session)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkLimit(tx, phone, limit); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(&row).Error
	})
}

// checkLimit returns model.ErrAttemptLimitExceeded when phone already has
// limit completed sessions. It locks every user row sharing the phone so
// concurrent starts and completions for that phone serialize. SQLite has
// no row locks but only admits one writer, and the pool is limited to one
// connection.
func (s *Storage) checkLimit(tx *gorm.DB, phone string, limit int) error {
	if s.db.Dialector.Name() == "postgres" {
		var ids []string
		err := tx.Model(&userRow{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("phone = ?", phone).
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}
	}

	count, err := countCompletedByPhone(tx, phone)
	if err != nil {
		return err
	}
	if count >= int64(limit) {
		return model.ErrAttemptLimitExceeded
	}
	return nil
}

func countCompletedByPhone(db *gorm.DB, phone string) (int64, error) {
	var count int64
	err := db.Model(&gameSessionRow{}).
		Joins("JOIN users ON users.id = game_sessions.user_id").
		Where("users.phone = ? AND game_sessions.completed = ?", phone, true).
		Count(&count).Error
	return count, err
}

func (s *Storage) GetOpenSession(ctx context.Context, id model.SessionID, userID model.UserID) (*model.GameSession, error) {
	var row gameSessionRow
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND completed = ?", string(id), string(userID), false).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (s *Storage) CompleteSession(ctx context.Context, id model.SessionID, userID model.UserID, endTime time.Time, score int64, phone string, limit int) (*model.GameSession, error) {
	var row gameSessionRow

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var open int64
		err := tx.Model(&gameSessionRow{}).
			Where("id = ? AND user_id = ? AND completed = ?", string(id), string(userID), false).
			Count(&open).Error
		if err != nil {
			return err
		}
		if open == 0 {
			return model.ErrSessionNotFound
		}
		if err := s.checkLimit(tx, phone, limit); err != nil {
			return err
		}

		// The completed = false guard makes a second completion a no-op
		res := tx.Model(&gameSessionRow{}).
			Where("id = ? AND user_id = ? AND completed = ?", string(id), string(userID), false).
			Updates(map[string]any{
				"end_time":  endTime,
				"score":     score,
				"completed": true,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return model.ErrSessionNotFound
		}
		return tx.Where("id = ?", string(id)).Take(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

// Ranking operations

func (s *Storage) CountCompletedSessions(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&gameSessionRow{}).
		Where("completed = ? AND score IS NOT NULL", true).
		Count(&count).Error
	return count, err
}

func (s *Storage) ListCompletedSessions(ctx context.Context, limit int) ([]model.RankedSession, error) {
	q := s.db.WithContext(ctx).
		Table("game_sessions").
		Select("game_sessions.id AS session_id, game_sessions.user_id, users.name, users.phone, game_sessions.score, game_sessions.end_time").
		Joins("JOIN users ON users.id = game_sessions.user_id").
		Where("game_sessions.completed = ? AND game_sessions.score IS NOT NULL AND game_sessions.end_time IS NOT NULL", true).
		Order("game_sessions.score ASC, game_sessions.end_time ASC, game_sessions.id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []rankedRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}

	ranked := make([]model.RankedSession, len(rows))
	for i, r := range rows {
		ranked[i] = r.toModel()
	}
	return ranked, nil
}

// Icon set operations

func (s *Storage) ListActiveIconSets(ctx context.Context) ([]*model.IconSet, error) {
	var rows []iconSetRow
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("difficulty ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	sets := make([]*model.IconSet, 0, len(rows))
	for _, r := range rows {
		set, err := r.toModel()
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, nil
}

func (s *Storage) ReplaceIconSets(ctx context.Context, sets []*model.IconSet) error {
	rows := make([]iconSetRow, 0, len(sets))
	for _, set := range sets {
		row, err := iconSetRowFromModel(set)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&iconSetRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}
