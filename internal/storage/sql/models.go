package sql

import (
	"encoding/json"
	"time"

	"github.com/mcoot/searchgame/internal/model"
)

// userRow is the persisted form of model.User
type userRow struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Name      string `gorm:"size:120;not null"`
	Phone     string `gorm:"uniqueIndex;size:32;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (userRow) TableName() string { return "users" }

func userRowFromModel(u *model.User) userRow {
	return userRow{
		ID:        string(u.ID),
		Name:      u.Name,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (r userRow) toModel() *model.User {
	return &model.User{
		ID:        model.UserID(r.ID),
		Name:      r.Name,
		Phone:     r.Phone,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

// gameSessionRow is the persisted form of model.GameSession
type gameSessionRow struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `gorm:"index;type:varchar(36);not null"`
	User      userRow   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	StartTime time.Time `gorm:"not null"`
	EndTime   *time.Time
	Score     *int64 `gorm:"index"`
	Completed bool   `gorm:"not null;index"`
	CreatedAt time.Time
}

func (gameSessionRow) TableName() string { return "game_sessions" }

func gameSessionRowFromModel(s *model.GameSession) gameSessionRow {
	return gameSessionRow{
		ID:        string(s.ID),
		UserID:    string(s.UserID),
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Score:     s.Score,
		Completed: s.Completed,
		CreatedAt: s.CreatedAt,
	}
}

func (r gameSessionRow) toModel() *model.GameSession {
	sess := &model.GameSession{
		ID:        model.SessionID(r.ID),
		UserID:    model.UserID(r.UserID),
		StartTime: r.StartTime.UTC(),
		Score:     r.Score,
		Completed: r.Completed,
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.EndTime != nil {
		t := r.EndTime.UTC()
		sess.EndTime = &t
	}
	return sess
}

// rankedRow is the result of the completed-sessions join
type rankedRow struct {
	SessionID string
	UserID    string
	Name      string
	Phone     string
	Score     int64
	EndTime   time.Time
}

func (r rankedRow) toModel() model.RankedSession {
	return model.RankedSession{
		SessionID: model.SessionID(r.SessionID),
		UserID:    model.UserID(r.UserID),
		Name:      r.Name,
		Phone:     r.Phone,
		Score:     r.Score,
		EndTime:   r.EndTime.UTC(),
	}
}

// iconSetRow is the persisted form of model.IconSet.
// Icons are kept as a JSON array in icon_urls.
type iconSetRow struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	Name        string `gorm:"size:120;not null"`
	Description string `gorm:"size:255"`
	IconURLs    string `gorm:"column:icon_urls;type:text;not null"`
	CorrectIcon int    `gorm:"not null"`
	Difficulty  int    `gorm:"index;not null"`
	IsActive    bool   `gorm:"index;not null"`
	CreatedAt   time.Time
}

func (iconSetRow) TableName() string { return "icon_sets" }

func iconSetRowFromModel(s *model.IconSet) (iconSetRow, error) {
	icons, err := json.Marshal(s.Icons)
	if err != nil {
		return iconSetRow{}, err
	}
	return iconSetRow{
		ID:          string(s.ID),
		Name:        s.Name,
		Description: s.Description,
		IconURLs:    string(icons),
		CorrectIcon: s.CorrectIcon,
		Difficulty:  s.Difficulty,
		IsActive:    s.IsActive,
		CreatedAt:   s.CreatedAt,
	}, nil
}

func (r iconSetRow) toModel() (*model.IconSet, error) {
	var icons []model.Icon
	if err := json.Unmarshal([]byte(r.IconURLs), &icons); err != nil {
		return nil, err
	}
	return &model.IconSet{
		ID:          model.IconSetID(r.ID),
		Name:        r.Name,
		Description: r.Description,
		Icons:       icons,
		CorrectIcon: r.CorrectIcon,
		Difficulty:  r.Difficulty,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt.UTC(),
	}, nil
}
