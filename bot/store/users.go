package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/calorico/bot/domain"
	"github.com/m3rciful/calorico/core/logger"
	"log/slog"
)

// ErrNotFound is returned when a user record does not exist.
var ErrNotFound = errors.New("store: user not found")

// Users is the Postgres-backed User Store. Records are upserted and never
// deleted here; reset is an external operation.
type Users struct {
	db *sqlx.DB
}

// NewUsers wraps an open database handle.
func NewUsers(db *sqlx.DB) *Users {
	return &Users{db: db}
}

type userRow struct {
	UserID            int64          `db:"user_id"`
	Stage             string         `db:"stage"`
	SetupComplete     bool           `db:"setup_complete"`
	DayCount          int            `db:"day_count"`
	DailyMenuEnabled  bool           `db:"daily_menu_enabled"`
	PreferredMenuHour string         `db:"preferred_menu_hour"`
	LastMenuSent      sql.NullTime   `db:"last_menu_sent"`
	CalorieBudget     int            `db:"calorie_budget"`
	MenuSentToday     bool           `db:"menu_sent_today"`
	MenuSentDate      sql.NullString `db:"menu_sent_date"`
	Profile           []byte         `db:"profile"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func toDomain(r userRow) (*domain.User, error) {
	u := &domain.User{
		ID: r.UserID,
		Flow: domain.Flow{
			Stage:         r.Stage,
			SetupComplete: r.SetupComplete,
			DayCount:      r.DayCount,
		},
		DailyMenuEnabled:  r.DailyMenuEnabled,
		PreferredMenuHour: r.PreferredMenuHour,
		CalorieBudget:     r.CalorieBudget,
		MenuSentToday:     r.MenuSentToday,
		Profile:           make(map[string]string),
	}
	if r.LastMenuSent.Valid {
		sent := r.LastMenuSent.Time
		u.LastMenuSent = &sent
	}
	if r.MenuSentDate.Valid {
		u.MenuSentDate = r.MenuSentDate.String
	}
	if len(r.Profile) > 0 {
		if err := json.Unmarshal(r.Profile, &u.Profile); err != nil {
			return nil, fmt.Errorf("decode profile for user %d: %w", r.UserID, err)
		}
	}
	return u, nil
}

func toRow(u *domain.User) (userRow, error) {
	profile, err := json.Marshal(u.Profile)
	if err != nil {
		return userRow{}, fmt.Errorf("encode profile for user %d: %w", u.ID, err)
	}
	r := userRow{
		UserID:            u.ID,
		Stage:             u.Flow.Stage,
		SetupComplete:     u.Flow.SetupComplete,
		DayCount:          u.Flow.DayCount,
		DailyMenuEnabled:  u.DailyMenuEnabled,
		PreferredMenuHour: u.PreferredMenuHour,
		CalorieBudget:     u.CalorieBudget,
		MenuSentToday:     u.MenuSentToday,
		Profile:           profile,
	}
	if u.LastMenuSent != nil {
		r.LastMenuSent = sql.NullTime{Time: *u.LastMenuSent, Valid: true}
	}
	if u.MenuSentDate != "" {
		r.MenuSentDate = sql.NullString{String: u.MenuSentDate, Valid: true}
	}
	return r, nil
}

const selectColumns = `
	user_id, stage, setup_complete, day_count, daily_menu_enabled,
	preferred_menu_hour, last_menu_sent, calorie_budget,
	menu_sent_today, menu_sent_date, profile, updated_at`

// GetAllUsers reads every user record keyed by user id.
func (s *Users) GetAllUsers(ctx context.Context) (map[int64]*domain.User, error) {
	start := time.Now()
	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT`+selectColumns+` FROM users`); err != nil {
		logger.SVCUsers.Error("bulk read failed",
			slog.String("event", "users.read_all"),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("read all users: %w", err)
	}

	users := make(map[int64]*domain.User, len(rows))
	for _, r := range rows {
		u, err := toDomain(r)
		if err != nil {
			return nil, err
		}
		users[u.ID] = u
	}
	logger.SVCUsers.Debug("bulk read",
		slog.String("event", "users.read_all"),
		slog.Int("count", len(users)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return users, nil
}

// GetUser reads one record. Returns ErrNotFound when it does not exist.
func (s *Users) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `SELECT`+selectColumns+` FROM users WHERE user_id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.SVCUsers.Error("read failed",
			slog.String("event", "users.read"),
			slog.Int64("user_id", id),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("read user %d: %w", id, err)
	}
	return toDomain(row)
}

// SaveUser upserts the record. Last write wins; there is no optimistic
// locking because dispatch is serialized per user.
func (s *Users) SaveUser(ctx context.Context, u *domain.User) error {
	row, err := toRow(u)
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO users (
			user_id, stage, setup_complete, day_count, daily_menu_enabled,
			preferred_menu_hour, last_menu_sent, calorie_budget,
			menu_sent_today, menu_sent_date, profile, updated_at
		) VALUES (
			:user_id, :stage, :setup_complete, :day_count, :daily_menu_enabled,
			:preferred_menu_hour, :last_menu_sent, :calorie_budget,
			:menu_sent_today, :menu_sent_date, :profile, now()
		)
		ON CONFLICT (user_id) DO UPDATE SET
			stage = EXCLUDED.stage,
			setup_complete = EXCLUDED.setup_complete,
			day_count = EXCLUDED.day_count,
			daily_menu_enabled = EXCLUDED.daily_menu_enabled,
			preferred_menu_hour = EXCLUDED.preferred_menu_hour,
			last_menu_sent = EXCLUDED.last_menu_sent,
			calorie_budget = EXCLUDED.calorie_budget,
			menu_sent_today = EXCLUDED.menu_sent_today,
			menu_sent_date = EXCLUDED.menu_sent_date,
			profile = EXCLUDED.profile,
			updated_at = now()`,
		row,
	)
	if err != nil {
		logger.SVCUsers.Error("save failed",
			slog.String("event", "users.save"),
			slog.Int64("user_id", u.ID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("save user %d: %w", u.ID, err)
	}
	logger.SVCUsers.Debug("saved",
		slog.String("event", "users.save"),
		slog.Int64("user_id", u.ID),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}
