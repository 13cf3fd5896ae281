package directory

import (
	"context"

	"PPRelay/module/user/model"
	"PPRelay/service/chat"
	"PPRelay/tools/errs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// users.id 是整型，relay 一律按字符串比较
const (
	selectUserSQL = `SELECT id::text, username, COALESCE(email, ''), COALESCE(status, ''),
       COALESCE(profile_picture, ''), created_at
  FROM users WHERE id::text = $1`
	updateStatusSQL = `UPDATE users SET status = $1 WHERE id::text = $2`
)

// Postgres reads users from the HTTP tier's users table and optionally
// mirrors presence into users.status.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "pgxpool new")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "postgres ping")
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := p.pool.QueryRow(ctx, selectUserSQL, id).
		Scan(&u.ID, &u.Username, &u.Email, &u.Status, &u.ProfilePicture, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrUserNotFound.WrapMsg("", "user_id", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "select user %s", id)
	}
	return &u, nil
}

func (p *Postgres) Name() string { return "postgres-status" }

// Apply 把在线状态写回 users.status
func (p *Postgres) Apply(ctx context.Context, ev chat.PresenceEvent) error {
	status := model.StatusOffline
	if ev.Status == chat.StatusOnline {
		status = model.StatusOnline
	}
	if _, err := p.pool.Exec(ctx, updateStatusSQL, status, ev.UserID); err != nil {
		return errors.Wrapf(err, "update status user=%s", ev.UserID)
	}
	return nil
}

func (p *Postgres) Close() { p.pool.Close() }
