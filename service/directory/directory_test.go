package directory

import (
	"context"
	"os"
	"testing"
	"time"

	"PPRelay/module/user/model"
	"PPRelay/service/chat"
	"PPRelay/tools/errs"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestStatic(t *testing.T) {
	d := NewStatic(model.User{ID: "1", Username: "alice"})

	u, err := d.GetUserByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = d.GetUserByID(context.Background(), "2")
	assert.True(t, errors.Is(err, errs.ErrUserNotFound))
}

// 需要本地 postgres：TEST_DATABASE_URL=postgres://... go test ./service/directory
func TestPostgres(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p, err := NewPostgres(ctx, dsn)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY, username TEXT NOT NULL, email TEXT,
		status TEXT DEFAULT 'offline', profile_picture TEXT, created_at TIMESTAMPTZ DEFAULT now())`)
	require.NoError(t, err)

	var id string
	require.NoError(t, p.pool.QueryRow(ctx, `INSERT INTO users (username, email) VALUES ('bob', 'bob@example.com') RETURNING id::text`).Scan(&id))

	u, err := p.GetUserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)
	assert.Equal(t, model.StatusOffline, u.Status)

	require.NoError(t, p.Apply(ctx, chat.PresenceEvent{UserID: id, Status: chat.StatusOnline}))
	u, err = p.GetUserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOnline, u.Status)

	_, err = p.GetUserByID(ctx, "999999")
	assert.True(t, errors.Is(err, errs.ErrUserNotFound))
}

func TestMongo(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m, err := NewMongo(ctx, uri, "pprelay_test")
	require.NoError(t, err)
	defer func() { _ = m.Close(context.Background()) }()

	_, err = m.coll.DeleteMany(ctx, bson.M{"user_id": "m1"})
	require.NoError(t, err)
	_, err = m.coll.InsertOne(ctx, model.User{ID: "m1", Username: "carol", CreatedAt: time.Now()})
	require.NoError(t, err)

	u, err := m.GetUserByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "carol", u.Username)

	_, err = m.GetUserByID(ctx, "missing")
	assert.True(t, errors.Is(err, errs.ErrUserNotFound))
}
