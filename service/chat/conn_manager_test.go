package chat

import (
	"fmt"
	"sync"
	"testing"

	"PPRelay/service/chat/chattest"
	"PPRelay/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConn(id int64) *WsConn {
	return NewWsConn(id, fmt.Sprint(id), chattest.NewSocket(), "test", ConnOptions{}, nil)
}

func TestConnManager_BindAndLookup(t *testing.T) {
	m := NewConnManager()
	c := testConn(1)

	_, err := m.Bind(c, "alice")
	assert.True(t, errs.ErrNotRegistered.Is(err))

	m.Register(c)
	_, ok := m.Identity(c)
	assert.False(t, ok)

	_, err = m.Bind(c, "")
	assert.True(t, errs.ErrUserIDRequired.Is(err))

	b, err := m.Bind(c, "alice")
	require.NoError(t, err)
	assert.Equal(t, Binding{}, b)

	got, ok := m.LookupByUser("alice")
	require.True(t, ok)
	assert.Same(t, c, got)
	user, ok := m.Identity(c)
	assert.True(t, ok)
	assert.Equal(t, "alice", user)
	assert.Equal(t, 1, m.Count())
	assert.Equal(t, 1, m.OnlineUsers())
}

func TestConnManager_RebindSameConn(t *testing.T) {
	m := NewConnManager()
	c := testConn(1)
	m.Register(c)

	_, err := m.Bind(c, "alice")
	require.NoError(t, err)
	b, err := m.Bind(c, "bob")
	require.NoError(t, err)
	assert.Equal(t, "alice", b.PrevUser)
	assert.Nil(t, b.Replaced)

	_, ok := m.LookupByUser("alice")
	assert.False(t, ok)
	got, _ := m.LookupByUser("bob")
	assert.Same(t, c, got)

	// 同一用户重复认证
	b, err = m.Bind(c, "bob")
	require.NoError(t, err)
	assert.Equal(t, Binding{}, b)
}

func TestConnManager_SecondConnReplacesFirst(t *testing.T) {
	m := NewConnManager()
	c1, c2 := testConn(1), testConn(2)
	m.Register(c1)
	m.Register(c2)

	_, err := m.Bind(c1, "alice")
	require.NoError(t, err)
	b, err := m.Bind(c2, "alice")
	require.NoError(t, err)
	assert.Same(t, c1, b.Replaced)

	got, _ := m.LookupByUser("alice")
	assert.Same(t, c2, got)
	// c1 keeps its stale identity
	user, ok := m.Identity(c1)
	assert.True(t, ok)
	assert.Equal(t, "alice", user)

	user, current := m.Unregister(c1)
	assert.Equal(t, "alice", user)
	assert.False(t, current)
	got, ok = m.LookupByUser("alice")
	require.True(t, ok)
	assert.Same(t, c2, got)

	// c1 rebinding elsewhere must not unmap c2
	m.Register(c1)
	_, err = m.Bind(c1, "carol")
	require.NoError(t, err)
	got, _ = m.LookupByUser("alice")
	assert.Same(t, c2, got)
}

func TestConnManager_UnregisterIdempotent(t *testing.T) {
	m := NewConnManager()
	c := testConn(1)
	m.Register(c)
	_, err := m.Bind(c, "alice")
	require.NoError(t, err)

	user, current := m.Unregister(c)
	assert.Equal(t, "alice", user)
	assert.True(t, current)

	user, current = m.Unregister(c)
	assert.Empty(t, user)
	assert.False(t, current)
	assert.Equal(t, 0, m.Count())
	assert.Equal(t, 0, m.OnlineUsers())

	_, ok := m.Identity(c)
	assert.False(t, ok)
	for range m.All() {
		t.Fatal("registry not empty")
	}
}

func TestConnManager_AllIsSnapshot(t *testing.T) {
	m := NewConnManager()
	for i := int64(1); i <= 3; i++ {
		m.Register(testConn(i))
	}
	n := 0
	for c := range m.All() {
		// 遍历中修改注册表不会死锁
		m.Unregister(c)
		m.Register(testConn(100 + c.ID))
		n++
	}
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, m.Count())

	n = 0
	for range m.All() {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestConnManager_Users(t *testing.T) {
	m := NewConnManager()
	for i, u := range []string{"a", "b"} {
		c := testConn(int64(i))
		m.Register(c)
		_, err := m.Bind(c, u)
		require.NoError(t, err)
	}
	m.Register(testConn(9))

	var users []string
	for u := range m.Users() {
		users = append(users, u)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, users)
}

func TestConnManager_CloseAll(t *testing.T) {
	m := NewConnManager()
	conns := []*WsConn{testConn(1), testConn(2)}
	for _, c := range conns {
		m.Register(c)
	}
	assert.Equal(t, 2, m.CloseAll())
	for _, c := range conns {
		assert.True(t, c.Closed())
	}
}

func TestConnManager_Concurrent(t *testing.T) {
	m := NewConnManager()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := testConn(int64(i))
			m.Register(c)
			user := fmt.Sprintf("u%d", i%10)
			_, _ = m.Bind(c, user)
			m.LookupByUser(user)
			for range m.All() {
			}
			m.Unregister(c)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, m.Count())
	assert.Equal(t, 0, m.OnlineUsers())
}
