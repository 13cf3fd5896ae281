package chat

import (
	"iter"
	"sync"

	"PPRelay/tools/errs"
)

// ConnManager is the single source of truth for who is online and on which
// connection. One RWMutex guards both indexes so they never disagree.
type ConnManager struct {
	mu     sync.RWMutex
	byID   map[int64]*WsConn  // 主索引：connID -> wsConn
	byUser map[string]*WsConn // userID -> 当前绑定的连接
}

// Binding describes what a Bind call replaced.
type Binding struct {
	// Replaced 该用户此前绑定的另一条连接；它保留旧身份，但 LookupByUser 不再返回它
	Replaced *WsConn
	// PrevUser 该连接此前绑定的身份（重新 authenticate 为其他用户时）
	PrevUser string
	// PrevUnmapped PrevUser 的索引原本指向该连接，已被移除
	PrevUnmapped bool
}

func NewConnManager() *ConnManager {
	return &ConnManager{
		byID:   make(map[int64]*WsConn),
		byUser: make(map[string]*WsConn),
	}
}

// Register 新连接登记（未授权）
func (m *ConnManager) Register(c *WsConn) {
	if c == nil {
		return
	}
	m.mu.Lock()
	m.byID[c.ID] = c
	m.mu.Unlock()
}

// Bind associates user with c. A previous binding of user to another
// connection is replaced; c's own previous identity is unmapped if it
// still points at c.
func (m *ConnManager) Bind(c *WsConn, user string) (Binding, error) {
	if c == nil || user == "" {
		return Binding{}, errs.ErrUserIDRequired.Wrap()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[c.ID]; !ok {
		return Binding{}, errs.ErrNotRegistered.WrapMsg("", "conn", c.SnowID)
	}

	var b Binding
	// 如果已绑定其他用户，从旧 user 索引移除
	if prev := c.userID; prev != "" && prev != user {
		b.PrevUser = prev
		if m.byUser[prev] == c {
			delete(m.byUser, prev)
			b.PrevUnmapped = true
		}
	}
	if old, ok := m.byUser[user]; ok && old != c {
		b.Replaced = old
	}
	m.byUser[user] = c
	c.userID = user
	return b, nil
}

// Unregister removes c. It returns the identity c held and whether c was
// still that user's current connection. Unknown connections are a no-op.
//
// A stale connection, one whose user has since been bound elsewhere, only
// leaves the registry: the user's newer mapping stays and no offline is
// announced for it. Callers broadcast offline only when current is true.
func (m *ConnManager) Unregister(c *WsConn) (user string, current bool) {
	if c == nil {
		return "", false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[c.ID]; !ok {
		return "", false
	}
	delete(m.byID, c.ID)
	user = c.userID
	if user != "" && m.byUser[user] == c {
		delete(m.byUser, user)
		current = true
	}
	return user, current
}

func (m *ConnManager) LookupByUser(user string) (*WsConn, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byUser[user]
	return c, ok
}

// Identity returns the user bound to c, if any.
func (m *ConnManager) Identity(c *WsConn) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.byID[c.ID]; !ok || c.userID == "" {
		return "", false
	}
	return c.userID, true
}

// All yields a snapshot of the registered connections, taken when iteration
// starts. Each range over the result takes a fresh snapshot, and the lock is
// not held while the caller's loop body runs.
func (m *ConnManager) All() iter.Seq[*WsConn] {
	return func(yield func(*WsConn) bool) {
		for _, c := range m.snapshot() {
			if !yield(c) {
				return
			}
		}
	}
}

func (m *ConnManager) snapshot() []*WsConn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*WsConn, 0, len(m.byID))
	for _, c := range m.byID {
		out = append(out, c)
	}
	return out
}

// Users yields a snapshot of the currently bound user ids.
func (m *ConnManager) Users() iter.Seq[string] {
	return func(yield func(string) bool) {
		m.mu.RLock()
		users := make([]string, 0, len(m.byUser))
		for u := range m.byUser {
			users = append(users, u)
		}
		m.mu.RUnlock()
		for _, u := range users {
			if !yield(u) {
				return
			}
		}
	}
}

func (m *ConnManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

func (m *ConnManager) OnlineUsers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser)
}

// CloseAll closes every registered connection outside the lock and returns
// how many were closed. Read loops then unregister them as usual.
func (m *ConnManager) CloseAll() int {
	conns := m.snapshot()
	for _, c := range conns {
		c.Close()
	}
	return len(conns)
}
