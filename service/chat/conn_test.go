package chat

import (
	"testing"
	"time"

	"PPRelay/service/chat/chattest"
	"PPRelay/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWsConn_SendInOrder(t *testing.T) {
	sock := chattest.NewSocket()
	c := NewWsConn(1, "1", sock, "test", ConnOptions{}, nil)
	c.Start()
	defer c.Close()

	for _, p := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		require.NoError(t, c.Send([]byte(p)))
	}
	for _, want := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		assert.Equal(t, want, string(sock.NextRaw(t, time.Second)))
	}
}

func TestWsConn_SendAfterClose(t *testing.T) {
	sock := chattest.NewSocket()
	c := NewWsConn(1, "1", sock, "test", ConnOptions{}, nil)
	c.Start()
	c.Close()
	c.Close()

	assert.True(t, c.Closed())
	assert.True(t, sock.Closed())
	err := c.Send([]byte("{}"))
	assert.True(t, errs.ErrConnClosed.Is(err))
	select {
	case <-c.Done():
	default:
		t.Fatal("done not closed")
	}
}

func TestWsConn_SendTimeoutWhenQueueFull(t *testing.T) {
	sock := chattest.NewSocket()
	sock.Block()
	c := NewWsConn(1, "1", sock, "test", ConnOptions{SendQueueSize: 1, SendTimeout: 20 * time.Millisecond}, nil)
	c.Start()
	defer c.Close()

	// 第一帧被写协程取走并阻塞在 socket 上，第二帧占满队列
	require.NoError(t, c.Send([]byte("1")))
	require.Eventually(t, func() bool { return len(c.send) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, c.Send([]byte("2")))

	start := time.Now()
	err := c.Send([]byte("3"))
	assert.True(t, errs.ErrDeliveryFailed.Is(err))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.False(t, c.Closed())

	sock.Unblock()
	assert.Equal(t, "1", string(sock.NextRaw(t, time.Second)))
	assert.Equal(t, "2", string(sock.NextRaw(t, time.Second)))
}

func TestWsConn_WriteFailureCloses(t *testing.T) {
	sock := chattest.NewSocket()
	sock.FailWrites()
	c := NewWsConn(1, "1", sock, "test", ConnOptions{}, nil)
	c.Start()

	require.NoError(t, c.Send([]byte("x")))
	require.Eventually(t, c.Closed, time.Second, time.Millisecond)
	assert.True(t, sock.Closed())
}

func TestWsConn_Ping(t *testing.T) {
	sock := chattest.NewSocket()
	c := NewWsConn(1, "1", sock, "test", ConnOptions{PingInterval: 5 * time.Millisecond}, nil)
	c.Start()
	defer c.Close()

	assert.Eventually(t, func() bool { return sock.Pings() >= 2 }, time.Second, time.Millisecond)
}

func TestWsConn_RateLimit(t *testing.T) {
	c := NewWsConn(1, "1", chattest.NewSocket(), "test", ConnOptions{RateBurst: 3, RateRefill: time.Hour}, nil)
	for i := 0; i < 3; i++ {
		assert.True(t, c.Allow())
	}
	assert.False(t, c.Allow())

	unlimited := NewWsConn(2, "2", chattest.NewSocket(), "test", ConnOptions{}, nil)
	for i := 0; i < 100; i++ {
		require.True(t, unlimited.Allow())
	}
}
