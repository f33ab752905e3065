package core

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestBrokerPublishSubscribe(t *testing.T) {
	broker, err := NewNatsBroker(freePort(t))
	require.NoError(t, err)
	defer broker.Close()

	received := make(chan string, 1)
	_, err = broker.Subscribe("dreamchain.test", func(m *nats.Msg) {
		received <- string(m.Data)
	})
	require.NoError(t, err)

	require.NoError(t, broker.Publish("dreamchain.test", []byte("hello")))

	select {
	case msg := <-received:
		require.Equal(t, "hello", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broker message")
	}
}

func TestBrokerRefusesTakenPort(t *testing.T) {
	port := freePort(t)
	l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err)
	defer l.Close()

	_, err = NewNatsBroker(port)
	require.Error(t, err)
}
