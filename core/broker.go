package core

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// NatsBroker runs an embedded NATS server and holds a client connection to
// it. Registry and consensus events are published through it so that any
// number of subscribers (websocket clients, dashboards) can observe them.
type NatsBroker struct {
	server *server.Server
	conn   *nats.Conn
}

// NatsBrokerInstance is the process-wide broker, set by SetupNatsBroker.
// Publish helpers tolerate it being nil so tests can run without a broker.
var NatsBrokerInstance *NatsBroker

// SetupNatsBroker starts an embedded NATS server on the given port and
// assigns the global broker instance.
func SetupNatsBroker(port int) error {
	broker, err := NewNatsBroker(port)
	if err != nil {
		return err
	}
	NatsBrokerInstance = broker
	return nil
}

// NewNatsBroker starts an embedded NATS server on the given port and
// connects a client to it.
func NewNatsBroker(port int) (*NatsBroker, error) {
	opts := &server.Options{
		Host:   "127.0.0.1",
		Port:   port,
		NoLog:  true,
		NoSigs: true,
	}

	srv, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create nats server: %w", err)
	}

	go srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		srv.Shutdown()
		return nil, fmt.Errorf("nats server not ready on port %d", port)
	}

	conn, err := nats.Connect(srv.ClientURL())
	if err != nil {
		srv.Shutdown()
		return nil, fmt.Errorf("connect to embedded nats: %w", err)
	}

	return &NatsBroker{server: srv, conn: conn}, nil
}

// Publish sends a message on the given subject.
func (b *NatsBroker) Publish(subject string, data []byte) error {
	return b.conn.Publish(subject, data)
}

// Subscribe registers a handler for the given subject.
func (b *NatsBroker) Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error) {
	return b.conn.Subscribe(subject, handler)
}

// Close drains the client connection and shuts the embedded server down.
func (b *NatsBroker) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
	if b.server != nil {
		b.server.Shutdown()
	}
}
