package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/podcast-audio-service/internal/config"
)

const (
	readyTimeout   = 5 * time.Second
	connectTimeout = 5 * time.Second
	drainTimeout   = 10 * time.Second
	clientName     = "podcast-audio-service"
)

var errEmbeddedNotReady = errors.New("embedded NATS server failed to start in time")

// bus is a NATS connection plus an optional in-process server.
type bus struct {
	server    *server.Server
	conn      *nats.Conn
	jetstream nats.JetStreamContext
	log       *logger.Logger
	closed    chan struct{}
}

// connectBus connects to cfg.URL, or to a freshly started embedded server.
func connectBus(cfg config.NATSConfig, log *logger.Logger, embedded bool) (*bus, error) {
	result := &bus{log: log, closed: make(chan struct{})}
	url := cfg.URL

	if embedded {
		embeddedServer, err := startEmbedded(cfg.StoreDir)
		if err != nil {
			return nil, err
		}

		result.server = embeddedServer
		url = embeddedServer.ClientURL()

		log.Info("Embedded NATS server started at %s (store: %s)", url, cfg.StoreDir)
	}

	if url == "" {
		url = nats.DefaultURL
	}

	conn, err := nats.Connect(url,
		nats.Name(clientName),
		nats.Timeout(connectTimeout),
		nats.DrainTimeout(drainTimeout),
		nats.ClosedHandler(func(*nats.Conn) { close(result.closed) }),
	)
	if err != nil {
		result.Close()

		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}

	result.conn = conn

	jetstreamContext, err := conn.JetStream()
	if err != nil {
		result.Close()

		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	result.jetstream = jetstreamContext

	log.Info("Connected to NATS at %s", url)

	return result, nil
}

func startEmbedded(storeDir string) (*server.Server, error) {
	embeddedServer, err := server.NewServer(&server.Options{
		Host:      "127.0.0.1",
		Port:      server.RANDOM_PORT,
		JetStream: true,
		StoreDir:  storeDir,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedded NATS server: %w", err)
	}

	go embeddedServer.Start()

	if !embeddedServer.ReadyForConnections(readyTimeout) {
		embeddedServer.Shutdown()

		return nil, errEmbeddedNotReady
	}

	return embeddedServer, nil
}

// Close drains the connection, waits for the drain to finish and stops the
// embedded server, if any.
func (b *bus) Close() {
	if b.conn != nil {
		b.drain()
	}

	if b.server != nil {
		b.log.Info("Shutting down embedded NATS server")
		b.server.Shutdown()
		b.server.WaitForShutdown()
	}
}

func (b *bus) drain() {
	err := b.conn.Drain()
	if err != nil {
		b.log.Warn("NATS drain failed, closing: %v", err)
		b.conn.Close()

		return
	}

	select {
	case <-b.closed:
	case <-time.After(drainTimeout + time.Second):
		b.log.Warn("NATS drain did not finish within %s, closing", drainTimeout)
		b.conn.Close()
	}
}
