// Package stream forwards sealed tick frames to a NATS JetStream stream
// so external consumers (analytics, audit tooling) can replay combat
// history without holding a websocket open.
package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"duskhaven/server/internal/telemetry"
)

const (
	// StreamName is the JetStream stream holding tick frames.
	StreamName = "DUSKHAVEN_EVENTS"
	// Subject carries every tick frame; the session rides in a header.
	Subject = "duskhaven.events.tick"

	connectTimeout = 5 * time.Second
	maxFrameAge    = 24 * time.Hour
)

// Forwarder publishes marshaled tick frames to JetStream. Publishes are
// async so a slow broker never stalls the tick.
type Forwarder struct {
	conn      *nats.Conn
	js        jetstream.JetStream
	sessionID string
	logger    telemetry.Logger
	metrics   telemetry.Metrics
}

// NewForwarder connects to the broker and ensures the stream exists.
func NewForwarder(ctx context.Context, url, sessionID string, logger telemetry.Logger, metrics telemetry.Metrics) (*Forwarder, error) {
	conn, err := nats.Connect(url,
		nats.Timeout(connectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("stream: connect %s: %w", url, err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("stream: jetstream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{"duskhaven.events.>"},
		Storage:  jetstream.FileStorage,
		MaxAge:   maxFrameAge,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("stream: ensure stream %s: %w", StreamName, err)
	}

	return &Forwarder{
		conn:      conn,
		js:        js,
		sessionID: sessionID,
		logger:    logger,
		metrics:   metrics,
	}, nil
}

// PublishFrame hands one tick frame to the broker. Failures are counted
// and logged; the session never blocks on delivery.
func (f *Forwarder) PublishFrame(tick uint64, data []byte) {
	msg := &nats.Msg{
		Subject: Subject,
		Data:    data,
		Header: nats.Header{
			"Duskhaven-Session": []string{f.sessionID},
			"Duskhaven-Tick":    []string{fmt.Sprintf("%d", tick)},
		},
	}
	future, err := f.js.PublishMsgAsync(msg)
	if err != nil {
		f.dropped(tick, err)
		return
	}
	go func() {
		select {
		case <-future.Ok():
		case err := <-future.Err():
			f.dropped(tick, err)
		}
	}()
}

func (f *Forwarder) dropped(tick uint64, err error) {
	if f.metrics != nil {
		f.metrics.Add("stream_frames_dropped_total", 1)
	}
	if f.logger != nil {
		f.logger.Printf("stream publish for tick %d failed: %v", tick, err)
	}
}

// Close drains the connection, flushing pending async publishes.
func (f *Forwarder) Close() {
	select {
	case <-f.js.PublishAsyncComplete():
	case <-time.After(connectTimeout):
	}
	f.conn.Drain()
}
