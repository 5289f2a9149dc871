package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSMirror publishes every bus event to a JetStream subject and can cache
// a build hash per portfolio name in a KV bucket (LastBuildHash /
// SetLastBuildHash); the daemon does not read or write that cache. Grounded on the teacher's
// internal/linkverify/nats_client.go (connect/reconnect/KV-bucket pattern),
// trimmed to fashion's single subject + single KV use (no per-URL cache).
type NATSMirror struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	kv      jetstream.KeyValue
	subject string
	bucket  string
	mu      sync.RWMutex
}

// NewNATSMirror connects to url and prepares the subject/bucket used by
// fashion's build events. Connection failure is returned to the caller;
// unlike the pipeline's core build, wiring this mirror is opt-in and the
// caller may choose to run without it on error.
func NewNATSMirror(ctx context.Context, url, subject, bucket string) (*NATSMirror, error) {
	if url == "" {
		return nil, errors.New("eventbus: NATS url required")
	}
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("eventbus: NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("eventbus: NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("eventbus: connect: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("eventbus: jetstream: %w", err)
	}

	m := &NATSMirror{conn: conn, js: js, subject: subject, bucket: bucket}
	if err := m.ensureStream(ctx); err != nil {
		slog.Warn("eventbus: stream init failed, continuing without persistence guarantees", "error", err)
	}
	if err := m.ensureBucket(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("eventbus: kv bucket: %w", err)
	}
	return m, nil
}

func (m *NATSMirror) ensureStream(ctx context.Context) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	const streamName = "FASHION_BUILD_EVENTS"
	if _, err := m.js.Stream(timeoutCtx, streamName); err == nil {
		return nil
	}
	_, err := m.js.CreateStream(timeoutCtx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{m.subject},
		Retention: jetstream.LimitsPolicy,
		MaxMsgs:   10000,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   jetstream.FileStorage,
		Discard:   jetstream.DiscardOld,
	})
	return err
}

func (m *NATSMirror) ensureBucket(ctx context.Context) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	kv, err := m.js.KeyValue(timeoutCtx, m.bucket)
	if err == nil {
		m.kv = kv
		return nil
	}
	kv, err = m.js.CreateKeyValue(timeoutCtx, jetstream.KeyValueConfig{
		Bucket:      m.bucket,
		Description: "fashion build hash cache",
		History:     1,
	})
	if err != nil {
		return err
	}
	m.kv = kv
	return nil
}

// Publish sends e to the configured subject as JSON.
func (m *NATSMirror) Publish(e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("eventbus: marshal: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m.mu.RLock()
	js := m.js
	m.mu.RUnlock()
	_, err = js.Publish(ctx, m.subject, data)
	return err
}

// LastBuildHash returns the cached manifest hash for portfolioName, if any.
func (m *NATSMirror) LastBuildHash(ctx context.Context, portfolioName string) (string, bool) {
	m.mu.RLock()
	kv := m.kv
	m.mu.RUnlock()
	if kv == nil {
		return "", false
	}
	entry, err := kv.Get(ctx, portfolioName)
	if err != nil {
		return "", false
	}
	return string(entry.Value()), true
}

// SetLastBuildHash caches the manifest hash for portfolioName.
func (m *NATSMirror) SetLastBuildHash(ctx context.Context, portfolioName, hash string) error {
	m.mu.RLock()
	kv := m.kv
	m.mu.RUnlock()
	if kv == nil {
		return errors.New("eventbus: kv bucket not initialised")
	}
	_, err := kv.Put(ctx, portfolioName, []byte(hash))
	return err
}

// Close closes the underlying NATS connection.
func (m *NATSMirror) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
}
