// Package feed provides a live record source reading (timestamp,
// ticker, price) frames off a websocket, implementing the same
// iterator shape internal/ingest.Reader exposes so cmd/optimizer can
// drive internal/engine.PortfolioEngine.Run from either source
// interchangeably.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/equity-optimizer/pkg/types"
	"github.com/atlas-desktop/equity-optimizer/pkg/utils"
)

// Frame is one wire record off the feed, mirroring pkg/types.Record's
// three fields in JSON form.
type Frame struct {
	Timestamp string          `json:"timestamp"`
	Ticker    string          `json:"ticker"`
	Price     decimal.Decimal `json:"price"`
}

// Config configures a WebSocketSource.
type Config struct {
	URL               string
	ReconnectInterval time.Duration
	BufferSize        int
}

// DefaultConfig returns a Config dialing url with a 5-second
// reconnect cadence and a modest record buffer.
func DefaultConfig(url string) Config {
	return Config{URL: url, ReconnectInterval: 5 * time.Second, BufferSize: 256}
}

// WebSocketSource reads Frames off a websocket connection and
// surfaces them as pkg/types.Record values through Next, reconnecting
// in the background on a drop. It is a live analogue of
// internal/ingest.Reader: Next blocks until a record arrives or Close
// is observed. Read errors are not returned through Next; they are
// logged and the source waits for the reconnect monitor.
type WebSocketSource struct {
	cfg    Config
	logger *zap.Logger

	connMu sync.RWMutex
	conn   *websocket.Conn

	records chan types.Record
	errs    chan error
	done    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a source bound to cfg. Start must be called before Next.
func New(cfg Config, logger *zap.Logger) *WebSocketSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = 5 * time.Second
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	return &WebSocketSource{
		cfg:     cfg,
		logger:  logger.Named("feed"),
		records: make(chan types.Record, cfg.BufferSize),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}
}

// Start dials the feed and launches the read loop and the
// reconnect monitor. It returns once the initial connection succeeds.
func (w *WebSocketSource) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	_, err := utils.Retry(utils.DefaultRetryConfig(), func() (struct{}, error) {
		return struct{}{}, w.connect()
	})
	if err != nil {
		return fmt.Errorf("failed to connect to feed: %w", err)
	}

	go w.readLoop()
	go w.reconnectMonitor()

	w.logger.Info("feed started", zap.String("url", w.cfg.URL))
	return nil
}

// Close tears down the connection and unblocks any pending Next.
func (w *WebSocketSource) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	w.connMu.Lock()
	defer w.connMu.Unlock()
	if w.conn != nil {
		err := w.conn.Close()
		w.conn = nil
		return err
	}
	return nil
}

// Next returns the next record off the feed, blocking until one
// arrives or Close is called. A dropped connection does not end
// Next; it keeps waiting while the reconnect monitor redials.
func (w *WebSocketSource) Next() (types.Record, bool, error) {
	select {
	case rec, ok := <-w.records:
		if !ok {
			return types.Record{}, false, nil
		}
		return rec, true, nil
	case err := <-w.errs:
		return types.Record{}, false, err
	case <-w.done:
		return types.Record{}, false, nil
	}
}

func (w *WebSocketSource) connect() error {
	w.connMu.Lock()
	defer w.connMu.Unlock()

	u, err := url.Parse(w.cfg.URL)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return err
	}

	w.conn = conn
	w.logger.Debug("connected to feed")
	return nil
}

func (w *WebSocketSource) readLoop() {
	for {
		select {
		case <-w.ctx.Done():
			close(w.done)
			return
		default:
		}

		w.connMu.RLock()
		conn := w.conn
		w.connMu.RUnlock()

		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if w.ctx.Err() != nil {
				close(w.done)
				return
			}
			w.logger.Warn("feed read error, awaiting reconnect", zap.Error(err))
			w.connMu.Lock()
			if w.conn == conn {
				conn.Close()
				w.conn = nil
			}
			w.connMu.Unlock()
			time.Sleep(100 * time.Millisecond)
			continue
		}

		w.handleMessage(message)
	}
}

func (w *WebSocketSource) handleMessage(raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		w.logger.Debug("skipping malformed feed frame", zap.Error(err))
		return
	}

	rec := types.Record{Timestamp: frame.Timestamp, Ticker: frame.Ticker, Price: frame.Price}
	select {
	case w.records <- rec:
	case <-w.ctx.Done():
	}
}

// reconnectMonitor redials on a fixed cadence whenever the current
// connection is nil, rather than reconnecting inline from the read
// loop.
func (w *WebSocketSource) reconnectMonitor() {
	ticker := time.NewTicker(w.cfg.ReconnectInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.connMu.RLock()
			conn := w.conn
			w.connMu.RUnlock()
			if conn != nil {
				continue
			}
			if err := w.connect(); err != nil {
				w.logger.Warn("feed reconnect failed", zap.Error(err))
			} else {
				w.logger.Info("feed reconnected")
			}
		}
	}
}
