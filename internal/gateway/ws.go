package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"levelwatch/internal/contract"
)

// Wire protocol of the market-data bridge. Every request carries a client
// request id; the bridge echoes it back on responses and ticks.
type wsRequest struct {
	Op       string               `json:"op"` // resolve | subscribe | unsubscribe
	ID       int64                `json:"id"`
	Contract *contract.Descriptor `json:"contract,omitempty"`
}

type wsMessage struct {
	Op       string               `json:"op"` // contract | tick | error
	ID       int64                `json:"id"`
	Contract *contract.Descriptor `json:"contract,omitempty"`
	Error    string               `json:"error,omitempty"`

	// Tick fields are pointers so an omitted field stays absent rather than
	// collapsing to zero.
	Last   *float64 `json:"last,omitempty"`
	Close  *float64 `json:"close,omitempty"`
	Bid    *float64 `json:"bid,omitempty"`
	Ask    *float64 `json:"ask,omitempty"`
	Volume *float64 `json:"volume,omitempty"`
	TsMs   int64    `json:"ts_ms,omitempty"`
}

type resolveResult struct {
	desc contract.Descriptor
	err  error
}

// WSDialer dials the market-data bridge over WebSocket.
type WSDialer struct {
	URL            string
	ResolveTimeout time.Duration
	Logger         *zap.Logger
}

func (d *WSDialer) Dial(ctx context.Context) (Conn, error) {
	if d == nil || d.URL == "" {
		return nil, fmt.Errorf("gateway url not configured")
	}
	ws, _, err := websocket.Dial(ctx, d.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial gateway: %w", err)
	}
	ws.SetReadLimit(1 << 20)

	readCtx, cancel := context.WithCancel(context.Background())
	c := &WSConn{
		ws:             ws,
		logger:         d.Logger,
		resolveTimeout: d.ResolveTimeout,
		cancelRead:     cancel,
		quotes:         map[int64]Quote{},
		pending:        map[int64]chan resolveResult{},
	}
	if c.resolveTimeout <= 0 {
		c.resolveTimeout = 10 * time.Second
	}
	go c.readLoop(readCtx)
	return c, nil
}

// WSConn is a live bridge connection. A background read loop routes contract
// responses to their waiting callers and folds ticks into per-subscription
// quote state.
type WSConn struct {
	ws             *websocket.Conn
	logger         *zap.Logger
	resolveTimeout time.Duration
	cancelRead     context.CancelFunc

	nextID atomic.Int64

	mu      sync.Mutex
	quotes  map[int64]Quote
	pending map[int64]chan resolveResult
}

func (c *WSConn) readLoop(ctx context.Context) {
	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			c.failPending(err)
			return
		}
		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			if c.logger != nil {
				c.logger.Warn("gateway message unreadable", zap.Error(err))
			}
			continue
		}
		switch msg.Op {
		case "contract", "error":
			c.deliverResolve(msg)
		case "tick":
			c.applyTick(msg)
		}
	}
}

func (c *WSConn) deliverResolve(msg wsMessage) {
	c.mu.Lock()
	ch, ok := c.pending[msg.ID]
	if ok {
		delete(c.pending, msg.ID)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	if msg.Error != "" {
		ch <- resolveResult{err: fmt.Errorf("gateway: %s", msg.Error)}
		return
	}
	if msg.Contract == nil {
		ch <- resolveResult{err: contract.ErrNoMatch}
		return
	}
	ch <- resolveResult{desc: *msg.Contract}
}

func (c *WSConn) applyTick(msg wsMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.quotes[msg.ID]
	if !ok {
		return // tick after unsubscribe
	}
	if msg.Last != nil {
		q.Last = *msg.Last
	}
	if msg.Close != nil {
		q.Close = *msg.Close
	}
	if msg.Bid != nil {
		q.Bid = *msg.Bid
	}
	if msg.Ask != nil {
		q.Ask = *msg.Ask
	}
	if msg.Volume != nil {
		q.Volume = *msg.Volume
	}
	if msg.TsMs > 0 {
		q.Timestamp = time.UnixMilli(msg.TsMs).UTC()
	}
	c.quotes[msg.ID] = q
}

func (c *WSConn) failPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		delete(c.pending, id)
		ch <- resolveResult{err: err}
	}
}

func (c *WSConn) send(ctx context.Context, req wsRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return c.ws.Write(ctx, websocket.MessageText, payload)
}

func (c *WSConn) ResolveContract(ctx context.Context, skeleton contract.Descriptor) (contract.Descriptor, error) {
	id := c.nextID.Add(1)
	ch := make(chan resolveResult, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.send(ctx, wsRequest{Op: "resolve", ID: id, Contract: &skeleton}); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return contract.Descriptor{}, err
	}

	timer := time.NewTimer(c.resolveTimeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		return res.desc, res.err
	case <-timer.C:
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return contract.Descriptor{}, fmt.Errorf("resolve %s: gateway timeout", skeleton.Symbol)
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return contract.Descriptor{}, ctx.Err()
	}
}

func (c *WSConn) Subscribe(ctx context.Context, desc contract.Descriptor) (SubID, error) {
	id := c.nextID.Add(1)
	c.mu.Lock()
	c.quotes[id] = EmptyQuote()
	c.mu.Unlock()

	if err := c.send(ctx, wsRequest{Op: "subscribe", ID: id, Contract: &desc}); err != nil {
		c.mu.Lock()
		delete(c.quotes, id)
		c.mu.Unlock()
		return 0, err
	}
	return SubID(id), nil
}

func (c *WSConn) Quote(id SubID) Quote {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.quotes[int64(id)]
	if !ok {
		return EmptyQuote()
	}
	return q
}

func (c *WSConn) Unsubscribe(ctx context.Context, id SubID) error {
	c.mu.Lock()
	delete(c.quotes, int64(id))
	c.mu.Unlock()
	return c.send(ctx, wsRequest{Op: "unsubscribe", ID: int64(id)})
}

func (c *WSConn) Close(ctx context.Context) error {
	c.cancelRead()
	return c.ws.Close(websocket.StatusNormalClosure, "done")
}
