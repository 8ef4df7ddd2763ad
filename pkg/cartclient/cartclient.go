// Package cartclient keeps a front end's copy of the server cart usable
// while the API is unreachable.
//
//	c := cartclient.New(cartclient.Config{
//	    BaseURL: "https://api.naturelovers.in",
//	    Token:   accessToken,
//	    Store:   &cartclient.FileStore{Dir: cacheDir},
//	})
//	_ = c.Load(ctx)
//	_ = c.Add(ctx, item)      // offline: applied locally and journaled
//	_ = c.Sync(ctx)           // replays the journal once the API is back
//
// Every mutation goes to the server first. When the server cannot be
// reached (transport failure or 5xx) the same rule the server applies is
// applied to the local mirror and the operation is journaled. Application
// errors come back as *APIError and leave the mirror alone.
package cartclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/naturelovers/storefront/app/models"
	khttp "github.com/naturelovers/storefront/pkg/http"
	"github.com/naturelovers/storefront/pkg/logger"
)

// State describes how the mirror relates to the server cart.
type State int

const (
	// Synced: the mirror equals the last server response.
	Synced State = iota
	// PendingRetry: local changes wait in the journal.
	PendingRetry
	// LocalOnly: the server stayed unreachable; the mirror is all there is.
	LocalOnly
)

func (s State) String() string {
	switch s {
	case Synced:
		return "synced"
	case PendingRetry:
		return "pending-retry"
	case LocalOnly:
		return "local-only"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// OpKind names a journaled mutation.
type OpKind string

const (
	OpAdd    OpKind = "add"
	OpUpdate OpKind = "update"
	OpRemove OpKind = "remove"
	OpClear  OpKind = "clear"
)

// Op is one journaled mutation.
type Op struct {
	Kind     OpKind          `json:"kind"`
	Item     models.LineItem `json:"item"`
	Quantity int             `json:"quantity,omitempty"`
}

// Conflict is a journaled op the server refused during Sync.
type Conflict struct {
	Op      Op
	Status  int
	Message string
}

// APIError is a 4xx answer from the cart API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cartclient: %d %s", e.Status, e.Message)
}

var (
	// ErrUnreachable wraps failures where the API could not answer.
	ErrUnreachable = errors.New("cartclient: server unreachable")
	// ErrNotInCart is returned for a line missing from the mirror.
	ErrNotInCart = errors.New("cartclient: Item not found in cart")
)

// IsUnauthorized reports a 401, after which the token has been cleared.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Token   string
	// Store persists the snapshot; nil keeps it in memory.
	Store LocalStore
	// Timeout bounds each request; default 10s.
	Timeout time.Duration
	// SyncAttempts and SyncBackoff are the retry budget of each replayed op.
	SyncAttempts int
	SyncBackoff  time.Duration
}

// Client is the cart mirror. It is safe for concurrent use; calls are
// serialized so the journal keeps their order.
type Client struct {
	cfg Config

	mu        sync.Mutex
	token     string
	cart      models.Cart
	pending   []Op
	conflicts []Conflict
	state     State
	onChange  func(State)
}

// New returns a client in state LocalOnly with an empty mirror; call Load.
func New(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Store == nil {
		cfg.Store = &MemoryStore{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.SyncAttempts < 1 {
		cfg.SyncAttempts = 3
	}
	if cfg.SyncBackoff <= 0 {
		cfg.SyncBackoff = 500 * time.Millisecond
	}
	c := &Client{cfg: cfg, token: cfg.Token, state: LocalOnly}
	c.cart.Clear()
	return c
}

// OnStateChange registers fn, called outside the client lock after each
// transition.
func (c *Client) OnStateChange(fn func(State)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Token is the current access token; "" after a 401.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) SetToken(t string) {
	c.mu.Lock()
	c.token = t
	c.mu.Unlock()
}

// Items returns a copy of the mirrored lines.
func (c *Client) Items() []models.LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.LineItem(nil), c.cart.Items...)
}

// Pending returns a copy of the journal.
func (c *Client) Pending() []Op {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Op(nil), c.pending...)
}

// Conflicts returns the ops dropped by Sync.
func (c *Client) Conflicts() []Conflict {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Conflict(nil), c.conflicts...)
}

func (c *Client) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cart.TotalItems
}

func (c *Client) TotalPrice() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cart.TotalAmount
}

// ItemCount is the quantity held of one line, 0 when absent.
func (c *Client) ItemCount(itemID, itemType string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.cart.Find(models.LineKey{ItemID: itemID, Type: itemType}); i >= 0 {
		return c.cart.Items[i].Quantity
	}
	return 0
}

// locked runs fn under the lock and reports a state change afterwards.
func (c *Client) locked(fn func() error) error {
	c.mu.Lock()
	before := c.state
	err := fn()
	after, cb := c.state, c.onChange
	c.mu.Unlock()

	if cb != nil && before != after {
		cb(after)
	}
	return err
}

// ─── Server calls ─────────────────────────────────────────────────────────────

type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    models.Cart `json:"data"`
}

// request runs one cart API call with attempts tries and decodes the cart.
func (c *Client) request(ctx context.Context, method, path string, body any, attempts int) (*models.Cart, error) {
	url := c.cfg.BaseURL + path
	var req *khttp.Request
	switch method {
	case http.MethodGet:
		req = khttp.Get(url)
	case http.MethodPost:
		req = khttp.Post(url)
	case http.MethodPut:
		req = khttp.Put(url)
	case http.MethodDelete:
		req = khttp.Delete(url)
	default:
		return nil, fmt.Errorf("cartclient: unsupported method %s", method)
	}
	if body != nil {
		req = req.Body(body)
	}

	resp, err := req.WithContext(ctx).
		Bearer(c.token).
		Timeout(c.cfg.Timeout).
		Retry(attempts, c.cfg.SyncBackoff).
		Send()
	if err != nil {
		if khttp.IsTransport(err) {
			return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
		}
		return nil, err
	}

	var env envelope
	decodeErr := json.Unmarshal(resp.Raw, &env)
	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized:
		c.token = ""
		return nil, &APIError{Status: resp.StatusCode, Message: env.Message}
	case !resp.OK():
		return nil, &APIError{Status: resp.StatusCode, Message: env.Message}
	case decodeErr != nil:
		return nil, fmt.Errorf("cartclient: decode cart: %w", decodeErr)
	}
	return &env.Data, nil
}

func (c *Client) send(ctx context.Context, op Op, attempts int) (*models.Cart, error) {
	ref := map[string]string{"itemId": op.Item.ItemID, "type": op.Item.Type}
	switch op.Kind {
	case OpAdd:
		return c.request(ctx, http.MethodPost, "/api/cart/add", op.Item, attempts)
	case OpUpdate:
		return c.request(ctx, http.MethodPut, "/api/cart/update", map[string]any{
			"itemId": op.Item.ItemID, "type": op.Item.Type, "quantity": op.Quantity,
		}, attempts)
	case OpRemove:
		return c.request(ctx, http.MethodDelete, "/api/cart/remove", ref, attempts)
	case OpClear:
		return c.request(ctx, http.MethodDelete, "/api/cart/clear", nil, attempts)
	}
	return nil, fmt.Errorf("cartclient: unknown op %q", op.Kind)
}

// ─── Local state ──────────────────────────────────────────────────────────────

type snapshot struct {
	Items   []models.LineItem `json:"items"`
	Pending []Op              `json:"pending,omitempty"`
}

func (c *Client) persist() {
	raw, err := json.Marshal(snapshot{Items: c.cart.Items, Pending: c.pending})
	if err == nil {
		err = c.cfg.Store.Save(SnapshotKey, raw)
	}
	if err != nil {
		logger.Warn("cartclient: snapshot not saved", "error", err)
	}
}

func (c *Client) readSnapshot() (snapshot, bool) {
	var snap snapshot
	raw, err := c.cfg.Store.Load(SnapshotKey)
	if err != nil {
		if !errors.Is(err, ErrNoSnapshot) {
			logger.Warn("cartclient: snapshot unreadable", "error", err)
		}
		return snap, false
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		logger.Warn("cartclient: snapshot corrupt", "error", err)
		return snapshot{}, false
	}
	return snap, true
}

func (c *Client) replace(server *models.Cart) {
	c.cart = *server
	if c.cart.Items == nil {
		c.cart.Items = []models.LineItem{}
	}
	c.cart.Recalculate()
}

// applyLocal runs op on the mirror with the server's rules.
func (c *Client) applyLocal(op Op) error {
	key := op.Item.Key()
	switch op.Kind {
	case OpAdd:
		c.cart.AddLine(op.Item)
	case OpUpdate:
		if !c.cart.SetQuantity(key, op.Quantity) {
			return ErrNotInCart
		}
	case OpRemove:
		if !c.cart.RemoveLine(key) {
			return ErrNotInCart
		}
	case OpClear:
		c.cart.Clear()
	}
	return nil
}

// mutate sends op; when the server is unreachable op is applied locally and
// journaled.
func (c *Client) mutate(ctx context.Context, op Op) error {
	return c.locked(func() error {
		if len(c.pending) == 0 {
			server, err := c.send(ctx, op, 1)
			if err == nil {
				c.replace(server)
				c.state = Synced
				c.persist()
				return nil
			}
			if !errors.Is(err, ErrUnreachable) {
				return err
			}
			logger.WithCtx(ctx).Info("cartclient: server unreachable, applying locally", "op", op.Kind, "error", err)
		}
		// with a journal pending, later ops queue behind it to keep their order
		if err := c.applyLocal(op); err != nil {
			return err
		}
		c.pending = append(c.pending, op)
		c.state = PendingRetry
		c.persist()
		return nil
	})
}

// ─── Public operations ────────────────────────────────────────────────────────

// Load fetches the server cart. A journal left by an earlier run is
// replayed first. When the server is unreachable the saved snapshot is
// loaded and the state becomes LocalOnly; that is not an error.
func (c *Client) Load(ctx context.Context) error {
	return c.locked(func() error {
		snap, ok := c.readSnapshot()
		if ok && len(c.pending) == 0 && len(snap.Pending) > 0 {
			c.cart.Items = snap.Items
			c.cart.Recalculate()
			c.pending = snap.Pending
		}
		if len(c.pending) > 0 {
			if err := c.sync(ctx); err != nil && !errors.Is(err, ErrUnreachable) {
				return err
			}
			return nil
		}

		server, err := c.request(ctx, http.MethodGet, "/api/cart", nil, 1)
		if err == nil {
			c.replace(server)
			c.state = Synced
			c.persist()
			return nil
		}
		if !errors.Is(err, ErrUnreachable) {
			return err
		}
		if ok {
			c.cart.Items = snap.Items
			if c.cart.Items == nil {
				c.cart.Items = []models.LineItem{}
			}
			c.cart.Recalculate()
		}
		c.state = LocalOnly
		return nil
	})
}

// Add merges item into its line; quantity below 1 counts as 1.
func (c *Client) Add(ctx context.Context, item models.LineItem) error {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	return c.mutate(ctx, Op{Kind: OpAdd, Item: item})
}

// UpdateQuantity overwrites a line's quantity; 0 or less removes it.
func (c *Client) UpdateQuantity(ctx context.Context, itemID, itemType string, qty int) error {
	if qty <= 0 {
		return c.Remove(ctx, itemID, itemType)
	}
	return c.mutate(ctx, Op{Kind: OpUpdate, Item: models.LineItem{ItemID: itemID, Type: itemType}, Quantity: qty})
}

func (c *Client) Remove(ctx context.Context, itemID, itemType string) error {
	return c.mutate(ctx, Op{Kind: OpRemove, Item: models.LineItem{ItemID: itemID, Type: itemType}})
}

func (c *Client) Clear(ctx context.Context) error {
	return c.mutate(ctx, Op{Kind: OpClear})
}

// Increment adds one to an existing line.
func (c *Client) Increment(ctx context.Context, itemID, itemType string) error {
	n := c.ItemCount(itemID, itemType)
	if n == 0 {
		return ErrNotInCart
	}
	return c.UpdateQuantity(ctx, itemID, itemType, n+1)
}

// Decrement takes one from an existing line, removing it at quantity 1.
func (c *Client) Decrement(ctx context.Context, itemID, itemType string) error {
	n := c.ItemCount(itemID, itemType)
	if n == 0 {
		return ErrNotInCart
	}
	if n <= 1 {
		return c.Remove(ctx, itemID, itemType)
	}
	return c.UpdateQuantity(ctx, itemID, itemType, n-1)
}

// Sync replays the journal in order. Each op gets SyncAttempts tries with
// backoff. When the server stays unreachable the rest of the journal is
// kept and the state becomes LocalOnly. An op the server refuses is
// dropped into Conflicts. A 401 stops the replay and keeps the journal.
func (c *Client) Sync(ctx context.Context) error {
	return c.locked(func() error { return c.sync(ctx) })
}

func (c *Client) sync(ctx context.Context) error {
	var last *models.Cart
	for len(c.pending) > 0 {
		op := c.pending[0]
		server, err := c.send(ctx, op, c.cfg.SyncAttempts)
		var apiErr *APIError
		switch {
		case err == nil:
			last = server
		case errors.Is(err, ErrUnreachable):
			c.state = LocalOnly
			c.persist()
			return err
		case errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized:
			c.state = PendingRetry
			c.persist()
			return err
		case errors.As(err, &apiErr):
			logger.WithCtx(ctx).Warn("cartclient: journaled op refused", "op", op.Kind, "status", apiErr.Status, "message", apiErr.Message)
			c.conflicts = append(c.conflicts, Conflict{Op: op, Status: apiErr.Status, Message: apiErr.Message})
		default:
			c.state = PendingRetry
			c.persist()
			return err
		}
		c.pending = c.pending[1:]
	}

	if last == nil {
		server, err := c.request(ctx, http.MethodGet, "/api/cart", nil, c.cfg.SyncAttempts)
		if err != nil {
			if errors.Is(err, ErrUnreachable) {
				c.state = LocalOnly
			}
			c.persist()
			return err
		}
		last = server
	}
	c.pending = nil
	c.replace(last)
	c.state = Synced
	c.persist()
	return nil
}
