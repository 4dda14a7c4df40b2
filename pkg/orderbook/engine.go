package orderbook

import (
	"context"
	"sync"

	"exstream/pkg/exception"
	"exstream/pkg/future"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const (
	defaultMaxPending        = 1000
	defaultMaxResyncAttempts = 3
)

// SnapshotFetcher loads a full book image for symbol.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, symbol string) (Snapshot, error)
}

// SnapshotFetcherFunc adapts a function to SnapshotFetcher.
type SnapshotFetcherFunc func(ctx context.Context, symbol string) (Snapshot, error)

func (f SnapshotFetcherFunc) FetchSnapshot(ctx context.Context, symbol string) (Snapshot, error) {
	return f(ctx, symbol)
}

// Publisher receives every book update under its message hash.
// It is called while the engine lock is held and must not call back into the engine.
type Publisher interface {
	Resolve(hash string, value any) int
	Reject(hash string, err error) int
}

// Config configures an Engine. Fetcher is required.
type Config struct {
	Sequencer Sequencer
	Fetcher   SnapshotFetcher
	Publisher Publisher

	// Checksum is verified against deltas and snapshots that carry one.
	Checksum      ChecksumFunc
	ChecksumDepth int

	// Hash maps a symbol to its message hash. Defaults to "orderbook:" + symbol.
	Hash func(symbol string) string

	// Depth bounds the levels per side in published copies. Zero publishes all.
	Depth             int
	MaxPending        int
	MaxResyncAttempts int
}

func (c *Config) normalize() error {
	if c.Fetcher == nil {
		return exception.ErrOrderBookNilFetcher
	}
	if c.Sequencer == nil {
		c.Sequencer = Consecutive{}
	}
	if c.ChecksumDepth <= 0 {
		c.ChecksumDepth = DefaultChecksumDepth
	}
	if c.Hash == nil {
		c.Hash = Hash
	}
	if c.MaxPending <= 0 {
		c.MaxPending = defaultMaxPending
	}
	if c.MaxResyncAttempts <= 0 {
		c.MaxResyncAttempts = defaultMaxResyncAttempts
	}
	return nil
}

// Hash is the default message hash of a symbol's book.
func Hash(symbol string) string {
	return "orderbook:" + symbol
}

type book struct {
	symbol     string
	hash       string
	bids       *Ladder
	asks       *Ladder
	nonce      int64
	timestamp  int64
	state      SyncState
	pending    []Delta
	fetch      *future.Future[Snapshot]
	generation uint64
	attempts   int
}

func (b *book) clear() {
	b.bids.Clear()
	b.asks.Clear()
	b.nonce = 0
	b.timestamp = 0
	b.pending = nil
	b.state = StateUnsynced
}

// Engine keeps per-symbol book replicas consistent from snapshots and deltas.
type Engine struct {
	ctx context.Context
	cfg Config

	mu         sync.Mutex
	books      map[string]*book
	generation uint64
	wg         sync.WaitGroup
}

// NewEngine builds an engine. Snapshot fetches run under ctx.
func NewEngine(ctx context.Context, cfg Config) (*Engine, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &Engine{
		ctx:   ctx,
		cfg:   cfg,
		books: make(map[string]*book),
	}, nil
}

// Subscribe creates an unsynced book for symbol. It returns false when one exists.
func (e *Engine) Subscribe(symbol string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.books[symbol]; ok {
		return false
	}
	e.generation++
	e.books[symbol] = &book{
		symbol:     symbol,
		hash:       e.cfg.Hash(symbol),
		bids:       NewLadder(SideBid),
		asks:       NewLadder(SideAsk),
		generation: e.generation,
	}
	return true
}

// Unsubscribe drops the book. A fetch still in flight for it completes as a no-op.
func (e *Engine) Unsubscribe(symbol string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.books[symbol]; !ok {
		return false
	}
	delete(e.books, symbol)
	return true
}

// Reset returns every book to unsynced, abandoning in-flight fetches.
// It is used after the connection carrying the deltas was lost.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, b := range e.books {
		b.clear()
		b.fetch = nil
		b.attempts = 0
		e.generation++
		b.generation = e.generation
	}
}

// Resync discards the book and schedules a fresh snapshot.
func (e *Engine) Resync(symbol string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.books[symbol]
	if !ok {
		return errors.Wrapf(exception.ErrOrderBookNotSubscribed, "symbol: %s", symbol)
	}
	e.invalidate(b, nil)
	return nil
}

// OnSnapshot applies a snapshot delivered outside the fetch path, such as one pushed
// over the same connection as the deltas.
func (e *Engine) OnSnapshot(symbol string, snap Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.books[symbol]
	if !ok {
		return errors.Wrapf(exception.ErrOrderBookNotSubscribed, "symbol: %s", symbol)
	}
	return e.applySnapshot(b, snap)
}

// OnDelta buffers or applies a delta. Stale deltas are ignored. A gap or checksum
// mismatch returns the cause after the book was invalidated and a resync scheduled.
func (e *Engine) OnDelta(symbol string, d Delta) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.books[symbol]
	if !ok {
		return errors.Wrapf(exception.ErrOrderBookNotSubscribed, "symbol: %s", symbol)
	}

	if b.state != StateSynced {
		if len(b.pending) >= e.cfg.MaxPending {
			b.pending = b.pending[1:]
		}
		b.pending = append(b.pending, d)
		b.state = StateBuffering
		e.scheduleFetch(b)
		return nil
	}

	applied, err := e.applyDelta(b, d)
	if err != nil {
		return err
	}
	if applied {
		e.publish(b)
	}
	return nil
}

// Get returns a copy of the book.
func (e *Engine) Get(symbol string) (OrderBook, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.books[symbol]
	if !ok {
		return OrderBook{}, false
	}
	return e.view(b, 0), true
}

// State returns the sync state of the book.
func (e *Engine) State(symbol string) (SyncState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.books[symbol]
	if !ok {
		return StateUnsynced, false
	}
	return b.state, true
}

// Wait blocks until every started snapshot fetch has returned.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) applySnapshot(b *book, snap Snapshot) error {
	rest := make([]Delta, 0, len(b.pending))
	for _, d := range b.pending {
		if d.Nonce > snap.Nonce {
			rest = append(rest, d)
		}
	}

	if len(rest) != 0 && e.cfg.Sequencer.Check(snap.Nonce, rest[0]) == VerdictGap {
		b.pending = rest
		err := errors.Wrapf(exception.ErrOrderBookSnapshotStale, "symbol: %s, snapshot: %d, first pending: %d", b.symbol, snap.Nonce, rest[0].Nonce)
		e.retry(b, err)
		return err
	}

	b.bids.Reset(snap.Bids)
	b.asks.Reset(snap.Asks)
	b.nonce = snap.Nonce
	b.timestamp = snap.Timestamp
	b.pending = nil
	b.state = StateSynced

	if snap.Checksum != nil && !e.checksumMatches(b, *snap.Checksum) {
		err := errors.Wrapf(exception.ErrOrderBookChecksumMismatch, "symbol: %s, snapshot: %d", b.symbol, snap.Nonce)
		b.clear()
		e.retry(b, err)
		return err
	}

	for _, d := range rest {
		if _, err := e.applyDelta(b, d); err != nil {
			return err
		}
	}

	b.attempts = 0
	e.publish(b)
	return nil
}

// applyDelta applies d to a synced book and reports whether it changed the book.
func (e *Engine) applyDelta(b *book, d Delta) (bool, error) {
	switch e.cfg.Sequencer.Check(b.nonce, d) {
	case VerdictStale:
		return false, nil
	case VerdictGap:
		err := errors.Wrapf(exception.ErrOrderBookSequenceGap, "symbol: %s, nonce: %d, delta: %d..%d prev %d", b.symbol, b.nonce, d.FirstNonce, d.Nonce, d.PrevNonce)
		e.invalidate(b, err)
		return false, err
	}

	b.bids.StoreAll(d.Bids)
	b.asks.StoreAll(d.Asks)
	b.nonce = d.Nonce
	if d.Timestamp != 0 {
		b.timestamp = d.Timestamp
	}

	if d.Checksum != nil && !e.checksumMatches(b, *d.Checksum) {
		err := errors.Wrapf(exception.ErrOrderBookChecksumMismatch, "symbol: %s, nonce: %d", b.symbol, d.Nonce)
		e.invalidate(b, err)
		return false, err
	}
	return true, nil
}

func (e *Engine) checksumMatches(b *book, want int64) bool {
	if e.cfg.Checksum == nil {
		return true
	}
	depth := e.cfg.ChecksumDepth
	return e.cfg.Checksum(b.bids.Levels(depth), b.asks.Levels(depth)) == want
}

// invalidate drops the book content and schedules one snapshot fetch.
func (e *Engine) invalidate(b *book, cause error) {
	if cause != nil {
		logs.Infof("orderbook: resync %s, cause: %+v", b.symbol, cause)
	}
	b.clear()
	e.scheduleFetch(b)
}

// retry counts a failed sync attempt and either fetches again or gives the book up.
func (e *Engine) retry(b *book, cause error) {
	b.attempts++
	if b.attempts >= e.cfg.MaxResyncAttempts {
		logs.Errorf("orderbook: give up %s after %d attempts, err: %+v", b.symbol, b.attempts, cause)
		delete(e.books, b.symbol)
		if e.cfg.Publisher != nil {
			e.cfg.Publisher.Reject(b.hash, errors.Wrapf(exception.ErrOrderBookSnapshotStale, "symbol: %s, attempts: %d, cause: %v", b.symbol, b.attempts, cause))
		}
		return
	}
	logs.Infof("orderbook: retry %s snapshot, attempt: %d, cause: %+v", b.symbol, b.attempts, cause)
	e.scheduleFetch(b)
}

// scheduleFetch starts a snapshot fetch unless one is already in flight.
func (e *Engine) scheduleFetch(b *book) {
	if b.fetch != nil {
		return
	}
	f := future.New[Snapshot]()
	b.fetch = f
	symbol, generation := b.symbol, b.generation

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		snap, err := e.cfg.Fetcher.FetchSnapshot(e.ctx, symbol)
		if err != nil {
			f.Reject(err)
		} else {
			f.Resolve(snap)
		}
		e.completeFetch(symbol, generation, f)
	}()
}

func (e *Engine) completeFetch(symbol string, generation uint64, f *future.Future[Snapshot]) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.books[symbol]
	if !ok || b.generation != generation || b.fetch != f {
		return
	}
	b.fetch = nil

	r, _ := f.Result()
	if r.Err != nil {
		if e.ctx.Err() != nil {
			return
		}
		e.retry(b, errors.Wrapf(r.Err, "fetch snapshot %s", symbol))
		return
	}
	if b.state == StateSynced {
		return
	}
	_ = e.applySnapshot(b, r.Value)
}

func (e *Engine) publish(b *book) {
	if e.cfg.Publisher == nil {
		return
	}
	e.cfg.Publisher.Resolve(b.hash, e.view(b, e.cfg.Depth))
}

func (e *Engine) view(b *book, depth int) OrderBook {
	return OrderBook{
		Symbol:    b.symbol,
		Bids:      b.bids.Levels(depth),
		Asks:      b.asks.Levels(depth),
		Nonce:     b.nonce,
		Timestamp: b.timestamp,
		State:     b.state,
	}
}
