package router

import (
	"context"
	"slices"
	"sync"

	"exstream/pkg/exception"
	"exstream/pkg/future"

	"github.com/yanun0323/errors"
)

// AuthHash is the message hash of the authentication handshake.
const AuthHash = "authenticated"

// Transport sends an outbound payload over the connection.
type Transport interface {
	Send(ctx context.Context, payload any) error
}

// LoginFunc builds the login payload of a connection.
type LoginFunc func(ctx context.Context) (any, error)

// Request describes one subscription.
type Request struct {
	Topic TopicKind
	// Hashes are the message hashes the caller waits on. The first resolution wins.
	Hashes []string
	// SubscribeHash identifies the outbound request. Defaults to Hashes[0].
	SubscribeHash string
	// Payload is sent once per connection for SubscribeHash. Nil sends nothing.
	Payload any
	Mode    Mode
}

func (r Request) subscribeHash() string {
	if r.SubscribeHash != "" {
		return r.SubscribeHash
	}
	return r.Hashes[0]
}

// Pending is the awaitable returned by Subscribe.
type Pending struct {
	hashes []string
	waiter *future.Waiter[any]
}

func (p *Pending) Hashes() []string {
	return p.hashes
}

// Wait blocks until one of the hashes is resolved or rejected, or ctx is done.
func (p *Pending) Wait(ctx context.Context) (any, error) {
	return p.waiter.Wait(ctx)
}

// Cancel stops waiting without affecting other callers.
func (p *Pending) Cancel() {
	p.waiter.Release()
}

type Option func(*Client)

// WithLogin enables Authenticate on the client.
func WithLogin(login LoginFunc) Option {
	return func(c *Client) {
		c.login = login
	}
}

// Client routes resolutions of one connection to the callers awaiting them.
type Client struct {
	url       string
	transport Transport
	login     LoginFunc

	mu            sync.Mutex
	subscriptions map[string]Request
	streams       map[string]*future.Stream[any]
	futures       map[string]*future.Future[any]
	auth          *future.Future[any]
}

func NewClient(url string, transport Transport, opts ...Option) *Client {
	c := &Client{
		url:           url,
		transport:     transport,
		subscriptions: make(map[string]Request),
		streams:       make(map[string]*future.Stream[any]),
		futures:       make(map[string]*future.Future[any]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) URL() string {
	return c.url
}

// Subscribe registers the caller on every hash of req, then sends req.Payload unless
// it was already sent on this connection. Private topics authenticate first.
func (c *Client) Subscribe(ctx context.Context, req Request) (*Pending, error) {
	if len(req.Hashes) == 0 {
		return nil, errors.Wrapf(exception.ErrRouterEmptyHash, "topic: %s", req.Topic)
	}
	if c.transport == nil {
		return nil, exception.ErrNilTransport
	}
	if req.Topic.IsPrivate() {
		if _, err := c.Authenticate(ctx); err != nil {
			return nil, err
		}
	}

	w := future.NewWaiter[any]()
	subHash := req.subscribeHash()

	c.mu.Lock()
	for _, hash := range req.Hashes {
		if req.Mode == ModeOneShot {
			f, ok := c.futures[hash]
			if !ok {
				f = future.New[any]()
				c.futures[hash] = f
			}
			f.Attach(w)
			continue
		}
		s, ok := c.streams[hash]
		if !ok {
			s = future.NewStream[any]()
			c.streams[hash] = s
		}
		s.Attach(w)
	}
	_, sent := c.subscriptions[subHash]
	if !sent {
		c.subscriptions[subHash] = req
	}
	c.mu.Unlock()

	if !sent && req.Payload != nil {
		if err := c.transport.Send(ctx, req.Payload); err != nil {
			c.mu.Lock()
			delete(c.subscriptions, subHash)
			c.mu.Unlock()
			w.Release()
			return nil, errors.Wrap(err, "send subscribe").With("hash", subHash)
		}
	}

	return &Pending{hashes: req.Hashes, waiter: w}, nil
}

// Watch subscribes and waits for the first resolution.
func (c *Client) Watch(ctx context.Context, req Request) (any, error) {
	p, err := c.Subscribe(ctx, req)
	if err != nil {
		return nil, err
	}
	return p.Wait(ctx)
}

// Resolve delivers v to the callers waiting on hash and returns how many were woken.
// A one-shot future is completed and forgotten together with its subscription.
func (c *Client) Resolve(hash string, v any) int {
	c.mu.Lock()
	f := c.futures[hash]
	if f != nil {
		delete(c.futures, hash)
		c.forgetOneShot(hash)
	}
	s := c.streams[hash]
	auth := c.auth
	c.mu.Unlock()

	woken := 0
	if f != nil && f.Resolve(v) {
		woken++
	}
	if hash == AuthHash && auth != nil && auth.Resolve(v) {
		woken++
	}
	if s != nil {
		woken += s.Resolve(v)
	}
	return woken
}

// Reject fails the callers waiting on hash and forgets the subscriptions naming it,
// so the next Subscribe sends again. Rejecting AuthHash clears the cached login.
func (c *Client) Reject(hash string, err error) int {
	c.mu.Lock()
	f := c.futures[hash]
	delete(c.futures, hash)
	s := c.streams[hash]
	var auth *future.Future[any]
	if hash == AuthHash {
		auth = c.auth
		c.auth = nil
	}
	for subHash, req := range c.subscriptions {
		if subHash == hash || slices.Contains(req.Hashes, hash) {
			delete(c.subscriptions, subHash)
		}
	}
	c.mu.Unlock()

	woken := 0
	if f != nil && f.Reject(err) {
		woken++
	}
	if auth != nil && auth.Reject(err) {
		woken++
	}
	if s != nil {
		woken += s.Reject(err)
	}
	return woken
}

// RejectSubscription rejects every hash of the subscription sent as subscribeHash.
// It is used when the exchange refuses a subscribe request.
func (c *Client) RejectSubscription(subscribeHash string, err error) int {
	c.mu.Lock()
	req, ok := c.subscriptions[subscribeHash]
	c.mu.Unlock()
	if !ok {
		return 0
	}

	woken := 0
	for _, hash := range req.Hashes {
		woken += c.Reject(hash, err)
	}
	return woken
}

// Authenticate sends the login payload at most once while a login is pending or
// succeeded, and waits for AuthHash to be resolved.
func (c *Client) Authenticate(ctx context.Context) (any, error) {
	if c.login == nil {
		return nil, exception.ErrRouterNoAuthenticator
	}

	c.mu.Lock()
	f := c.auth
	first := f == nil
	if first {
		f = future.New[any]()
		c.auth = f
		c.subscriptions[AuthHash] = Request{Topic: TopicAuth, Hashes: []string{AuthHash}, Mode: ModeOneShot}
	}
	c.mu.Unlock()

	if first {
		payload, err := c.login(ctx)
		if err == nil {
			err = c.transport.Send(ctx, payload)
		}
		if err != nil {
			c.Reject(AuthHash, errors.Wrap(err, "send login"))
		}
	}
	return f.Wait(ctx)
}

// Unsubscribe forgets the subscription, rejects its waiters with
// exception.ErrRouterUnsubscribed and sends payload when it was subscribed.
func (c *Client) Unsubscribe(ctx context.Context, subscribeHash string, payload any) error {
	c.mu.Lock()
	req, ok := c.subscriptions[subscribeHash]
	delete(c.subscriptions, subscribeHash)
	var (
		futures []*future.Future[any]
		streams []*future.Stream[any]
	)
	for _, hash := range req.Hashes {
		if f, ok := c.futures[hash]; ok {
			futures = append(futures, f)
			delete(c.futures, hash)
		}
		if s, ok := c.streams[hash]; ok {
			streams = append(streams, s)
			delete(c.streams, hash)
		}
	}
	c.mu.Unlock()

	for _, f := range futures {
		f.Reject(exception.ErrRouterUnsubscribed)
	}
	for _, s := range streams {
		s.Reject(exception.ErrRouterUnsubscribed)
	}

	if !ok || payload == nil {
		return nil
	}
	if err := c.transport.Send(ctx, payload); err != nil {
		return errors.Wrap(err, "send unsubscribe").With("hash", subscribeHash)
	}
	return nil
}

// Teardown rejects every waiter with err and forgets all subscriptions and the login.
// It is called when the connection is lost.
func (c *Client) Teardown(err error) int {
	c.mu.Lock()
	futures, streams, auth := c.futures, c.streams, c.auth
	c.futures = make(map[string]*future.Future[any])
	c.streams = make(map[string]*future.Stream[any])
	c.subscriptions = make(map[string]Request)
	c.auth = nil
	c.mu.Unlock()

	woken := 0
	for _, f := range futures {
		if f.Reject(err) {
			woken++
		}
	}
	for _, s := range streams {
		woken += s.Reject(err)
	}
	if auth != nil && auth.Reject(err) {
		woken++
	}
	return woken
}

// Subscribed reports whether the payload for subscribeHash was sent on this connection.
func (c *Client) Subscribed(subscribeHash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subscriptions[subscribeHash]
	return ok
}

// Subscriptions lists the active subscriptions.
func (c *Client) Subscriptions() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Request, 0, len(c.subscriptions))
	for _, req := range c.subscriptions {
		out = append(out, req)
	}
	return out
}

// Authenticated reports whether a login has succeeded on this connection.
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	auth := c.auth
	c.mu.Unlock()
	if auth == nil {
		return false
	}
	r, ok := auth.Result()
	return ok && r.Err == nil
}

// forgetOneShot drops one-shot subscriptions naming hash. The caller holds c.mu.
func (c *Client) forgetOneShot(hash string) {
	for subHash, req := range c.subscriptions {
		if req.Mode == ModeOneShot && (subHash == hash || slices.Contains(req.Hashes, hash)) {
			delete(c.subscriptions, subHash)
		}
	}
}

// Watch subscribes on c and asserts the resolved value to T.
func Watch[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var zero T
	v, err := c.Watch(ctx, req)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, errors.Wrapf(exception.ErrRouterUnexpectedType, "topic: %s, got: %T", req.Topic, v)
	}
	return t, nil
}

// Wait asserts the resolution of p to T.
func Wait[T any](ctx context.Context, p *Pending) (T, error) {
	var zero T
	v, err := p.Wait(ctx)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, errors.Wrapf(exception.ErrRouterUnexpectedType, "got: %T", v)
	}
	return t, nil
}
