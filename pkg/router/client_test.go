package router

import (
	"context"
	"sync"
	"testing"
	"time"

	"exstream/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

type fakeTransport struct {
	mu   sync.Mutex
	sent []any
	err  error
}

func (f *fakeTransport) Send(_ context.Context, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, payload)
	return nil
}

func (f *fakeTransport) payloads() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.sent...)
}

func waitAsync(t *testing.T, fn func() (any, error)) <-chan struct {
	v   any
	err error
} {
	t.Helper()
	ch := make(chan struct {
		v   any
		err error
	}, 1)
	go func() {
		v, err := fn()
		ch <- struct {
			v   any
			err error
		}{v, err}
	}()
	return ch
}

func TestSubscribeSendsOncePerHash(t *testing.T) {
	tr := &fakeTransport{}
	c := NewClient("wss://example", tr)
	req := Request{Topic: TopicTrades, Hashes: []string{"trade:BTC"}, Payload: "sub-btc"}

	p1, err := c.Subscribe(t.Context(), req)
	require.NoError(t, err)
	p2, err := c.Subscribe(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, []any{"sub-btc"}, tr.payloads())
	assert.True(t, c.Subscribed("trade:BTC"))

	assert.Equal(t, 2, c.Resolve("trade:BTC", 1))
	v1, err := p1.Wait(t.Context())
	require.NoError(t, err)
	v2, err := p2.Wait(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, v1)
	assert.Equal(t, 1, v2)
}

func TestStreamStaysOpen(t *testing.T) {
	c := NewClient("u", &fakeTransport{})
	req := Request{Topic: TopicTrades, Hashes: []string{"h"}, Payload: "p"}

	for i := range 3 {
		p, err := c.Subscribe(t.Context(), req)
		require.NoError(t, err)
		assert.Equal(t, 1, c.Resolve("h", i))
		v, err := p.Wait(t.Context())
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	assert.True(t, c.Subscribed("h"))
}

func TestBatchSubscribeFirstHashWins(t *testing.T) {
	tr := &fakeTransport{}
	c := NewClient("u", tr)
	p, err := c.Subscribe(t.Context(), Request{
		Topic:         TopicTrades,
		Hashes:        []string{"trade:BTC", "trade:ETH"},
		SubscribeHash: "multi:trade:BTC,ETH",
		Payload:       "batch",
	})
	require.NoError(t, err)
	assert.Len(t, tr.payloads(), 1)

	c.Resolve("trade:ETH", "eth")
	v, err := p.Wait(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "eth", v)
	assert.Equal(t, 0, c.Resolve("trade:BTC", "btc"))
}

func TestOneShotIsForgotten(t *testing.T) {
	tr := &fakeTransport{}
	c := NewClient("u", tr)
	req := Request{Topic: TopicOrderBook, Hashes: []string{"snapshot:BTC"}, Payload: "fetch", Mode: ModeOneShot}

	p, err := c.Subscribe(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Resolve("snapshot:BTC", "book"))
	v, err := p.Wait(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "book", v)

	assert.False(t, c.Subscribed("snapshot:BTC"))
	assert.Equal(t, 0, c.Resolve("snapshot:BTC", "again"))

	_, err = c.Subscribe(t.Context(), req)
	require.NoError(t, err)
	assert.Len(t, tr.payloads(), 2, "a forgotten one-shot sends again")
}

func TestRejectOnlyAffectsItsHash(t *testing.T) {
	c := NewClient("u", &fakeTransport{})
	boom := errors.New("boom")

	a, err := c.Subscribe(t.Context(), Request{Topic: TopicOrderBook, Hashes: []string{"a"}, Payload: "a", Mode: ModeOneShot})
	require.NoError(t, err)
	b, err := c.Subscribe(t.Context(), Request{Topic: TopicTrades, Hashes: []string{"b"}, Payload: "b"})
	require.NoError(t, err)

	assert.Equal(t, 1, c.Reject("a", boom))
	_, err = a.Wait(t.Context())
	assert.True(t, errors.Is(err, boom))
	assert.False(t, c.Subscribed("a"))

	c.Resolve("b", 2)
	v, err := b.Wait(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestRejectSubscription(t *testing.T) {
	c := NewClient("u", &fakeTransport{})
	refused := errors.New("refused")

	p, err := c.Subscribe(t.Context(), Request{
		Topic:         TopicTrades,
		Hashes:        []string{"trades:BTC", "trades:ETH"},
		SubscribeHash: "trade@btc,eth",
		Payload:       "sub",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, c.RejectSubscription("trade@btc,eth", refused))
	_, err = p.Wait(t.Context())
	assert.True(t, errors.Is(err, refused))
	assert.False(t, c.Subscribed("trade@btc,eth"))
	assert.Zero(t, c.RejectSubscription("trade@btc,eth", refused))
}

func TestSubscribeSendFailure(t *testing.T) {
	boom := errors.New("write failed")
	c := NewClient("u", &fakeTransport{err: boom})

	_, err := c.Subscribe(t.Context(), Request{Topic: TopicTrades, Hashes: []string{"h"}, Payload: "p"})
	require.True(t, errors.Is(err, boom))
	assert.False(t, c.Subscribed("h"))
	assert.Equal(t, 0, c.Resolve("h", 1))
}

func TestSubscribeRequiresHash(t *testing.T) {
	c := NewClient("u", &fakeTransport{})
	_, err := c.Subscribe(t.Context(), Request{Topic: TopicTrades})
	assert.True(t, errors.Is(err, exception.ErrRouterEmptyHash))
}

func TestAuthenticateSendsLoginOnce(t *testing.T) {
	tr := &fakeTransport{}
	logins := 0
	c := NewClient("u", tr, WithLogin(func(context.Context) (any, error) {
		logins++
		return "login", nil
	}))

	first := waitAsync(t, func() (any, error) { return c.Authenticate(t.Context()) })
	require.Eventually(t, func() bool { return len(tr.payloads()) == 1 }, time.Second, time.Millisecond)
	second := waitAsync(t, func() (any, error) { return c.Authenticate(t.Context()) })

	c.Resolve(AuthHash, "ok")
	for _, ch := range []<-chan struct {
		v   any
		err error
	}{first, second} {
		r := <-ch
		require.NoError(t, r.err)
		assert.Equal(t, "ok", r.v)
	}
	assert.True(t, c.Authenticated())

	_, err := c.Authenticate(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, logins)
	assert.Equal(t, []any{"login"}, tr.payloads())
}

func TestAuthenticationFailureClearsLogin(t *testing.T) {
	tr := &fakeTransport{}
	c := NewClient("u", tr, WithLogin(func(context.Context) (any, error) { return "login", nil }))

	pending := waitAsync(t, func() (any, error) { return c.Authenticate(t.Context()) })
	require.Eventually(t, func() bool { return len(tr.payloads()) == 1 }, time.Second, time.Millisecond)

	c.Reject(AuthHash, exception.ErrRouterAuthenticationFailed)
	r := <-pending
	assert.True(t, errors.Is(r.err, exception.ErrRouterAuthenticationFailed))
	assert.False(t, c.Authenticated())
	assert.False(t, c.Subscribed(AuthHash))

	retry := waitAsync(t, func() (any, error) { return c.Authenticate(t.Context()) })
	require.Eventually(t, func() bool { return len(tr.payloads()) == 2 }, time.Second, time.Millisecond)
	c.Resolve(AuthHash, "ok")
	r = <-retry
	require.NoError(t, r.err)
}

func TestPrivateSubscribeAuthenticatesFirst(t *testing.T) {
	tr := &fakeTransport{}
	c := NewClient("u", tr, WithLogin(func(context.Context) (any, error) { return "login", nil }))

	done := waitAsync(t, func() (any, error) {
		p, err := c.Subscribe(t.Context(), Request{Topic: TopicOrders, Hashes: []string{"orders"}, Payload: "sub-orders"})
		return p, err
	})
	require.Eventually(t, func() bool { return len(tr.payloads()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "login", tr.payloads()[0])

	c.Resolve(AuthHash, true)
	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, []any{"login", "sub-orders"}, tr.payloads())
}

func TestPrivateSubscribeWithoutLogin(t *testing.T) {
	c := NewClient("u", &fakeTransport{})
	_, err := c.Subscribe(t.Context(), Request{Topic: TopicPositions, Hashes: []string{"positions"}})
	assert.True(t, errors.Is(err, exception.ErrRouterNoAuthenticator))
}

func TestUnsubscribe(t *testing.T) {
	tr := &fakeTransport{}
	c := NewClient("u", tr)
	p, err := c.Subscribe(t.Context(), Request{Topic: TopicTrades, Hashes: []string{"h"}, Payload: "sub"})
	require.NoError(t, err)

	require.NoError(t, c.Unsubscribe(t.Context(), "h", "unsub"))
	_, err = p.Wait(t.Context())
	assert.True(t, errors.Is(err, exception.ErrRouterUnsubscribed))
	assert.Equal(t, []any{"sub", "unsub"}, tr.payloads())

	require.NoError(t, c.Unsubscribe(t.Context(), "h", "unsub"))
	assert.Len(t, tr.payloads(), 2, "unknown subscription sends nothing")
}

func TestTeardownRejectsEverything(t *testing.T) {
	tr := &fakeTransport{}
	c := NewClient("u", tr, WithLogin(func(context.Context) (any, error) { return "login", nil }))

	s, err := c.Subscribe(t.Context(), Request{Topic: TopicTrades, Hashes: []string{"s"}, Payload: "s"})
	require.NoError(t, err)
	o, err := c.Subscribe(t.Context(), Request{Topic: TopicOrderBook, Hashes: []string{"o"}, Payload: "o", Mode: ModeOneShot})
	require.NoError(t, err)
	auth := waitAsync(t, func() (any, error) { return c.Authenticate(t.Context()) })
	require.Eventually(t, func() bool { return len(tr.payloads()) == 3 }, time.Second, time.Millisecond)

	c.Teardown(exception.ErrConnectionClosed)

	_, err = s.Wait(t.Context())
	assert.True(t, errors.Is(err, exception.ErrConnectionClosed))
	_, err = o.Wait(t.Context())
	assert.True(t, errors.Is(err, exception.ErrConnectionClosed))
	r := <-auth
	assert.True(t, errors.Is(r.err, exception.ErrConnectionClosed))

	assert.Empty(t, c.Subscriptions())
	assert.False(t, c.Authenticated())
}

func TestWatchGeneric(t *testing.T) {
	c := NewClient("u", &fakeTransport{})
	req := Request{Topic: TopicTrades, Hashes: []string{"trades:BTC"}}

	go func() {
		assert.Eventually(t, func() bool { return c.Resolve("trades:BTC", 42) == 1 }, time.Second, time.Millisecond)
	}()
	v, err := Watch[int](t.Context(), c, req)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	go func() {
		assert.Eventually(t, func() bool { return c.Resolve("trades:BTC", "text") == 1 }, time.Second, time.Millisecond)
	}()
	_, err = Watch[int](t.Context(), c, req)
	assert.True(t, errors.Is(err, exception.ErrRouterUnexpectedType))
}

func TestPendingCancel(t *testing.T) {
	c := NewClient("u", &fakeTransport{})
	p, err := c.Subscribe(t.Context(), Request{Topic: TopicTrades, Hashes: []string{"h"}})
	require.NoError(t, err)
	p.Cancel()
	assert.Equal(t, 0, c.Resolve("h", 1))
}
