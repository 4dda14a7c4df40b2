package router

import "sync"

// Hub keeps one Client per connection URL.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

// Client returns the client of url, creating it with build on first use.
func (h *Hub) Client(url string, build func(url string) *Client) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[url]; ok {
		return c
	}
	c := build(url)
	h.clients[url] = c
	return c
}

// Lookup returns the client of url when one was created.
func (h *Hub) Lookup(url string) (*Client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[url]
	return c, ok
}

// Remove forgets the client of url after tearing it down with err.
func (h *Hub) Remove(url string, err error) {
	h.mu.Lock()
	c, ok := h.clients[url]
	delete(h.clients, url)
	h.mu.Unlock()

	if ok {
		c.Teardown(err)
	}
}

// Close tears every client down with err.
func (h *Hub) Close(err error) {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.Teardown(err)
	}
}
