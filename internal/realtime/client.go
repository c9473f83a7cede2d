package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/mkovardin/fleetwatch/internal/models"
)

const defaultSendQueueSize = 64

// Client represents one live connection known to the hub.
//
// Send is never closed by the hub: broadcasters may hold a client pointer
// while the connection is being torn down, and a send on a closed channel
// would panic. Teardown is signalled through done instead.
type Client struct {
	ID        uuid.UUID
	Principal models.Principal
	Send      chan Envelope

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a client with a bounded send queue
func NewClient(principal models.Principal) *Client {
	return &Client{
		ID:        uuid.New(),
		Principal: principal,
		Send:      make(chan Envelope, defaultSendQueueSize),
		done:      make(chan struct{}),
	}
}

// Done returns a channel closed when the client is shutting down
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close signals the connection goroutines to stop (idempotent)
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
