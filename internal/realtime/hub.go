package realtime

import (
	"sync"

	"github.com/mkovardin/fleetwatch/internal/logger"
)

// Hub is the in-memory connection-group registry: it maps live connections to
// the groups they subscribe to and fans events out per group.
//
// Delivery is best-effort and fire-and-forget: no acknowledgement, no retry,
// no ordering guarantee across groups. A slow connection never blocks the
// fan-out, its events are dropped once the send queue fills up.
type Hub struct {
	logger logger.Logger

	mu      sync.RWMutex
	groups  map[string]map[*Client]struct{}
	members map[*Client]map[string]struct{}
}

func NewHub(log logger.Logger) *Hub {
	if log == nil {
		log = logger.NewNoOp()
	}

	return &Hub{
		logger:  log,
		groups:  make(map[string]map[*Client]struct{}),
		members: make(map[*Client]map[string]struct{}),
	}
}

// Register adds the connection to the registry and auto-subscribes it to the
// owner group when the principal carries a tenant claim
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.members[c] = make(map[string]struct{})
	h.mu.Unlock()

	if c.Principal.OwnerID != nil {
		h.Join(c, GroupOwner(*c.Principal.OwnerID))
	}

	h.logger.Debug("realtime client registered", "client_id", c.ID, "user_id", c.Principal.UserID)
}

// Unregister removes the connection from every group and signals teardown
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	for group := range h.members[c] {
		h.removeLocked(c, group)
	}
	delete(h.members, c)
	h.mu.Unlock()

	c.Close()

	h.logger.Debug("realtime client unregistered", "client_id", c.ID)
}

// Join subscribes the connection to the group (idempotent)
func (h *Hub) Join(c *Client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, known := h.members[c]; !known {
		// Not registered (or already unregistered), nothing to join
		return
	}

	if h.groups[group] == nil {
		h.groups[group] = make(map[*Client]struct{})
	}
	h.groups[group][c] = struct{}{}
	h.members[c][group] = struct{}{}
}

// Leave unsubscribes the connection from the group (idempotent), other
// memberships are untouched
func (h *Hub) Leave(c *Client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(c, group)
	delete(h.members[c], group)
}

// Groups returns the groups the connection currently belongs to
func (h *Hub) Groups(c *Client) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	groups := make([]string, 0, len(h.members[c]))
	for group := range h.members[c] {
		groups = append(groups, group)
	}
	return groups
}

// Broadcast delivers the event to every connection in the group.
// Non-blocking per connection: full queues and closing clients are skipped,
// one dead connection never aborts delivery to the rest of the group.
func (h *Hub) Broadcast(group string, event string, payload any) {
	env := NewEnvelope(event, payload)

	h.mu.RLock()
	defer h.mu.RUnlock()

	h.deliverLocked(group, env)
}

// BroadcastMany delivers one envelope to several groups. The shared event id
// lets a connection subscribed to more than one of them drop the duplicate.
func (h *Hub) BroadcastMany(event string, payload any, groups ...string) {
	env := NewEnvelope(event, payload)

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, group := range groups {
		h.deliverLocked(group, env)
	}
}

// deliverLocked fans one envelope out to a group, caller holds mu
func (h *Hub) deliverLocked(group string, env Envelope) {
	for c := range h.groups[group] {
		select {
		case <-c.Done():
			continue
		default:
		}

		select {
		case c.Send <- env:
		default:
			h.logger.Warn("dropping event for slow client", "client_id", c.ID, "group", group, "event", env.Event)
		}
	}
}

// removeLocked drops the connection from a group's member set, caller holds mu
func (h *Hub) removeLocked(c *Client, group string) {
	if set, ok := h.groups[group]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.groups, group)
		}
	}
}
