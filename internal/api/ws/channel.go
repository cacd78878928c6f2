package ws

import "sync"

// channel is a named member set inside the namespace. Each user has a
// private channel named after its id.
type channel struct {
	name string

	mu      sync.RWMutex
	members map[string]*Client
}

func newChannel(name string) *channel {
	return &channel{name: name, members: make(map[string]*Client)}
}

func (ch *channel) join(c *Client) {
	ch.mu.Lock()
	ch.members[c.id] = c
	ch.mu.Unlock()
}

// leave removes c and reports whether the channel is now empty.
func (ch *channel) leave(c *Client) bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	delete(ch.members, c.id)
	return len(ch.members) == 0
}

// publish queues frame on every member and returns how many accepted it.
func (ch *channel) publish(frame []byte) (queued, dropped int) {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	for _, m := range ch.members {
		if m.enqueue(frame) {
			queued++
		} else {
			dropped++
		}
	}
	return queued, dropped
}
