package mqtt

// queuedMsg holds a serialized MQTT message waiting for the broker to
// come back.
type queuedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// offlineQueue is a bounded FIFO for messages produced while the broker
// is unreachable. When full, the oldest message is dropped: for level
// events the newest reading is always the most valuable one.
// Not safe for concurrent use — the publisher's lock covers it.
type offlineQueue struct {
	msgs    []queuedMsg
	limit   int
	dropped int // messages discarded since the last flush
}

func newOfflineQueue(limit int) *offlineQueue {
	return &offlineQueue{limit: limit}
}

// enqueue appends a message, evicting the oldest if the queue is full.
func (q *offlineQueue) enqueue(m queuedMsg) {
	if len(q.msgs) >= q.limit {
		q.msgs = q.msgs[1:]
		q.dropped++
	}
	q.msgs = append(q.msgs, m)
}

// flush returns all queued messages in arrival order along with the
// number dropped since the previous flush, and empties the queue.
func (q *offlineQueue) flush() ([]queuedMsg, int) {
	msgs, dropped := q.msgs, q.dropped
	q.msgs = nil
	q.dropped = 0
	return msgs, dropped
}

func (q *offlineQueue) len() int {
	return len(q.msgs)
}
