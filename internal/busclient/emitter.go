package busclient

// Emitter is the send-only side of a Client's API. Send is a
// non-blocking enqueue: the message is delivered whenever a broker
// connection is currently up, and otherwise queued until the next
// successful reconnect (it is never dropped by the runtime itself).
type Emitter struct {
	client *Client
}

// Send enqueues content for delivery with target set to the client's own
// API name.
func (e Emitter) Send(content string) {
	e.client.out.Push([]byte(content))
}
