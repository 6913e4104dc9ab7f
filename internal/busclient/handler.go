package busclient

// HandlerLoop is the receive side of a Client's API: it consumes
// messages arriving from the broker and invokes a callback for each.
type HandlerLoop struct {
	client *Client
}

// HandlerLoop returns the consuming side of this client's API.
func (c *Client) HandlerLoop() HandlerLoop {
	return HandlerLoop{client: c}
}

// Run consumes messages until the client runtime is cancelled, invoking
// callback(content) for each. It blocks the calling goroutine; callers
// typically run it in its own goroutine.
func (h HandlerLoop) Run(callback func(content string)) {
	for {
		select {
		case content, ok := <-h.client.in.Recv():
			if !ok {
				return
			}
			callback(string(content))
		case <-h.client.ctx.Done():
			return
		}
	}
}
