package transport

import "github.com/openoutcry/pit/pkg/wire"

// queue is an unbounded ordered FIFO between the receive goroutine and the
// processing goroutine. The receive side must never block on a slow
// consumer, so a plain buffered channel is not enough; a pump goroutine
// buffers the overflow in memory.
type queue struct {
	in  chan wire.Envelope
	out chan wire.Envelope
}

func newQueue() *queue {
	q := &queue{
		in:  make(chan wire.Envelope, 64),
		out: make(chan wire.Envelope, 64),
	}
	go q.pump()
	return q
}

func (q *queue) pump() {
	var pending []wire.Envelope
	for {
		if len(pending) == 0 {
			env, ok := <-q.in
			if !ok {
				close(q.out)
				return
			}
			pending = append(pending, env)
		}

		select {
		case env, ok := <-q.in:
			if !ok {
				for _, e := range pending {
					q.out <- e
				}
				close(q.out)
				return
			}
			pending = append(pending, env)
		case q.out <- pending[0]:
			pending = pending[1:]
		}
	}
}
