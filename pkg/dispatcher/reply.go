package dispatcher

import (
	"fmt"
	"log/slog"
	"sync"
)

const replyLogPrefix = "dispatcher:reply"

// ReplyFunc delivers the reply for one request.
type ReplyFunc func(*Reply)

// oneShot wraps a ReplyFunc so it fires at most once. It is owned by a single
// request; later deliveries are logged and dropped.
type oneShot struct {
	once sync.Once
	id   string
	fn   ReplyFunc
}

func newOneShot(id string, fn ReplyFunc) *oneShot {
	return &oneShot{id: id, fn: fn}
}

func (o *oneShot) deliver(r *Reply) {
	delivered := false
	o.once.Do(func() {
		delivered = true
		o.fn(r)
	})
	if !delivered {
		slog.Warn(fmt.Sprintf("%s - dropped duplicate reply for request %s", replyLogPrefix, o.id))
	}
}
