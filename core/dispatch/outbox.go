package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/siabdul/core"
	"github.com/trezcool/siabdul/core/roster"
)

// Outbox decouples automatic dispatch from the scan path.
// Arrivals are queued and delivered one at a time by Run.
type Outbox struct {
	svc     *Service
	queue   chan Request
	timeout time.Duration
	logger  core.Logger

	// Delivered, when set, receives every outcome.
	Delivered func(Outcome)
}

func NewOutbox(svc *Service, size int, timeout time.Duration, logger core.Logger) *Outbox {
	if size <= 0 {
		size = 1
	}
	return &Outbox{
		svc:     svc,
		queue:   make(chan Request, size),
		timeout: timeout,
		logger:  logger,
	}
}

// Arrived queues an automatic notification when auto-send is on and `st` has a guardian contact.
// It never blocks: when the queue is full the notification is dropped.
func (o *Outbox) Arrived(st roster.Student, at time.Time) bool {
	ok, err := o.svc.AutoSend(st)
	if err != nil {
		o.logger.Error("checking auto-send", err)
		return false
	}
	if !ok {
		return false
	}

	select {
	case o.queue <- Request{Student: st, At: at, Automatic: true}:
		return true
	default:
		o.logger.Warn(fmt.Sprintf("outbox full, notification for %s dropped", st.Code))
		return false
	}
}

// Pending returns the number of queued notifications.
func (o *Outbox) Pending() int {
	return len(o.queue)
}

// Run delivers queued notifications until ctx is done.
func (o *Outbox) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-o.queue:
			o.deliver(ctx, req)
		}
	}
}

func (o *Outbox) deliver(ctx context.Context, req Request) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	out, err := o.svc.Send(ctx, req)
	if err != nil {
		o.logger.Error(fmt.Sprintf("auto-send for %s", req.Student.Code), err)
	}
	if o.Delivered != nil {
		o.Delivered(out)
	}
}
