package order

import (
	"context"
	"fmt"
	"time"

	"nasi-kandar-bot/apperr"
	"nasi-kandar-bot/logger"
	"nasi-kandar-bot/metrics"
)

// Outbox delivers actions to the chat transport.
type Outbox interface {
	Deliver(ctx context.Context, a Action) error
}

// Scheduler runs f after d without blocking the caller.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

type DispatcherOption func(*Dispatcher)

func WithScheduler(s Scheduler) DispatcherOption {
	return func(d *Dispatcher) {
		if s != nil {
			d.scheduler = s
		}
	}
}

func WithDispatcherLogger(l *logger.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.log = l }
}

func WithDispatcherMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// Dispatcher feeds inbound events through the machine, one at a time per chat.
type Dispatcher struct {
	store     *Store
	machine   *Machine
	outbox    Outbox
	scheduler Scheduler
	log       *logger.Logger
	metrics   *metrics.Metrics
}

func NewDispatcher(store *Store, machine *Machine, outbox Outbox, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:     store,
		machine:   machine,
		outbox:    outbox,
		scheduler: timerScheduler{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle processes one event. It only returns delivery errors; step faults are
// logged, answered with an apology and acknowledged.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) error {
	ctx = d.log.WithChatID(ctx, ev.ChatID)
	start := time.Now()

	var (
		reply Reply
		stage Stage
	)
	_ = d.store.Update(ev.ChatID, func(s *Session) error {
		stage = s.Stage
		ctx = d.log.WithStage(ctx, string(stage))
		before := s.Clone()
		reply = d.step(ctx, s, ev, before)
		if err := s.Validate(); err != nil {
			d.log.Error(ctx, "session invariant violated", err, "next_stage", string(s.Stage), "event", string(ev.Kind))
		}
		return nil
	})
	d.metrics.ObserveEvent(string(stage), string(ev.Kind), time.Since(start))

	err := d.deliver(ctx, reply.Actions)
	for _, f := range reply.FollowUps {
		f := f
		d.scheduler.AfterFunc(f.After, func() {
			if err := d.deliver(context.Background(), f.Actions); err != nil {
				d.log.Warn(ctx, "follow-up delivery failed", err)
			}
		})
	}
	return err
}

// step runs the machine and turns a panic into a fault reply. On panic s is
// rewound to before, so the stored session is left as it was unless the fault
// reply itself moves it on.
func (d *Dispatcher) step(ctx context.Context, s *Session, ev Event, before *Session) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			err := apperr.New(apperr.CodeInternal, fmt.Sprintf("panic in stage %s: %v", before.Stage, r))
			d.log.Error(ctx, "step fault", err, "event", string(ev.Kind))
			d.metrics.Fault()
			*s = *before.Clone()
			reply = d.safeRecover(ctx, s, ev)
		}
	}()
	return d.machine.Step(ctx, s, ev)
}

func (d *Dispatcher) safeRecover(ctx context.Context, s *Session, ev Event) (reply Reply) {
	snapshot := s.Clone()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error(ctx, "fault recovery failed", fmt.Errorf("%v", r))
			*s = *snapshot
			reply = Reply{}
			reply.text(s.ChatID, msgApology, nil)
		}
	}()
	return d.machine.recoverFault(ctx, s, ev)
}

func (d *Dispatcher) deliver(ctx context.Context, actions []Action) error {
	var firstErr error
	for _, a := range actions {
		if err := d.outbox.Deliver(ctx, a); err != nil {
			d.log.Warn(ctx, "delivery failed", err,
				"action", string(a.Kind),
				"code", string(apperr.CodeOf(err)),
				"retryable", apperr.Retryable(err),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
