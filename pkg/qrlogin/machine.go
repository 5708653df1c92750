// Package qrlogin drives a QR code login from token to stored cookies.
//
// A [Machine] polls the login service until the code is confirmed, expires, or
// the error budget runs out. On confirmation it exchanges the ticket for
// session cookies and persists them. The outcome is written exactly once to a
// [Publisher] that presentation surfaces read.
package qrlogin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/glue-go/uccookie/internal/ctxutil"
	"github.com/glue-go/uccookie/pkg/bus"
	"github.com/glue-go/uccookie/pkg/bus/events"
	"github.com/glue-go/uccookie/pkg/cookiestore"
	"github.com/glue-go/uccookie/pkg/ucclient"
)

var (
	log    = logging.Logger("uccookie/qrlogin")
	tracer = otel.Tracer("uccookie/qrlogin")
)

const (
	// DefaultInterval is the wait between polls while the code is unscanned.
	DefaultInterval = 2 * time.Second
	// DefaultMaxErrors is the number of transport errors that ends a login.
	DefaultMaxErrors = 3
)

var (
	ErrExpired       = errors.New("qr code is invalid or expired")
	ErrTooManyErrors = errors.New("too many failed status polls")
	ErrTimedOut      = errors.New("timed out waiting for the qr code to be scanned")
	ErrPersist       = errors.New("persisting cookies")

	errAwaitingScan = errors.New("awaiting scan")
)

// Service is the part of the login service the machine needs.
type Service interface {
	PollStatus(ctx context.Context, token ucclient.Token) ucclient.PollResult
	ExchangeTicket(ctx context.Context, ticket string) (ucclient.CookieBundle, error)
}

var _ Service = (*ucclient.Client)(nil)

// Result describes how a run ended.
type Result struct {
	// Status is Pending when the run was canceled before reaching an outcome.
	Status  Status
	Cookies ucclient.CookieBundle
	Polls   int
	Err     error
}

// Option configures a Machine.
type Option func(m *Machine)

// WithInterval sets the wait between polls while awaiting a scan.
func WithInterval(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithMaxErrors sets how many transport errors end the login. The count is
// never reset during a run.
func WithMaxErrors(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.maxErrors = n
		}
	}
}

// WithMaxWait bounds the total time spent polling. Zero means no bound.
func WithMaxWait(d time.Duration) Option {
	return func(m *Machine) {
		m.maxWait = d
	}
}

// WithBus publishes poll and transition events to b.
func WithBus(b bus.Publisher) Option {
	return func(m *Machine) {
		m.bus = b
	}
}

// WithAttemptID sets the id carried on events and logs.
func WithAttemptID(id uuid.UUID) Option {
	return func(m *Machine) {
		m.id = id
	}
}

// WithVerbose logs every poll that is still waiting for a scan.
func WithVerbose(v bool) Option {
	return func(m *Machine) {
		m.verbose = v
	}
}

// Machine runs one login attempt.
type Machine struct {
	service   Service
	store     cookiestore.Saver
	publisher *Publisher
	bus       bus.Publisher

	id        uuid.UUID
	interval  time.Duration
	maxErrors int
	maxWait   time.Duration
	verbose   bool
	now       func() time.Time
}

func New(service Service, store cookiestore.Saver, publisher *Publisher, options ...Option) *Machine {
	m := &Machine{
		service:   service,
		store:     store,
		publisher: publisher,
		bus:       &bus.NoopBus{},
		id:        uuid.New(),
		interval:  DefaultInterval,
		maxErrors: DefaultMaxErrors,
		now:       time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// ID identifies the attempt on events and logs.
func (m *Machine) ID() uuid.UUID { return m.id }

// Run polls for token until a terminal outcome or until ctx is done. A
// terminal outcome is published before Run returns. Cancellation leaves the
// publisher pending and is reported in Result.Err.
func (m *Machine) Run(ctx context.Context, token ucclient.Token) Result {
	ctx, span := tracer.Start(ctx, "qrlogin.run", trace.WithAttributes(
		attribute.String("attempt.id", m.id.String()),
	))
	defer span.End()

	startedAt := m.now()
	var (
		polls    int
		errCount int
		terminal error
	)
	fail := func(err error) (ucclient.CookieBundle, error) {
		terminal = err
		return nil, backoff.Permanent(err)
	}

	operation := func() (ucclient.CookieBundle, error) {
		if err := ctxutil.Cause(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		polls++
		res := m.poll(ctx, token, polls)
		if res.Kind == ucclient.TransportError {
			errCount++
		}
		m.bus.Publish(events.TopicPoll(m.id), events.PollAttempt{
			AttemptID: m.id,
			Seq:       polls,
			At:        m.now(),
			Kind:      res.Kind,
			Code:      res.Code,
			Errors:    errCount,
			Err:       res.Err,
		})

		switch res.Kind {
		case ucclient.Confirmed:
			log.Infow("qr code confirmed, exchanging ticket", "attempt", m.id)
			bundle, err := m.service.ExchangeTicket(ctx, res.Ticket)
			if err != nil {
				return fail(err)
			}
			if err := m.store.Save(bundle.String()); err != nil {
				return fail(fmt.Errorf("%w: %w", ErrPersist, err))
			}
			return bundle, nil
		case ucclient.Expired:
			return fail(ErrExpired)
		case ucclient.TransportError:
			log.Errorw("status poll failed", "attempt", m.id, "errors", errCount, "error", res.Err)
			if errCount >= m.maxErrors {
				return fail(fmt.Errorf("%w (%d): %w", ErrTooManyErrors, errCount, res.Err))
			}
			return nil, backoff.RetryAfter(0)
		default:
			if m.verbose {
				log.Infow("waiting for the qr code to be scanned", "attempt", m.id, "code", res.Code)
			}
			return nil, errAwaitingScan
		}
	}

	bundle, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(m.interval)),
		backoff.WithMaxElapsedTime(m.maxWait),
	)

	res := Result{Polls: polls}
	switch {
	case err == nil:
		res.Status = Success
		res.Cookies = bundle
	case ctx.Err() != nil:
		res.Status = Pending
		res.Err = ctxutil.Cause(ctx)
		log.Infow("login canceled", "attempt", m.id, "polls", polls)
		span.SetStatus(codes.Error, "canceled")
		return res
	case terminal != nil:
		res.Status = Failure
		res.Err = terminal
	default:
		res.Status = Failure
		res.Err = fmt.Errorf("%w after %s", ErrTimedOut, strings.TrimSpace(humanize.RelTime(startedAt, m.now(), "", "")))
	}

	m.publisher.Set(res.Status)
	m.bus.Publish(events.TopicTransition(m.id), events.Transition{
		AttemptID: m.id,
		Status:    res.Status.String(),
		At:        m.now(),
		Err:       res.Err,
	})
	if res.Err != nil {
		log.Errorw("login failed", "attempt", m.id, "polls", polls, "error", res.Err)
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	} else {
		log.Infow("login succeeded", "attempt", m.id, "polls", polls, "cookies", len(res.Cookies))
	}
	span.SetAttributes(attribute.String("login.status", res.Status.String()), attribute.Int("login.polls", polls))
	return res
}

func (m *Machine) poll(ctx context.Context, token ucclient.Token, seq int) ucclient.PollResult {
	ctx, span := tracer.Start(ctx, "qrlogin.poll", trace.WithAttributes(attribute.Int("poll.seq", seq)))
	defer span.End()

	res := m.service.PollStatus(ctx, token)
	span.SetAttributes(
		attribute.String("poll.kind", res.Kind.String()),
		attribute.Int("poll.code", res.Code),
	)
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	}
	return res
}
