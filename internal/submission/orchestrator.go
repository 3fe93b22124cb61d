// Package submission runs one order attempt from the validated form to a
// sink, racing the sink call against a timeout, and reports every step to the
// message display and the attempt log.
package submission

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jcmexdev/pharmacy-orders/internal/catalog"
	"github.com/jcmexdev/pharmacy-orders/internal/notify"
	"github.com/jcmexdev/pharmacy-orders/internal/order"
	"github.com/jcmexdev/pharmacy-orders/internal/order/validation"
	"github.com/jcmexdev/pharmacy-orders/internal/pkg/interceptors"
	"github.com/jcmexdev/pharmacy-orders/internal/submission/attemptlog"
)

// State is the position of the orchestrator in the submit cycle.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSuccess    State = "success"
	StateError      State = "error"
)

var (
	ErrTimeout          = errors.New("submission: sink timed out")
	ErrSubmitInProgress = errors.New("submission: a submission is already in progress")
	ErrNothingSelected  = errors.New("submission: no items selected")
)

const (
	MsgSending    = "Enviando pedido..."
	MsgSuccess    = "¡Pedido enviado correctamente! Nos contactaremos pronto."
	MsgTimeout    = "El servidor está tardando demasiado. Intente nuevamente."
	MsgConnection = "Error de conexión. Intente nuevamente."
	MsgIncomplete = "Por favor, complete todos los campos requeridos."
	MsgRejected   = "No se pudo procesar el pedido. Intente nuevamente."

	handoffSink = "whatsapp"
)

// Request is what the form hands over on submit.
type Request struct {
	Form     validation.Form
	Clinical order.Clinical
}

func (r Request) customer() order.Customer {
	return order.Customer{
		Name:       r.Form.Name,
		NationalID: r.Form.NationalID,
		Phone:      r.Form.Phone,
		Email:      r.Form.Email,
	}
}

// Outcome is the settled result of one Submit call.
type Outcome struct {
	OrderID    string            `json:"order_id,omitempty"`
	State      State             `json:"state"`
	Validation validation.Result `json:"validation"`
	Message    string            `json:"message,omitempty"`
	// Unobserved is set when the sink cannot report failures and success
	// was assumed.
	Unobserved bool  `json:"unobserved,omitempty"`
	BackedUp   bool  `json:"backed_up,omitempty"`
	Err        error `json:"-"`
}

// Config wires an Orchestrator. Store and Sink are required; the other
// fields fall back to defaults when zero.
type Config struct {
	Store    *catalog.Store
	Sink     Sink
	Rules    validation.Rules
	Notifier notify.Notifier
	// AttemptLog may be nil.
	AttemptLog attemptlog.Repository
	// Pending enables the failed-order backup when set.
	Pending      *PendingSlot
	Logger       *slog.Logger
	Timeout      time.Duration
	SuccessDelay time.Duration
	HandoffPhone string
	Now          func() time.Time
}

// Orchestrator moves between idle, submitting, success and error. Only one
// submission can be in flight.
type Orchestrator struct {
	store        *catalog.Store
	sink         Sink
	rules        validation.Rules
	notifier     notify.Notifier
	attempts     attemptlog.Repository
	pending      *PendingSlot
	log          *slog.Logger
	timeout      time.Duration
	successDelay time.Duration
	handoffPhone string
	now          func() time.Time

	mu    sync.Mutex
	state State
	// epoch invalidates a scheduled success reset once the state moves on.
	epoch uint64
}

// NewOrchestrator starts idle, with a 10s sink timeout and a 2s success
// display unless cfg says otherwise.
func NewOrchestrator(cfg Config) *Orchestrator {
	o := &Orchestrator{
		store:        cfg.Store,
		sink:         cfg.Sink,
		rules:        cfg.Rules,
		notifier:     cfg.Notifier,
		attempts:     cfg.AttemptLog,
		pending:      cfg.Pending,
		log:          cfg.Logger,
		timeout:      cfg.Timeout,
		successDelay: cfg.SuccessDelay,
		handoffPhone: cfg.HandoffPhone,
		now:          cfg.Now,
		state:        StateIdle,
	}
	if o.notifier == nil {
		o.notifier = notify.Discard{}
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	if o.timeout <= 0 {
		o.timeout = 10 * time.Second
	}
	if o.successDelay <= 0 {
		o.successDelay = 2 * time.Second
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Submitting reports whether a sink call is outstanding.
func (o *Orchestrator) Submitting() bool {
	return o.State() == StateSubmitting
}

// Submit validates the form against the current cart and, when valid, sends
// exactly one submission. It blocks until the sink answers or the timeout
// fires. The sink call is never cancelled, a late answer is only ignored.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (Outcome, error) {
	o.mu.Lock()
	if o.state == StateSubmitting || o.state == StateSuccess {
		o.mu.Unlock()
		return Outcome{}, ErrSubmitInProgress
	}

	// One snapshot serves both the item check and the submission, so a cart
	// change cannot slip in between.
	lines := o.store.Lines()
	res := o.rules.Validate(req.Form, len(lines))
	if !res.Valid {
		o.setStateLocked(StateIdle)
		o.mu.Unlock()
		o.notifier.Show(notify.KindError, MsgIncomplete, res.Errors()...)
		return Outcome{State: StateIdle, Validation: res, Message: MsgIncomplete}, nil
	}
	o.setStateLocked(StateSubmitting)
	o.mu.Unlock()

	sub := order.NewSubmission(req.customer(), lines, o.now())
	sub.Clinical = req.Clinical

	ctx, span := otel.Tracer("submission").Start(ctx, "SubmitOrder")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", sub.OrderID),
		attribute.String("order.sink", o.sink.Name()),
		attribute.Int("order.units", sub.TotalUnits),
	)

	o.notifier.Show(notify.KindLoading, MsgSending)
	o.record(ctx, sub.OrderID, attemptlog.StatusSubmitting, encode(sub), nil)
	o.log.InfoContext(ctx, "submitting order", "order_id", sub.OrderID, "sink", o.sink.Name(), "units", sub.TotalUnits)

	err := o.race(ctx, sub)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return o.fail(ctx, sub, res, err), nil
	}
	return o.succeed(ctx, sub, res), nil
}

// race runs the sink call detached from ctx cancellation and returns
// whichever settles first: the call or the timer.
func (o *Orchestrator) race(ctx context.Context, sub *order.Submission) error {
	sendCtx := interceptors.WithIdempotencyKey(context.WithoutCancel(ctx), sub.OrderID)

	done := make(chan error, 1)
	go func() {
		done <- o.sink.Send(sendCtx, sub)
	}()

	timer := time.NewTimer(o.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return ErrTimeout
	}
}

func (o *Orchestrator) succeed(ctx context.Context, sub *order.Submission, res validation.Result) Outcome {
	o.mu.Lock()
	epoch := o.setStateLocked(StateSuccess)
	o.mu.Unlock()

	o.notifier.Show(notify.KindSuccess, MsgSuccess)
	o.record(ctx, sub.OrderID, attemptlog.StatusSucceeded, "", nil)
	o.log.InfoContext(ctx, "order submitted", "order_id", sub.OrderID, "sink", o.sink.Name(), "observed", o.sink.Observable())

	time.AfterFunc(o.successDelay, func() {
		o.mu.Lock()
		if o.epoch != epoch {
			o.mu.Unlock()
			return
		}
		o.setStateLocked(StateIdle)
		o.mu.Unlock()

		o.store.Reset()
		o.notifier.Hide()
	})

	return Outcome{
		OrderID:    sub.OrderID,
		State:      StateSuccess,
		Validation: res,
		Message:    MsgSuccess,
		Unobserved: !o.sink.Observable(),
	}
}

func (o *Orchestrator) fail(ctx context.Context, sub *order.Submission, res validation.Result, err error) Outcome {
	o.mu.Lock()
	o.setStateLocked(StateError)
	o.mu.Unlock()

	msg := FailureMessage(err)
	o.notifier.Show(notify.KindError, msg)
	o.record(ctx, sub.OrderID, attemptlog.StatusFailed, "", []string{err.Error()})
	o.log.ErrorContext(ctx, "order submission failed", "order_id", sub.OrderID, "sink", o.sink.Name(), "error", err)

	out := Outcome{
		OrderID:    sub.OrderID,
		State:      StateError,
		Validation: res,
		Message:    msg,
		Err:        err,
	}

	if o.pending != nil {
		if perr := o.pending.Save(ctx, sub); perr != nil {
			o.log.ErrorContext(ctx, "failed to back up pending order", "order_id", sub.OrderID, "error", perr)
		} else {
			out.BackedUp = true
			o.record(ctx, sub.OrderID, attemptlog.StatusBackedUp, "", nil)
		}
	}
	return out
}

// FailureMessage maps a sink error to the text shown to the user.
func FailureMessage(err error) string {
	if errors.Is(err, ErrTimeout) {
		return MsgTimeout
	}
	var se *SinkError
	if errors.As(err, &se) {
		if se.Message != "" {
			return se.Message
		}
		return MsgRejected
	}
	return MsgConnection
}

// Dismiss clears an error back to idle. It reports whether anything changed.
func (o *Orchestrator) Dismiss() bool {
	o.mu.Lock()
	if o.state != StateError {
		o.mu.Unlock()
		return false
	}
	o.setStateLocked(StateIdle)
	o.mu.Unlock()

	o.notifier.Hide()
	return true
}

// PendingOrder returns the last backed-up failed submission.
func (o *Orchestrator) PendingOrder(ctx context.Context) (*order.Submission, error) {
	if o.pending == nil {
		return nil, ErrNoPending
	}
	return o.pending.Load(ctx)
}

// ClearPending discards the backed-up failed submission once it has been
// recovered by hand.
func (o *Orchestrator) ClearPending(ctx context.Context) error {
	if o.pending == nil {
		return ErrNoPending
	}
	return o.pending.Clear(ctx)
}

// Handoff composes a message-app link for the current cart. Only the item
// selection is checked; the customer fields are included when present.
func (o *Orchestrator) Handoff(ctx context.Context, c order.Customer) (Handoff, error) {
	lines := o.store.Lines()
	if len(lines) == 0 {
		return Handoff{}, ErrNothingSelected
	}

	sub := order.NewSubmission(c, lines, o.now())
	text := ComposeMessage(sub)
	o.record(ctx, sub.OrderID, attemptlog.StatusHandoff, encode(sub), nil)

	return Handoff{
		OrderID: sub.OrderID,
		Text:    text,
		URL:     HandoffURL(o.handoffPhone, text),
	}, nil
}

func (o *Orchestrator) setStateLocked(s State) uint64 {
	o.state = s
	o.epoch++
	return o.epoch
}

// record writes to the attempt log. Failures are logged and swallowed.
func (o *Orchestrator) record(ctx context.Context, orderID string, status attemptlog.Status, payload string, errs []string) {
	if o.attempts == nil {
		return
	}
	sink := handoffSink
	if status != attemptlog.StatusHandoff {
		sink = o.sink.Name()
	}
	entry := attemptlog.NewEntry(ctx, orderID, status, sink, payload, errs)
	if err := o.attempts.Save(ctx, entry); err != nil {
		o.log.ErrorContext(ctx, "failed to write attempt log", "order_id", orderID, "status", status, "error", err)
	}
}

func encode(sub *order.Submission) string {
	b, err := json.Marshal(sub)
	if err != nil {
		return ""
	}
	return string(b)
}
