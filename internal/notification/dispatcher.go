package notification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/fieldops/internal/config"
	obsmetrics "github.com/smallbiznis/fieldops/internal/observability/metrics"
	"github.com/smallbiznis/fieldops/internal/payment"
	"github.com/smallbiznis/fieldops/internal/providers/email"
	"github.com/smallbiznis/fieldops/internal/providers/slack"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const sendTimeout = 30 * time.Second

var ErrStopped = errors.New("dispatcher_stopped")

// Task asks for a contractor payment notification.
type Task struct {
	ID              string
	JobID           snowflake.ID
	JobNumber       string
	ContractorName  string
	ContractorEmail string
	Status          payment.Status
	Amount          *float64
	ExpectedDate    *time.Time
	CreatedAt       time.Time
}

// Enqueuer is what state transitions depend on.
type Enqueuer interface {
	Enqueue(task Task) bool
}

type Params struct {
	fx.In

	Lc      fx.Lifecycle `optional:"true"`
	Config  config.Config
	Log     *zap.Logger
	Slack   slack.Provider
	Email   email.Provider
	Metrics *obsmetrics.Metrics `optional:"true"`
}

// Dispatcher delivers tasks from a bounded queue with a fixed worker count.
// Enqueue never blocks; a full queue drops the task.
type Dispatcher struct {
	log     *zap.Logger
	slack   slack.Provider
	email   email.Provider
	metrics *obsmetrics.Metrics
	workers int

	queue  chan Task
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	cancel context.CancelFunc
}

func New(p Params) *Dispatcher {
	d := newDispatcher(p.Log, p.Slack, p.Email, p.Metrics, p.Config.Notify.Workers, p.Config.Notify.QueueSize)
	if p.Lc != nil {
		p.Lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				d.Start()
				return nil
			},
			OnStop: d.Stop,
		})
	}
	return d
}

func newDispatcher(log *zap.Logger, sp slack.Provider, ep email.Provider, metrics *obsmetrics.Metrics, workers, queueSize int) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if sp == nil {
		sp = &slack.NoOpProvider{}
	}
	if ep == nil {
		ep = &email.NoOpProvider{}
	}
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &Dispatcher{
		log:     log.Named("notification.dispatcher"),
		slack:   sp,
		email:   ep,
		metrics: metrics,
		workers: workers,
		queue:   make(chan Task, queueSize),
	}
}

func (d *Dispatcher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run(ctx)
	}
}

// Stop drains queued tasks until ctx ends.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		if d.cancel != nil {
			d.cancel()
		}
		return nil
	case <-ctx.Done():
		if d.cancel != nil {
			d.cancel()
		}
		return ctx.Err()
	}
}

func (d *Dispatcher) Enqueue(task Task) bool {
	if task.ID == "" {
		task.ID = ulid.MustNew(ulid.Now(), rand.Reader).String()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn("notification dropped, dispatcher stopped", zap.String("task_id", task.ID))
		return false
	}

	select {
	case d.queue <- task:
		return true
	default:
		obsmetrics.Sync().IncNotificationDropped()
		d.metrics.RecordNotification(context.Background(), "queue", "dropped")
		d.log.Warn("notification dropped, queue full",
			zap.String("task_id", task.ID),
			zap.String("job_id", task.JobID.String()),
		)
		return false
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for task := range d.queue {
		d.deliver(ctx, task)
	}
}

func (d *Dispatcher) deliver(parent context.Context, task Task) {
	ctx, cancel := context.WithTimeout(parent, sendTimeout)
	defer cancel()

	log := d.log.With(zap.String("task_id", task.ID), zap.String("job_id", task.JobID.String()))

	if err := d.slack.PostMessage(ctx, slackMessage(task)); err != nil {
		d.metrics.RecordNotification(ctx, "slack", "failed")
		log.Warn("slack notification failed", zap.Error(err))
	} else {
		d.metrics.RecordNotification(ctx, "slack", "sent")
	}

	if strings.TrimSpace(task.ContractorEmail) == "" {
		return
	}
	err := d.email.SendTemplate(ctx, []string{task.ContractorEmail}, "payment_update", emailData(task))
	if err != nil {
		d.metrics.RecordNotification(ctx, "email", "failed")
		log.Warn("email notification failed", zap.Error(err))
		return
	}
	d.metrics.RecordNotification(ctx, "email", "sent")
}

func statusLabel(s payment.Status) string {
	return strings.ReplaceAll(string(s), "_", " ")
}

func slackMessage(t Task) string {
	msg := fmt.Sprintf("Job %s (%s): payment %s", t.JobNumber, t.ContractorName, statusLabel(t.Status))
	if t.Amount != nil {
		msg += fmt.Sprintf(", $%.2f", *t.Amount)
	}
	return msg
}

func emailData(t Task) map[string]any {
	data := map[string]any{
		"subject":         fmt.Sprintf("Job %s payment %s", t.JobNumber, statusLabel(t.Status)),
		"contractor_name": t.ContractorName,
		"job_number":      t.JobNumber,
		"status_label":    statusLabel(t.Status),
	}
	if t.Amount != nil {
		data["amount"] = fmt.Sprintf("%.2f", *t.Amount)
	}
	if t.ExpectedDate != nil {
		data["expected_date"] = t.ExpectedDate.Format("2006-01-02")
	}
	return data
}
