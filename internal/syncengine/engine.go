package syncengine

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldops/internal/chunk"
	"github.com/smallbiznis/fieldops/internal/clock"
	"github.com/smallbiznis/fieldops/internal/config"
	"github.com/smallbiznis/fieldops/internal/enrichment"
	fsdomain "github.com/smallbiznis/fieldops/internal/fieldservice/domain"
	jobdomain "github.com/smallbiznis/fieldops/internal/job/domain"
	"github.com/smallbiznis/fieldops/internal/labor"
	obscontext "github.com/smallbiznis/fieldops/internal/observability/context"
	obslogger "github.com/smallbiznis/fieldops/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/fieldops/internal/observability/metrics"
	"github.com/smallbiznis/fieldops/internal/observability/tracing"
	"github.com/smallbiznis/fieldops/internal/reconcile"
	referencedomain "github.com/smallbiznis/fieldops/internal/reference/domain"
	syncrundomain "github.com/smallbiznis/fieldops/internal/syncrun/domain"
	techservice "github.com/smallbiznis/fieldops/internal/technician/service"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	lookupBatchSize = 500
	maxRunErrorText = 8000
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Client      fsdomain.Client
	JobRepo     jobdomain.Repository
	RunRepo     syncrundomain.Repository
	Reference   referencedomain.Repository
	Technicians *techservice.Service
	Enricher    *enrichment.Worker
	SyncConfig  *config.SyncConfigHolder
	Clock       clock.Clock             `optional:"true"`
	Metrics     *obsmetrics.SyncMetrics `optional:"true"`
}

type Engine struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	client      fsdomain.Client
	jobRepo     jobdomain.Repository
	runRepo     syncrundomain.Repository
	reference   referencedomain.Repository
	technicians *techservice.Service
	enricher    *enrichment.Worker
	syncConfig  *config.SyncConfigHolder
	clock       clock.Clock
	metrics     *obsmetrics.SyncMetrics
	tracer      trace.Tracer
}

func New(p Params) *Engine {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Engine{
		db:          p.DB,
		log:         p.Log.Named("syncengine"),
		genID:       p.GenID,
		client:      p.Client,
		jobRepo:     p.JobRepo,
		runRepo:     p.RunRepo,
		reference:   p.Reference,
		technicians: p.Technicians,
		enricher:    p.Enricher,
		syncConfig:  p.SyncConfig,
		clock:       clk,
		metrics:     p.Metrics,
		tracer:      tracing.Tracer("syncengine"),
	}
}

// RunBackfillChunk processes one window of the backfill. An index past the
// last window reports done without doing any work.
func (e *Engine) RunBackfillChunk(ctx context.Context, index int) (ChunkResult, error) {
	if index < 0 {
		return ChunkResult{}, ErrInvalidChunk
	}
	cfg := e.syncConfig.Get()
	planner := chunk.NewPlanner(cfg.EpochDate(), e.clock.Now(), cfg.WindowDays)
	total := planner.WindowCount()
	if planner.Done(index) {
		return ChunkResult{Done: true, Chunk: index, ChunksTotal: total}, nil
	}
	window, err := planner.WindowAt(index)
	if err != nil {
		return ChunkResult{}, err
	}

	run, err := e.backfillRun(ctx, planner, index)
	if err != nil {
		return ChunkResult{}, err
	}
	return e.runTracked(ctx, run, index, planner.IsLast(index), window, cfg)
}

// RunIncremental re-syncs the trailing lookback days, today included.
func (e *Engine) RunIncremental(ctx context.Context) (ChunkResult, error) {
	cfg := e.syncConfig.Get()
	today := chunk.Day(e.clock.Now())
	window := fsdomain.DateRange{
		From: today.AddDate(0, 0, -cfg.IncrementalLookbackDays),
		To:   today.AddDate(0, 0, 1),
	}

	run := e.newRun(syncrundomain.RunTypeIncremental, 1)
	if err := e.runRepo.Create(ctx, e.db, run); err != nil {
		return ChunkResult{}, err
	}
	return e.runTracked(ctx, run, 0, true, window, cfg)
}

func (e *Engine) ListRuns(ctx context.Context, limit int) ([]syncrundomain.SyncRun, error) {
	return e.runRepo.ListRecent(ctx, e.db, limit)
}

func (e *Engine) LatestRun(ctx context.Context) (*syncrundomain.SyncRun, error) {
	run, err := e.runRepo.Latest(ctx, e.db)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, syncrundomain.ErrNotFound
	}
	return run, nil
}

// backfillRun opens a run on the first chunk and reuses the open one after
// that. Retrying the chunk a run failed on reopens that run. A first chunk
// supersedes any backfill still marked running.
func (e *Engine) backfillRun(ctx context.Context, planner chunk.Planner, index int) (*syncrundomain.SyncRun, error) {
	latest, err := e.runRepo.FindLatest(ctx, e.db, syncrundomain.RunTypeBackfill)
	if err != nil {
		return nil, err
	}
	if latest != nil && !planner.IsFirst(index) {
		switch {
		case latest.Status == syncrundomain.StatusRunning:
			latest.ChunksTotal = planner.WindowCount()
			return latest, nil
		case latest.Status == syncrundomain.StatusFailed && latest.LastChunk == index:
			latest.Status = syncrundomain.StatusRunning
			latest.CompletedAt = nil
			latest.ChunksTotal = planner.WindowCount()
			e.log.Info("sync.run.reopened",
				zap.String("run_id", latest.ID.String()),
				zap.Int("chunk", index),
			)
			return latest, nil
		}
	}
	if latest != nil && planner.IsFirst(index) && latest.Status == syncrundomain.StatusRunning {
		now := e.clock.Now()
		latest.Status = syncrundomain.StatusFailed
		latest.CompletedAt = &now
		latest.Errors = appendRunError(latest.Errors, "superseded by a new backfill")
		if err := e.runRepo.Update(ctx, e.db, latest); err != nil {
			return nil, err
		}
	}

	run := e.newRun(syncrundomain.RunTypeBackfill, planner.WindowCount())
	if err := e.runRepo.Create(ctx, e.db, run); err != nil {
		return nil, err
	}
	return run, nil
}

func (e *Engine) newRun(runType syncrundomain.RunType, chunks int) *syncrundomain.SyncRun {
	return &syncrundomain.SyncRun{
		ID:          e.genID.Generate(),
		RunType:     runType,
		Status:      syncrundomain.StatusRunning,
		StartedAt:   e.clock.Now(),
		ChunksTotal: chunks,
	}
}

// runTracked runs one window under the configured timeout and folds the
// outcome into run. Run bookkeeping uses the caller's context so a timed out
// window can still be recorded as failed.
func (e *Engine) runTracked(ctx context.Context, run *syncrundomain.SyncRun, index int, last bool, window fsdomain.DateRange, cfg config.SyncConfig) (ChunkResult, error) {
	ctx = obscontext.WithSyncRunID(ctx, run.ID.String())
	log := obslogger.WithContext(ctx, e.log).With(
		zap.String("run_type", string(run.RunType)),
		zap.Int("chunk", index),
		zap.Int("chunks_total", run.ChunksTotal),
	)
	log.Info("sync.window.start",
		zap.Time("from", window.From),
		zap.Time("to", window.To),
	)

	windowCtx := ctx
	if cfg.WindowTimeout > 0 {
		var cancel context.CancelFunc
		windowCtx, cancel = context.WithTimeout(ctx, cfg.WindowTimeout)
		defer cancel()
	}

	start := time.Now()
	res, runErr := e.RunWindow(windowCtx, window, cfg)
	e.metrics.ObserveWindow(string(run.RunType), time.Since(start), runErr)

	run.LastChunk = index
	run.JobsProcessed += res.Processed
	run.JobsCreated += res.Created
	run.JobsUpdated += res.Updated
	for _, msg := range res.Errors {
		run.Errors = appendRunError(run.Errors, msg)
	}

	now := e.clock.Now()
	switch {
	case runErr != nil:
		run.Status = syncrundomain.StatusFailed
		run.CompletedAt = &now
		run.Errors = appendRunError(run.Errors, fmt.Sprintf("chunk %d: %v", index, runErr))
	case last:
		run.Status = syncrundomain.StatusCompleted
		run.CompletedAt = &now
	}
	if err := e.runRepo.Update(ctx, e.db, run); err != nil {
		log.Error("sync.run.update_failed", zap.Error(err))
		if runErr == nil {
			runErr = err
		}
	}

	out := ChunkResult{
		Done:          runErr == nil && last,
		Chunk:         index,
		ChunksTotal:   run.ChunksTotal,
		JobsProcessed: res.Processed,
		JobsCreated:   res.Created,
		JobsUpdated:   res.Updated,
		Errors:        res.Errors,
		RunID:         run.ID.String(),
	}
	if runErr != nil {
		log.Error("sync.window.failed",
			zap.String("error_type", obsmetrics.ClassifySyncErrorReason(runErr)),
			zap.Bool("retryable", obsmetrics.IsSyncErrorRetryable(runErr)),
			zap.Error(runErr),
		)
		return out, &WindowError{RunType: run.RunType, Chunk: index, Err: runErr}
	}

	fields := []zap.Field{
		zap.Int("processed", res.Processed),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("job_errors", len(res.Errors)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	}
	if len(res.Errors) > 0 {
		log.Warn("sync.window.finish", fields...)
	} else {
		log.Info("sync.window.finish", fields...)
	}
	return out, nil
}

// snapshot is everything fetched upstream for one window.
type snapshot struct {
	units        []fsdomain.BusinessUnit
	types        []fsdomain.JobType
	technicians  []fsdomain.Technician
	overrides    []referencedomain.TradeOverride
	jobs         []fsdomain.Job
	appointments []fsdomain.Appointment
	timesheets   []fsdomain.TimesheetEntry
	assignments  []fsdomain.AppointmentAssignment
}

// RunWindow syncs every job completed or scheduled inside window. Per-job
// failures are collected; any other error fails the window.
func (e *Engine) RunWindow(ctx context.Context, window fsdomain.DateRange, cfg config.SyncConfig) (WindowResult, error) {
	ctx, span := e.tracer.Start(ctx, "sync.window", trace.WithAttributes(tracing.SafeAttributes(
		attribute.String("window.from", window.From.Format(time.DateOnly)),
		attribute.String("window.to", window.To.Format(time.DateOnly)),
	)...))
	defer span.End()

	var res WindowResult
	snap, err := e.fetch(ctx, window, cfg)
	if err != nil {
		return res, e.fail(span, err)
	}

	rates, err := e.technicians.Refresh(ctx, snap.technicians)
	if err != nil {
		return res, e.fail(span, fmt.Errorf("refresh technicians: %w", err))
	}

	ids := make([]int64, 0, len(snap.jobs))
	for _, job := range snap.jobs {
		ids = append(ids, job.ID)
	}
	existing, err := e.findExisting(ctx, ids)
	if err != nil {
		return res, e.fail(span, fmt.Errorf("load existing jobs: %w", err))
	}

	overrides := make(map[string]string, len(snap.overrides))
	for _, o := range snap.overrides {
		overrides[o.BusinessUnitName] = o.Trade
	}
	classifier := reconcile.NewClassifier(cfg.TradeOverrides, overrides)
	refs := reconcile.NewReferences(snap.units, snap.types)
	apptsByJob := groupAppointments(snap.appointments)
	sheetsByJob := groupTimesheets(snap.timesheets)
	techsByJob := dispatchTechnicians(snap.appointments, snap.assignments)

	var created, invoiced []*jobdomain.InstallJob
	for _, job := range snap.jobs {
		if err := ctx.Err(); err != nil {
			return res, e.fail(span, err)
		}
		res.Processed++

		lab := labor.Calculate(labor.Input{
			Timesheets:    sheetsByJob[job.ID],
			Appointments:  apptsByJob[job.ID],
			DispatchTechs: techsByJob[job.ID],
			Rates:         rates,
		})
		cand := reconcile.NewCandidate(job, refs, classifier, apptsByJob[job.ID], lab, e.clock.Now())

		saved, op, err := e.persist(ctx, cand, existing[job.ID])
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("job %d: %v", job.ID, err))
			e.metrics.AddJobs(obsmetrics.JobOutcomeFailed, 1)
			obslogger.WithContext(ctx, e.log).Warn("sync.job.failed",
				zap.Int64("external_id", job.ID),
				zap.Error(err),
			)
			continue
		}
		switch op {
		case reconcile.OpCreate:
			res.Created++
			created = append(created, saved)
		case reconcile.OpUpdate:
			res.Updated++
		}
		if saved.InvoiceID != nil {
			invoiced = append(invoiced, saved)
		}
	}
	e.metrics.AddJobs(obsmetrics.JobOutcomeCreated, res.Created)
	e.metrics.AddJobs(obsmetrics.JobOutcomeUpdated, res.Updated)

	res.Enrichment = e.enricher.Enrich(ctx, created, cfg.EnrichmentWorkers)
	res.Invoices = e.enricher.ResolveInvoices(ctx, invoiced, cfg.EnrichmentWorkers)

	span.SetAttributes(
		attribute.Int("jobs.processed", res.Processed),
		attribute.Int("jobs.created", res.Created),
		attribute.Int("jobs.updated", res.Updated),
		attribute.Int("jobs.failed", len(res.Errors)),
	)
	return res, nil
}

func (e *Engine) fail(span trace.Span, err error) error {
	span.RecordError(tracing.SafeError(err))
	span.SetStatus(codes.Error, obsmetrics.ClassifySyncErrorReason(err))
	return err
}

// fetch runs the independent upstream reads of a window concurrently, then
// follows up with the reads that depend on them.
func (e *Engine) fetch(ctx context.Context, window fsdomain.DateRange, cfg config.SyncConfig) (*snapshot, error) {
	snap := &snapshot{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.units, err = e.client.ListBusinessUnits(gctx)
		return wrap("business units", err)
	})
	g.Go(func() (err error) {
		snap.types, err = e.client.ListJobTypes(gctx)
		return wrap("job types", err)
	})
	g.Go(func() (err error) {
		snap.technicians, err = e.client.ListTechnicians(gctx)
		return wrap("technicians", err)
	})
	g.Go(func() (err error) {
		snap.overrides, err = e.reference.ListTradeOverrides(gctx)
		return wrap("trade overrides", err)
	})
	g.Go(func() (err error) {
		snap.jobs, err = e.client.ListJobs(gctx, window)
		return wrap("jobs", err)
	})
	g.Go(func() (err error) {
		snap.appointments, err = e.client.ListAppointments(gctx, window)
		return wrap("appointments", err)
	})
	g.Go(func() (err error) {
		snap.timesheets, err = e.client.ListTimesheets(gctx, window.Pad(cfg.TimesheetPadDays))
		return wrap("timesheets", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(snap.jobs))
	for _, job := range snap.jobs {
		seen[job.ID] = struct{}{}
	}
	var scheduledOnly, apptIDs []int64
	for _, a := range snap.appointments {
		apptIDs = append(apptIDs, a.ID)
		if _, ok := seen[a.JobID]; ok || a.JobID == 0 {
			continue
		}
		seen[a.JobID] = struct{}{}
		scheduledOnly = append(scheduledOnly, a.JobID)
	}

	g, gctx = errgroup.WithContext(ctx)
	var extra []fsdomain.Job
	if len(scheduledOnly) > 0 {
		g.Go(func() (err error) {
			extra, err = e.client.ListJobsByID(gctx, scheduledOnly)
			return wrap("scheduled jobs", err)
		})
	}
	if len(apptIDs) > 0 {
		g.Go(func() (err error) {
			snap.assignments, err = e.client.ListAppointmentAssignments(gctx, apptIDs)
			return wrap("assignments", err)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	snap.jobs = append(snap.jobs, extra...)
	return snap, nil
}

func wrap(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("fetch %s: %w", what, err)
}

func (e *Engine) findExisting(ctx context.Context, ids []int64) (map[int64]*jobdomain.InstallJob, error) {
	out := make(map[int64]*jobdomain.InstallJob, len(ids))
	for start := 0; start < len(ids); start += lookupBatchSize {
		end := min(start+lookupBatchSize, len(ids))
		found, err := e.jobRepo.FindByExternalIDs(ctx, e.db, ids[start:end])
		if err != nil {
			return nil, err
		}
		for id, job := range found {
			out[id] = job
		}
	}
	return out, nil
}

// persist writes the reconciled plan and returns the job as stored. A create
// that loses an insert race falls back to a merge against the winner.
func (e *Engine) persist(ctx context.Context, cand reconcile.Candidate, existing *jobdomain.InstallJob) (*jobdomain.InstallJob, reconcile.Operation, error) {
	plan := reconcile.Reconcile(cand, existing, e.genID.Generate)
	if plan.Op == reconcile.OpCreate {
		ok, err := e.jobRepo.Create(ctx, e.db, plan.Create)
		if err != nil {
			return nil, plan.Op, err
		}
		if ok {
			return plan.Create, plan.Op, nil
		}
		found, err := e.jobRepo.FindByExternalIDs(ctx, e.db, []int64{cand.ExternalID})
		if err != nil {
			return nil, plan.Op, err
		}
		existing = found[cand.ExternalID]
		if existing == nil {
			return nil, plan.Op, fmt.Errorf("job %d vanished after insert conflict", cand.ExternalID)
		}
		plan = reconcile.Reconcile(cand, existing, e.genID.Generate)
	}

	if err := e.jobRepo.UpdateFields(ctx, e.db, existing.ID, plan.Fields); err != nil {
		return nil, plan.Op, err
	}
	saved := *existing
	saved.InvoiceID = cand.InvoiceID
	return &saved, plan.Op, nil
}

func groupAppointments(appts []fsdomain.Appointment) map[int64][]fsdomain.Appointment {
	out := make(map[int64][]fsdomain.Appointment)
	for _, a := range appts {
		out[a.JobID] = append(out[a.JobID], a)
	}
	return out
}

func groupTimesheets(entries []fsdomain.TimesheetEntry) map[int64][]fsdomain.TimesheetEntry {
	out := make(map[int64][]fsdomain.TimesheetEntry)
	for _, t := range entries {
		out[t.JobID] = append(out[t.JobID], t)
	}
	return out
}

// dispatchTechnicians maps job id to the distinct active technicians
// dispatched to it, in assignment order.
func dispatchTechnicians(appts []fsdomain.Appointment, assignments []fsdomain.AppointmentAssignment) map[int64][]int64 {
	jobByAppt := make(map[int64]int64, len(appts))
	for _, a := range appts {
		jobByAppt[a.ID] = a.JobID
	}
	out := make(map[int64][]int64)
	seen := make(map[[2]int64]struct{})
	for _, as := range assignments {
		if !as.Active || as.TechnicianID == 0 {
			continue
		}
		jobID := as.JobID
		if jobID == 0 {
			jobID = jobByAppt[as.AppointmentID]
		}
		if jobID == 0 {
			continue
		}
		key := [2]int64{jobID, as.TechnicianID}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out[jobID] = append(out[jobID], as.TechnicianID)
	}
	return out
}

func appendRunError(current *string, msg string) *string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return current
	}
	text := msg
	if current != nil && *current != "" {
		text = *current + "\n" + msg
	}
	if len(text) > maxRunErrorText {
		cut := len(text) - maxRunErrorText
		for cut < len(text) && !utf8.RuneStart(text[cut]) {
			cut++
		}
		text = text[cut:]
	}
	return &text
}
