package enrichment

import (
	"context"
	"strings"
	"sync"

	fsdomain "github.com/smallbiznis/fieldops/internal/fieldservice/domain"
	jobdomain "github.com/smallbiznis/fieldops/internal/job/domain"
	obsmetrics "github.com/smallbiznis/fieldops/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const DefaultWorkers = 5

// Summary counts fetches. Failed items are only missing from Succeeded.
type Summary struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
}

func (s Summary) add(o Summary) Summary {
	return Summary{Attempted: s.Attempted + o.Attempted, Succeeded: s.Succeeded + o.Succeeded}
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Client  fsdomain.Client
	Repo    jobdomain.Repository
	Metrics *obsmetrics.SyncMetrics `optional:"true"`
}

// Worker fills customer, location and invoice details after reconciliation.
// Everything it does is best-effort.
type Worker struct {
	db      *gorm.DB
	log     *zap.Logger
	client  fsdomain.Client
	repo    jobdomain.Repository
	metrics *obsmetrics.SyncMetrics
}

func New(p Params) *Worker {
	return &Worker{
		db:      p.DB,
		log:     p.Log.Named("enrichment"),
		client:  p.Client,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

// Enrich resolves the distinct customers and locations of jobs with at most
// workers requests in flight and writes back whatever non-empty values came
// back.
func (w *Worker) Enrich(ctx context.Context, jobs []*jobdomain.InstallJob, workers int) Summary {
	if len(jobs) == 0 {
		return Summary{}
	}

	var customerIDs, locationIDs []int64
	seenC := make(map[int64]struct{})
	seenL := make(map[int64]struct{})
	for _, job := range jobs {
		if job.CustomerID != nil {
			if _, ok := seenC[*job.CustomerID]; !ok {
				seenC[*job.CustomerID] = struct{}{}
				customerIDs = append(customerIDs, *job.CustomerID)
			}
		}
		if job.LocationID != nil {
			if _, ok := seenL[*job.LocationID]; !ok {
				seenL[*job.LocationID] = struct{}{}
				locationIDs = append(locationIDs, *job.LocationID)
			}
		}
	}

	customers, cs := fetchAll(ctx, customerIDs, workers, w.client.GetCustomer)
	locations, ls := fetchAll(ctx, locationIDs, workers, w.client.GetLocation)
	w.metrics.AddEnrichment(obsmetrics.EnrichmentCustomer, cs.Attempted, cs.Succeeded)
	w.metrics.AddEnrichment(obsmetrics.EnrichmentLocation, ls.Attempted, ls.Succeeded)

	for _, job := range jobs {
		fields := make(map[string]any)
		if job.CustomerID != nil {
			if c, ok := customers[*job.CustomerID]; ok {
				setText(fields, "customer_name", c.Name)
				setText(fields, "customer_phone", c.Phone)
				setText(fields, "customer_email", c.Email)
			}
		}
		if job.LocationID != nil {
			if l, ok := locations[*job.LocationID]; ok {
				setText(fields, "location_address", l.Address.Format())
			}
		}
		w.write(ctx, job, fields)
	}

	summary := cs.add(ls)
	w.log.Info("sync.enrichment.done",
		zap.Int("jobs", len(jobs)),
		zap.Int("attempted", summary.Attempted),
		zap.Int("succeeded", summary.Succeeded),
	)
	return summary
}

// ResolveInvoices copies invoice number, date and sync status onto every job
// that references an invoice.
func (w *Worker) ResolveInvoices(ctx context.Context, jobs []*jobdomain.InstallJob, workers int) Summary {
	var ids []int64
	seen := make(map[int64]struct{})
	for _, job := range jobs {
		if job.InvoiceID == nil {
			continue
		}
		if _, ok := seen[*job.InvoiceID]; ok {
			continue
		}
		seen[*job.InvoiceID] = struct{}{}
		ids = append(ids, *job.InvoiceID)
	}
	if len(ids) == 0 {
		return Summary{}
	}

	invoices, summary := fetchAll(ctx, ids, workers, w.client.GetInvoice)
	w.metrics.AddEnrichment(obsmetrics.EnrichmentInvoice, summary.Attempted, summary.Succeeded)

	for _, job := range jobs {
		if job.InvoiceID == nil {
			continue
		}
		inv, ok := invoices[*job.InvoiceID]
		if !ok {
			continue
		}
		fields := make(map[string]any)
		setText(fields, "invoice_number", inv.ReferenceNumber)
		setText(fields, "invoice_sync_status", inv.SyncStatus)
		if inv.InvoiceDate != nil {
			fields["invoice_date"] = inv.InvoiceDate.UTC()
		}
		w.write(ctx, job, fields)
	}
	return summary
}

func (w *Worker) write(ctx context.Context, job *jobdomain.InstallJob, fields map[string]any) {
	if len(fields) == 0 {
		return
	}
	if err := w.repo.UpdateFields(ctx, w.db, job.ID, fields); err != nil {
		w.log.Warn("sync.enrichment.write_failed",
			zap.Int64("external_id", job.ExternalID),
			zap.Error(err),
		)
	}
}

// fetchAll runs fetch for every id on a bounded pool. Errors only lower the
// success count.
func fetchAll[T any](ctx context.Context, ids []int64, workers int, fetch func(context.Context, int64) (T, error)) (map[int64]T, Summary) {
	out := make(map[int64]T, len(ids))
	if len(ids) == 0 {
		return out, Summary{}
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for _, id := range ids {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			v, err := fetch(ctx, id)
			if err != nil {
				return nil
			}
			mu.Lock()
			out[id] = v
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out, Summary{Attempted: len(ids), Succeeded: len(out)}
}

func setText(fields map[string]any, column, value string) {
	if v := strings.TrimSpace(value); v != "" {
		fields[column] = v
	}
}
