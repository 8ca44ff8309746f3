package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/smallbiznis/fieldops/internal/cache"
	"github.com/smallbiznis/fieldops/internal/config"
	"github.com/smallbiznis/fieldops/internal/fieldservice/domain"
	obsmetrics "github.com/smallbiznis/fieldops/internal/observability/metrics"
	"github.com/smallbiznis/fieldops/internal/observability/tracing"
	"github.com/smallbiznis/fieldops/internal/ratelimit"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	dateLayout = "2006-01-02"
	maxPages   = 500
	idBatch    = 50

	headerAppKey = "ST-App-Key"
)

type Params struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Metrics *obsmetrics.Metrics       `optional:"true"`
	Limiter *ratelimit.OutboundLimiter `optional:"true"`
}

type Client struct {
	http    *resty.Client
	cfg     config.FieldServiceConfig
	log     *zap.Logger
	metrics *obsmetrics.Metrics
	limiter *ratelimit.OutboundLimiter

	businessUnits *cache.TTLCache[string, []domain.BusinessUnit]
	jobTypes      *cache.TTLCache[string, []domain.JobType]
	technicians   *cache.TTLCache[string, []domain.Technician]
}

var _ domain.Client = (*Client)(nil)

func New(p Params) domain.Client {
	return newClient(p.Config.FieldService, p.Log, p.Metrics, p.Limiter)
}

func newClient(cfg config.FieldServiceConfig, log *zap.Logger, metrics *obsmetrics.Metrics, limiter *ratelimit.OutboundLimiter) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}

	c := &Client{
		cfg:           cfg,
		log:           log.Named("fieldservice.client"),
		metrics:       metrics,
		limiter:       limiter,
		businessUnits: cache.NewTTLCache[string, []domain.BusinessUnit](),
		jobTypes:      cache.NewTTLCache[string, []domain.JobType](),
		technicians:   cache.NewTTLCache[string, []domain.Technician](),
	}
	c.http = newHTTPClient(cfg)
	return c
}

// newHTTPClient wraps the oauth2 transport so every request carries a bearer
// token that is refreshed a minute before it expires.
func newHTTPClient(cfg config.FieldServiceConfig) *resty.Client {
	var client *resty.Client
	if strings.TrimSpace(cfg.ClientID) != "" && strings.TrimSpace(cfg.TokenURL) != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		ctx := context.Background()
		src := oauth2.ReuseTokenSourceWithExpiry(nil, cc.TokenSource(ctx), time.Minute)
		client = resty.NewWithClient(oauth2.NewClient(ctx, src))
	} else {
		client = resty.New()
	}

	client.
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})
	if cfg.AppKey != "" {
		client.SetHeader(headerAppKey, cfg.AppKey)
	}
	return client
}

func (c *Client) configured() bool {
	return strings.TrimSpace(c.cfg.ClientID) != "" &&
		strings.TrimSpace(c.cfg.TenantID) != "" &&
		strings.TrimSpace(c.cfg.BaseURL) != ""
}

func (c *Client) tenantPath(format string, args ...any) string {
	return fmt.Sprintf(format, append([]any{c.cfg.TenantID}, args...)...)
}

type page[T any] struct {
	Data    []T  `json:"data"`
	HasMore bool `json:"hasMore"`
}

// get performs one GET and decodes the body into out.
func (c *Client) get(ctx context.Context, resource, path string, params map[string]string, out any) error {
	if !c.configured() {
		return domain.ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx, "fieldservice:"+c.cfg.TenantID); err != nil {
		return err
	}

	ctx, span := tracing.Tracer("fieldservice").Start(ctx, "fieldservice."+resource)
	defer span.End()

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(out).
		Get(path)

	status := 0
	if resp != nil {
		status = resp.StatusCode()
	}
	c.metrics.RecordUpstreamRequest(ctx, resource, status, time.Since(start))
	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("fieldservice.resource", resource),
		attribute.Int("http.status_code", status),
	)...)

	if err != nil {
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, "transport")
		return fmt.Errorf("%w: %w", &domain.APIError{Resource: resource}, err)
	}
	if status == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.IsError() {
		apiErr := &domain.APIError{Resource: resource, StatusCode: status, Body: truncate(resp.String(), 512)}
		span.RecordError(tracing.SafeError(apiErr))
		span.SetStatus(codes.Error, http.StatusText(status))
		c.log.Warn("fieldservice request rejected",
			zap.String("resource", resource),
			zap.Int("status_code", status),
		)
		return apiErr
	}
	return nil
}

// listAll walks page/pageSize until hasMore is false.
func listAll[T any](ctx context.Context, c *Client, resource, path string, params map[string]string) ([]T, error) {
	var out []T
	for n := 1; n <= maxPages; n++ {
		q := map[string]string{
			"page":     strconv.Itoa(n),
			"pageSize": strconv.Itoa(c.cfg.PageSize),
		}
		for k, v := range params {
			q[k] = v
		}

		var p page[T]
		if err := c.get(ctx, resource, path, q, &p); err != nil {
			return nil, err
		}
		out = append(out, p.Data...)
		if !p.HasMore {
			return out, nil
		}
	}
	c.log.Warn("fieldservice paging stopped at limit", zap.String("resource", resource), zap.Int("pages", maxPages))
	return out, nil
}

// listByIDs splits ids into batches the upstream accepts in one query string.
func listByIDs[T any](ctx context.Context, c *Client, resource, path, param string, ids []int64) ([]T, error) {
	var out []T
	for start := 0; start < len(ids); start += idBatch {
		end := min(start+idBatch, len(ids))
		items, err := listAll[T](ctx, c, resource, path, map[string]string{param: joinIDs(ids[start:end])})
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

func (c *Client) ListBusinessUnits(ctx context.Context) ([]domain.BusinessUnit, error) {
	if v, ok := c.businessUnits.Get(c.cfg.TenantID); ok {
		return v, nil
	}
	units, err := listAll[domain.BusinessUnit](ctx, c, "business_units", c.tenantPath("settings/v2/tenant/%s/business-units"), nil)
	if err != nil {
		return nil, err
	}
	c.businessUnits.Set(c.cfg.TenantID, units, c.cfg.ReferenceTTL)
	return units, nil
}

func (c *Client) ListJobTypes(ctx context.Context) ([]domain.JobType, error) {
	if v, ok := c.jobTypes.Get(c.cfg.TenantID); ok {
		return v, nil
	}
	types, err := listAll[domain.JobType](ctx, c, "job_types", c.tenantPath("jpm/v2/tenant/%s/job-types"), nil)
	if err != nil {
		return nil, err
	}
	c.jobTypes.Set(c.cfg.TenantID, types, c.cfg.ReferenceTTL)
	return types, nil
}

func (c *Client) ListTechnicians(ctx context.Context) ([]domain.Technician, error) {
	if v, ok := c.technicians.Get(c.cfg.TenantID); ok {
		return v, nil
	}
	techs, err := listAll[domain.Technician](ctx, c, "technicians", c.tenantPath("settings/v2/tenant/%s/technicians"), nil)
	if err != nil {
		return nil, err
	}
	c.technicians.Set(c.cfg.TenantID, techs, c.cfg.ReferenceTTL)
	return techs, nil
}

func (c *Client) ListJobs(ctx context.Context, r domain.DateRange) ([]domain.Job, error) {
	return listAll[domain.Job](ctx, c, "jobs", c.tenantPath("jpm/v2/tenant/%s/jobs"), map[string]string{
		"completedOnOrAfter": r.From.Format(dateLayout),
		"completedBefore":    r.To.Format(dateLayout),
	})
}

func (c *Client) ListJobsByID(ctx context.Context, ids []int64) ([]domain.Job, error) {
	return listByIDs[domain.Job](ctx, c, "jobs", c.tenantPath("jpm/v2/tenant/%s/jobs"), "ids", ids)
}

func (c *Client) ListAppointments(ctx context.Context, r domain.DateRange) ([]domain.Appointment, error) {
	return listAll[domain.Appointment](ctx, c, "appointments", c.tenantPath("jpm/v2/tenant/%s/appointments"), map[string]string{
		"startsOnOrAfter": r.From.Format(dateLayout),
		"startsBefore":    r.To.Format(dateLayout),
	})
}

func (c *Client) ListAppointmentAssignments(ctx context.Context, appointmentIDs []int64) ([]domain.AppointmentAssignment, error) {
	return listByIDs[domain.AppointmentAssignment](ctx, c, "appointment_assignments",
		c.tenantPath("dispatch/v2/tenant/%s/appointment-assignments"), "appointmentIds", appointmentIDs)
}

func (c *Client) ListTimesheets(ctx context.Context, r domain.DateRange) ([]domain.TimesheetEntry, error) {
	return listAll[domain.TimesheetEntry](ctx, c, "timesheets", c.tenantPath("payroll/v2/tenant/%s/jobs/timesheets"), map[string]string{
		"startedOnOrAfter": r.From.Format(dateLayout),
		"startedBefore":    r.To.Format(dateLayout),
	})
}

func (c *Client) GetCustomer(ctx context.Context, id int64) (domain.Customer, error) {
	var out domain.Customer
	err := c.get(ctx, "customers", c.tenantPath("crm/v2/tenant/%s/customers/%d", id), nil, &out)
	return out, err
}

func (c *Client) GetLocation(ctx context.Context, id int64) (domain.Location, error) {
	var out domain.Location
	err := c.get(ctx, "locations", c.tenantPath("crm/v2/tenant/%s/locations/%d", id), nil, &out)
	return out, err
}

func (c *Client) GetInvoice(ctx context.Context, id int64) (domain.Invoice, error) {
	var out domain.Invoice
	err := c.get(ctx, "invoices", c.tenantPath("accounting/v2/tenant/%s/invoices/%d", id), nil, &out)
	return out, err
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// IsRetryable reports whether a failed call may succeed on a later attempt.
func IsRetryable(err error) bool {
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == 0 || apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
}
