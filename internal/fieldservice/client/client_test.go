package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smallbiznis/fieldops/internal/config"
	"github.com/smallbiznis/fieldops/internal/fieldservice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/connect/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok",
			"token_type":   "Bearer",
			"expires_in":   900,
		})
	})
	mux.HandleFunc("/", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := config.FieldServiceConfig{
		BaseURL:      srv.URL,
		TokenURL:     srv.URL + "/connect/token",
		ClientID:     "id",
		ClientSecret: "secret",
		TenantID:     "42",
		AppKey:       "app",
		Timeout:      5 * time.Second,
		RetryCount:   0,
		PageSize:     2,
		ReferenceTTL: time.Minute,
	}
	return newClient(cfg, zap.NewNop(), nil, nil), srv
}

func TestListJobsFollowsPages(t *testing.T) {
	var calls int32
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jpm/v2/tenant/42/jobs", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "app", r.Header.Get(headerAppKey))
		assert.Equal(t, "2025-01-01", r.URL.Query().Get("completedOnOrAfter"))
		assert.Equal(t, "2025-01-15", r.URL.Query().Get("completedBefore"))

		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "1":
			_, _ = w.Write([]byte(`{"data":[{"id":1,"jobNumber":"A1"},{"id":2,"jobNumber":"A2"}],"hasMore":true}`))
		default:
			_, _ = w.Write([]byte(`{"data":[{"id":3,"jobNumber":"A3"}],"hasMore":false}`))
		}
	})

	jobs, err := c.ListJobs(context.Background(), domain.DateRange{
		From: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "A3", jobs[2].JobNumber)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestBusinessUnitsAreCached(t *testing.T) {
	var calls int32
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":7,"name":"Plumbing Install","active":true}],"hasMore":false}`))
	})

	for i := 0; i < 3; i++ {
		units, err := c.ListBusinessUnits(context.Background())
		require.NoError(t, err)
		require.Len(t, units, 1)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestGetCustomerErrors(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/crm/v2/tenant/42/customers/1":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"title":"bad"}`))
		}
	})

	_, err := c.GetCustomer(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.GetCustomer(context.Background(), 2)
	var apiErr *domain.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.False(t, IsRetryable(err))
}

func TestListByIDsBatches(t *testing.T) {
	var calls int32
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[],"hasMore":false}`))
	})

	ids := make([]int64, idBatch+1)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	_, err := c.ListAppointmentAssignments(context.Background(), ids)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestUnconfiguredClient(t *testing.T) {
	c := newClient(config.FieldServiceConfig{}, nil, nil, nil)
	_, err := c.ListTechnicians(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&domain.APIError{Resource: "jobs", StatusCode: 503}))
	assert.True(t, IsRetryable(&domain.APIError{Resource: "jobs", StatusCode: 429}))
	assert.True(t, IsRetryable(&domain.APIError{Resource: "jobs"}))
	assert.False(t, IsRetryable(errors.New("boom")))
}
