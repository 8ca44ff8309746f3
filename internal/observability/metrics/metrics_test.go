package metrics

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("route", "/api/jobs/:id/payment"),
		attribute.Int64("job_id", 42),
		attribute.String("outcome", "sent"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "job_id" {
			t.Fatalf("expected job_id to be dropped")
		}
	}
}
