package metrics

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCartMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCartMetrics(reg)
	metrics.ObserveDuration("add_product", 250*time.Millisecond)
	metrics.IncSuccess("add_product")
	metrics.IncFailure("add_product", "out_of_stock")
	metrics.IncFailure("add_product", "")
	metrics.SetItems(3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "cart_operation_success_total", map[string]string{"op": "add_product"}); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "cart_operation_failure_total", map[string]string{"op": "add_product", "kind": "out_of_stock"}); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if _, err := fetchCounterValue(mfs, "cart_operation_failure_total", map[string]string{"kind": "unknown"}); err != nil {
		t.Fatalf("expected empty kind normalized to unknown: %v", err)
	}

	if got, err := fetchHistogramSum(mfs, "cart_operation_duration_seconds", map[string]string{"op": "add_product"}); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	mf := findMetricFamily(mfs, "cart_line_items")
	if mf == nil || mf.GetMetric()[0].GetGauge().GetValue() != 3 {
		t.Fatalf("expected cart_line_items=3")
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	metrics := NewCartMetrics(nil)
	metrics.IncSuccess("x")
	metrics.IncFailure("x", "y")
	metrics.ObserveDuration("x", time.Second)
	metrics.SetItems(1)

	var nilMetrics *CartMetrics
	nilMetrics.IncSuccess("x")

	NewHTTPMetrics(nil).Observe("/x", http.StatusOK, time.Second)
}

func TestHTTPMetricsCountsByRouteAndStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetrics(reg)
	metrics.Observe("/stock/{id}", http.StatusOK, time.Millisecond)
	metrics.Observe("/stock/{id}", http.StatusOK, time.Millisecond)
	metrics.Observe("/stock/{id}", http.StatusNotFound, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "http_requests_total", map[string]string{"route": "/stock/{id}", "status": "200"}); err != nil || got != 2 {
		t.Fatalf("expected 2 ok requests, got %f (%v)", got, err)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	for name, value := range want {
		found := false
		for _, pair := range pairs {
			if pair.GetName() == name && pair.GetValue() == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
