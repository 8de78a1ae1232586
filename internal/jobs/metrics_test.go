package jobs

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()
	if got := len(m.Collectors()); got != 3 {
		t.Errorf("expected 3 collectors, got %d", got)
	}
}

func TestMetrics_Register(t *testing.T) {
	t.Run("successful registration", func(t *testing.T) {
		m := NewMetrics()
		reg := prometheus.NewRegistry()
		if err := m.Register(reg); err != nil {
			t.Fatalf("Register() returned error: %v", err)
		}

		m.IncJobsTotal(JobTypeHistoryRecord, StatusSuccess)
		m.ObserveJobDuration(JobTypeHistoryRecord, 0.02)
		m.IncJobErrors(JobTypeHistoryRecord, "store")

		families, err := reg.Gather()
		if err != nil {
			t.Fatalf("Gather() returned error: %v", err)
		}

		found := map[string]bool{}
		for _, f := range families {
			found[f.GetName()] = true
		}
		for _, name := range []string{MetricBackgroundJobsTotal, MetricBackgroundJobsDuration, MetricBackgroundJobErrorsTotal} {
			if !found[name] {
				t.Errorf("metric %s not found in gathered metrics", name)
			}
		}
	})

	t.Run("duplicate registration fails", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		if err := NewMetrics().Register(reg); err != nil {
			t.Fatalf("first Register() returned error: %v", err)
		}
		if err := NewMetrics().Register(reg); err == nil {
			t.Error("second Register() should have returned an error")
		}
	})
}

func TestMetrics_Values(t *testing.T) {
	m := NewMetrics()

	m.IncJobsTotal(JobTypeHistoryRecord, StatusSuccess)
	m.IncJobsTotal(JobTypeHistoryRecord, StatusSuccess)
	m.IncJobsTotal(JobTypeHistoryRecord, StatusFailure)
	m.IncJobErrors(JobTypeHistoryRecord, "identity")
	m.ObserveJobDuration(JobTypeCatalogSeed, 0.5)

	if got := counterValue(t, m.jobsTotal, JobTypeHistoryRecord, StatusSuccess); got != 2 {
		t.Errorf("expected 2 successes, got %v", got)
	}
	if got := counterValue(t, m.jobsTotal, JobTypeHistoryRecord, StatusFailure); got != 1 {
		t.Errorf("expected 1 failure, got %v", got)
	}
	if got := counterValue(t, m.jobErrors, JobTypeHistoryRecord, "identity"); got != 1 {
		t.Errorf("expected 1 identity error, got %v", got)
	}

	h, err := m.jobsDuration.GetMetricWithLabelValues(JobTypeCatalogSeed)
	if err != nil {
		t.Fatalf("failed to get histogram: %v", err)
	}
	var out dto.Metric
	if err := h.(prometheus.Metric).Write(&out); err != nil {
		t.Fatalf("failed to write histogram: %v", err)
	}
	if out.GetHistogram().GetSampleCount() != 1 {
		t.Errorf("expected 1 sample, got %d", out.GetHistogram().GetSampleCount())
	}
	if out.GetHistogram().GetSampleSum() != 0.5 {
		t.Errorf("expected sum 0.5, got %v", out.GetHistogram().GetSampleSum())
	}
}

func TestMetrics_ConcurrentAccess(t *testing.T) {
	m := NewMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncJobsTotal(JobTypeHistoryRecord, StatusSuccess)
			m.ObserveJobDuration(JobTypeHistoryRecord, 0.01)
		}()
	}
	wg.Wait()

	if got := counterValue(t, m.jobsTotal, JobTypeHistoryRecord, StatusSuccess); got != 50 {
		t.Errorf("expected 50, got %v", got)
	}
}

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	c, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("failed to get counter: %v", err)
	}
	var out dto.Metric
	if err := c.Write(&out); err != nil {
		t.Fatalf("failed to write counter: %v", err)
	}
	return out.GetCounter().GetValue()
}
