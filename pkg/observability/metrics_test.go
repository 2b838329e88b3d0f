package observability

import (
	"testing"
	"time"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	t.Run("NewMetrics", func(t *testing.T) {
		if m == nil {
			t.Fatal("NewMetrics returned nil")
		}
		if m.RequestsTotal == nil {
			t.Error("RequestsTotal not initialized")
		}
		if m.RunsStarted == nil {
			t.Error("RunsStarted not initialized")
		}
		if m.CacheHits == nil {
			t.Error("CacheHits not initialized")
		}
	})

	t.Run("RecordRequest", func(t *testing.T) {
		duration := 100 * time.Millisecond
		m.RecordRequest("cluster", "success", duration)
		m.RecordRequest("cluster", "error", 50*time.Millisecond)

		methods := []string{"cluster", "evaluate", "health"}
		statuses := []string{"success", "error", "timeout"}
		for _, method := range methods {
			for _, status := range statuses {
				m.RecordRequest(method, status, duration)
			}
		}
	})

	t.Run("RecordError", func(t *testing.T) {
		m.RecordError("cluster", "invalid_input")
		m.RecordError("cluster", "timeout")
		m.RecordError("evaluate", "insufficient_points")
	})

	t.Run("RunLifecycle", func(t *testing.T) {
		m.RecordRunStart()
		cost, sil := 12.5, 0.72
		m.RecordRunSuccess(2*time.Second, 7, &cost, &sil)

		m.RecordRunStart()
		m.RecordRunFailure("insufficient_points")
	})

	t.Run("RecordIngest", func(t *testing.T) {
		m.RecordIngest(950, 50)
		m.RecordIngest(1000, 0)
	})

	t.Run("RecordSeeding", func(t *testing.T) {
		m.RecordSeeding("random", 10*time.Millisecond)
		m.RecordSeeding("kmeans++", 250*time.Millisecond)
		m.RecordSeeding("canopy", 1500*time.Millisecond)
	})

	t.Run("RecordIteration", func(t *testing.T) {
		for _, frac := range []float64{1.0, 0.5, 0.1, 0.01, 0.0005} {
			m.RecordIteration(frac)
		}
	})

	t.Run("CacheMetrics", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			m.RecordCacheHit()
		}
		for i := 0; i < 50; i++ {
			m.RecordCacheMiss()
		}
		m.SetCacheSize(100)
		m.SetCacheSize(500)
	})
}

func TestConcurrentMetricUpdates(t *testing.T) {
	m := NewMetrics()
	done := make(chan bool, 10)

	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 10; j++ {
				m.RecordCacheHit()
				m.RecordIteration(0.1)
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func BenchmarkRecordRequest(b *testing.B) {
	b.Skip("Skipping benchmark due to global metric registry conflicts")
}

func BenchmarkRecordIteration(b *testing.B) {
	b.Skip("Skipping benchmark due to global metric registry conflicts")
}
