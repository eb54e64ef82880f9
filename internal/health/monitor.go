package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/helpdesk-assist/backend/internal/metrics"
	"github.com/helpdesk-assist/backend/pkg/logger"
)

const defaultProbeTimeout = 5 * time.Second

// Pinger is one external dependency probe. A nil Pinger means the
// dependency was never configured and always reports unavailable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Status struct {
	RetrievalAvailable   bool `json:"retrieval_available"`
	VectorStoreAvailable bool `json:"vector_store_available"`
	GraphAvailable       bool `json:"graph_available"`
}

type Monitor struct {
	retrieval    Pinger
	vectorStore  Pinger
	graph        Pinger
	probeTimeout time.Duration
}

func NewMonitor(retrieval, vectorStore, graph Pinger) *Monitor {
	return &Monitor{
		retrieval:    retrieval,
		vectorStore:  vectorStore,
		graph:        graph,
		probeTimeout: defaultProbeTimeout,
	}
}

// Check probes the three external services concurrently. Each probe gets
// its own bounded timeout and its own failure path, so one dead service
// never masks the state of the others. Check itself never fails.
func (m *Monitor) Check(ctx context.Context) Status {
	var status Status
	var wg sync.WaitGroup

	probes := []struct {
		name   string
		pinger Pinger
		flag   *bool
	}{
		{"retrieval", m.retrieval, &status.RetrievalAvailable},
		{"vector_store", m.vectorStore, &status.VectorStoreAvailable},
		{"graph", m.graph, &status.GraphAvailable},
	}

	for _, probe := range probes {
		wg.Add(1)
		go func(name string, pinger Pinger, flag *bool) {
			defer wg.Done()

			if pinger == nil {
				return
			}

			probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
			defer cancel()

			if err := pinger.Ping(probeCtx); err != nil {
				logger.Debug("Health probe failed",
					zap.String("service", name),
					zap.Error(err),
				)
				return
			}

			*flag = true
		}(probe.name, probe.pinger, probe.flag)
	}

	wg.Wait()

	metrics.ServiceAvailable.WithLabelValues("retrieval").Set(boolToGauge(status.RetrievalAvailable))
	metrics.ServiceAvailable.WithLabelValues("vector_store").Set(boolToGauge(status.VectorStoreAvailable))
	metrics.ServiceAvailable.WithLabelValues("graph").Set(boolToGauge(status.GraphAvailable))

	return status
}

func boolToGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
