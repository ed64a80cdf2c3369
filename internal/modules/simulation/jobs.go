package simulation

import (
	"context"
	"fmt"

	"github.com/aristath/stresscore/internal/domain"
	"github.com/aristath/stresscore/internal/queue"
)

// RegisterJobs binds the simulation job types to m.
func (s *Service) RegisterJobs(m *queue.Manager) {
	m.Register(queue.JobTypeCreditSimulation, queue.HandlerFunc(s.handleCreditJob))
	m.Register(queue.JobTypeForexSimulation, queue.HandlerFunc(s.handleForexJob))
	m.Register(queue.JobTypeSeveritySweep, queue.HandlerFunc(s.handleSweepJob))
}

func (s *Service) handleCreditJob(ctx context.Context, payload interface{}, progress *queue.ProgressReporter) (interface{}, error) {
	req, ok := payload.(CreditRequest)
	if !ok {
		return nil, payloadError(payload, "CreditRequest")
	}
	return s.Credit(ctx, req, progress.Func("Evaluating credit book draws"))
}

func (s *Service) handleForexJob(ctx context.Context, payload interface{}, progress *queue.ProgressReporter) (interface{}, error) {
	req, ok := payload.(ForexRequest)
	if !ok {
		return nil, payloadError(payload, "ForexRequest")
	}
	return s.Forex(ctx, req, progress.Func("Evaluating FX book draws"))
}

func (s *Service) handleSweepJob(ctx context.Context, payload interface{}, progress *queue.ProgressReporter) (interface{}, error) {
	req, ok := payload.(SweepRequest)
	if !ok {
		return nil, payloadError(payload, "SweepRequest")
	}
	return s.Sweep(ctx, req, func(done, total int) {
		progress.ReportPhase(done, total, fmt.Sprintf("%d of %d scenario runs finished", done, total), "severity_sweep")
	})
}

func payloadError(payload interface{}, want string) error {
	return domain.Invalid("payload", "expected %s, got %T", want, payload)
}
