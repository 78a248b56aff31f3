package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/veritrail/veritrail/internal/domain"
	"github.com/veritrail/veritrail/pkg/lifecycle"
)

// Start launches the periodic scheduler. Idempotent: a running scheduler is
// left alone. Implements lifecycle.ManagedResource.
func (m *Manager) Start(_ context.Context) error {
	m.schedMu.Lock()
	defer m.schedMu.Unlock()
	if m.stopCh != nil {
		return nil
	}
	m.stopCh = make(chan struct{})
	m.stoppedCh = make(chan struct{})
	go m.loop(m.stopCh, m.stoppedCh)
	return nil
}

// Stop shuts the scheduler down and waits for the loop to exit. Idempotent.
func (m *Manager) Stop(_ context.Context) error {
	m.schedMu.Lock()
	defer m.schedMu.Unlock()
	if m.stopCh == nil {
		return nil
	}
	close(m.stopCh)
	<-m.stoppedCh
	m.stopCh = nil
	m.stoppedCh = nil
	return nil
}

// Health reports whether the scheduler loop is running.
func (m *Manager) Health(_ context.Context) lifecycle.HealthStatus {
	m.schedMu.Lock()
	defer m.schedMu.Unlock()
	if m.stopCh == nil {
		return lifecycle.HealthStatus{Ready: false, Message: "scheduler stopped"}
	}
	return lifecycle.HealthStatus{Ready: true}
}

func (m *Manager) loop(stopCh <-chan struct{}, stoppedCh chan<- struct{}) {
	defer close(stoppedCh)
	ticker := m.clock.NewTicker(m.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C():
			m.RunDuePolicies(context.Background())
		}
	}
}

// RunDuePolicies executes every enabled policy that is due, sequentially in
// priority order. Errors are logged and swallowed here so one failed run
// never halts the scheduler.
func (m *Manager) RunDuePolicies(ctx context.Context) {
	now := m.clock.Now().UTC()
	for _, p := range m.ListPolicies() {
		if !p.Enabled || !isDue(p, now) {
			continue
		}
		if _, err := m.ExecuteRetentionPolicy(ctx, p.ID); err != nil {
			m.logger.ErrorContext(ctx, "scheduled retention run failed",
				slog.String("policy_id", p.ID),
				slog.String("policy_name", p.Name),
				slog.String("error", err.Error()))
		}
	}
}

// isDue applies calendar-aware rules: "monthly" fires once per distinct
// month, not simply every 30 days.
func isDue(p *domain.RetentionPolicy, now time.Time) bool {
	if p.LastExecuted == nil {
		return true
	}
	last := p.LastExecuted.UTC()
	switch p.Schedule.Frequency {
	case domain.FrequencyContinuous:
		return true
	case domain.FrequencyDaily:
		return now.YearDay() != last.YearDay() || now.Year() != last.Year()
	case domain.FrequencyWeekly:
		ny, nw := now.ISOWeek()
		ly, lw := last.ISOWeek()
		return nw != lw || ny != ly
	case domain.FrequencyMonthly:
		return now.Month() != last.Month() || now.Year() != last.Year()
	case domain.FrequencyQuarterly:
		return quarterOf(now) != quarterOf(last) || now.Year() != last.Year()
	case domain.FrequencyYearly:
		return now.Year() != last.Year()
	default:
		return false
	}
}

func quarterOf(t time.Time) int {
	return (int(t.Month()) - 1) / 3
}
