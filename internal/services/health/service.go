package health

import (
	"context"
	"time"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Status is the health payload.
type Status struct {
	Status        string            `json:"status"`
	Timestamp     time.Time         `json:"timestamp"`
	UptimeSeconds float64           `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
}

// Service encapsulates health-related checks.
type Service struct {
	started time.Time
	deps    map[string]Pinger
	now     func() time.Time
}

// NewService constructs a new health service. Nil dependencies are skipped.
func NewService(deps map[string]Pinger) *Service {
	kept := make(map[string]Pinger, len(deps))
	for name, d := range deps {
		if d != nil {
			kept[name] = d
		}
	}
	return &Service{started: time.Now(), deps: kept, now: time.Now}
}

// Check pings every dependency; the service is "degraded" when any fails.
func (s *Service) Check(ctx context.Context) Status {
	now := s.now()
	st := Status{
		Status:        "healthy",
		Timestamp:     now.UTC(),
		UptimeSeconds: now.Sub(s.started).Seconds(),
		Checks:        make(map[string]string, len(s.deps)),
	}
	for name, d := range s.deps {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := d.PingContext(pingCtx)
		cancel()
		if err != nil {
			st.Checks[name] = "error: " + err.Error()
			st.Status = "degraded"
			continue
		}
		st.Checks[name] = "ok"
	}
	return st
}
