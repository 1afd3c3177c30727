package httpx

import (
	"context"
	"net/http"
	"time"
)

const probeTimeout = 2 * time.Second

// HealthProbe checks one backing dependency.
type HealthProbe struct {
	Name  string
	Check func(ctx context.Context) error
}

type healthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthHandler reports "ok" when every probe passes and 503 otherwise.
type HealthHandler struct {
	Probes []HealthProbe
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report := healthReport{Status: "ok"}
	code := http.StatusOK
	if len(h.Probes) > 0 {
		report.Checks = make(map[string]string, len(h.Probes))
	}
	for _, p := range h.Probes {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		err := p.Check(ctx)
		cancel()
		if err != nil {
			report.Checks[p.Name] = err.Error()
			report.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		report.Checks[p.Name] = "ok"
	}

	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		return
	}
	WriteJSON(w, code, report)
}
