package app

import (
	"context"
	"fmt"
	"time"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}
	cfg := s.app.currentConfig()

	// Autoload table
	roots, classmap := s.app.Table().Len()
	if roots == 0 && classmap == 0 {
		status.Status = "degraded"
		status.Components["autoload"] = "empty"
	} else {
		status.Components["autoload"] = fmt.Sprintf("ok (%d roots, %d classmap)", roots, classmap)
	}

	// Snapshot store
	if s.app.snapshot != nil {
		status.Components["snapshot"] = "ok"
	} else if cfg.Snapshot.Enabled {
		status.Status = "degraded"
		status.Components["snapshot"] = "missing but enabled in config"
	}

	// Composer
	if cfg.Autoload.UseComposer {
		s.app.buildMu.Lock()
		last := s.app.lastRefresh
		s.app.buildMu.Unlock()
		status.Components["composer"] = fmt.Sprintf("ok (%d packages, %d warnings)", last.Packages, len(last.Warnings))
	}

	return status
}
