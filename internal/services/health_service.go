package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"marketlens/internal/infrastructure"
	"marketlens/pkg/contracts"
)

// SessionChecker reports whether a session is loaded and how many rows it has.
type SessionChecker interface {
	HasSession() (bool, int)
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	session   SessionChecker
	runtime   *infrastructure.RuntimeCollector
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                       `json:"status"`
	Timestamp time.Time                    `json:"timestamp"`
	Version   string                       `json:"version"`
	Runtime   *infrastructure.RuntimeStats `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth     `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a new health service. runtimeCollector may be
// nil, in which case responses carry no runtime statistics.
func NewHealthService(version, buildTime string, session SessionChecker, runtimeCollector *infrastructure.RuntimeCollector, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime))

	return &HealthService{
		version:   version,
		buildTime: buildTime,
		session:   session,
		runtime:   runtimeCollector,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status. The service is healthy with
// or without a session; the session entry tells clients whether analyses
// can run.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"analysis": {Status: "ready", Uptime: time.Since(hs.startTime).Round(time.Second).String()},
			"session":  hs.checkSession(),
		},
	}
	if hs.runtime != nil {
		stats := hs.runtime.Snapshot(ctx)
		status.Runtime = &stats
	}

	hs.logger.DebugContext(ctx, "health check completed",
		slog.String("status", status.Status),
		slog.String("session", status.Services["session"].Status))
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

func (hs *HealthService) checkSession() ServiceHealth {
	if hs.session == nil {
		return ServiceHealth{Status: "empty", Message: "no listings file loaded"}
	}
	loaded, rows := hs.session.HasSession()
	if !loaded {
		return ServiceHealth{Status: "empty", Message: "no listings file loaded"}
	}
	return ServiceHealth{Status: "loaded", Message: fmt.Sprintf("%d rows", rows)}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.version,
		"git_commit":   contracts.GitCommit,
		"api_version":  contracts.APIVersion,
		"data_format":  contracts.DataFormatVersion,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	return result
}
