package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/splitlab/internal/domain/activity"
	"github.com/rpggio/splitlab/internal/domain/experiment"
	"github.com/rpggio/splitlab/internal/domain/participant"
)

// ExperimentService defines registry operations needed by MCP.
type ExperimentService interface {
	Create(ctx context.Context, tenantID string, req experiment.CreateRequest) (*experiment.Experiment, error)
	Get(ctx context.Context, tenantID, id string) (*experiment.Experiment, error)
	List(ctx context.Context, tenantID string) ([]experiment.Summary, error)
	GetDetail(ctx context.Context, tenantID, id string) (*experiment.Detail, error)
	UpdateStatus(ctx context.Context, tenantID, id string, to experiment.Status) (*experiment.Experiment, error)
}

// AssignmentService assigns participants to variants.
type AssignmentService interface {
	Assign(ctx context.Context, req participant.AssignRequest) (*participant.Assignment, error)
}

// ConversionService records participant conversions.
type ConversionService interface {
	Record(ctx context.Context, req participant.ConversionRequest) (*participant.Assignment, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, tenantID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Experiments ExperimentService
	Assignments AssignmentService
	Conversions ConversionService
	Activity    ActivityService
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Resolver      TenantResolver
	AuthEnabled   bool
	DefaultTenant string
	TransportMode string // "stdio" or "http"
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "splitlab",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	defaultTenant := cfg.DefaultTenant
	if defaultTenant == "" {
		defaultTenant = "default"
	}

	// Stdio is local only and never authenticates.
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	} else {
		server.AddReceivingMiddleware(noAuthMiddleware(defaultTenant))
	}
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, NewHandler(cfg.Services))

	return server
}
