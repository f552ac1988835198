package testserver

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rpggio/splitlab/internal/domain/activity"
	"github.com/rpggio/splitlab/internal/domain/experiment"
	"github.com/rpggio/splitlab/internal/domain/participant"
	"github.com/rpggio/splitlab/internal/sqlite"
	"github.com/rpggio/splitlab/internal/transport"
	"github.com/stretchr/testify/require"
)

// TestServer runs the REST API over a private in-memory database.
type TestServer struct {
	Server   *httptest.Server
	DB       *sqlite.DB
	Token    string
	TenantID string

	Experiments *experiment.Service
	Tracker     *participant.Tracker
	Recorder    *participant.Recorder
	Activity    *activity.Service

	keys *sqlite.APIKeyResolver
}

// Options tweaks the services behind the server.
type Options struct {
	Policy participant.Policy
}

func New(t *testing.T, token, tenantID string) *TestServer {
	t.Helper()
	return NewWithOptions(t, token, tenantID, Options{})
}

func NewWithOptions(t *testing.T, token, tenantID string, opts Options) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	experimentRepo := sqlite.NewExperimentRepository(db)
	participantRepo := sqlite.NewParticipantRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)

	policy := opts.Policy
	if policy == "" {
		policy = participant.PolicyOverwrite
	}

	ts := &TestServer{
		DB:          db,
		Token:       token,
		TenantID:    tenantID,
		Experiments: experiment.NewService(experimentRepo, participantRepo, activityRepo, nil, nil),
		Tracker:     participant.NewTracker(participantRepo, policy, nil, nil),
		Recorder:    participant.NewRecorder(participantRepo, nil, nil),
		Activity:    activity.NewService(activityRepo, nil),
		keys:        sqlite.NewAPIKeyResolver(db),
	}

	router := transport.NewServer(transport.Services{
		Experiments: ts.Experiments,
		Assignments: ts.Tracker,
		Conversions: ts.Recorder,
		Activity:    ts.Activity,
	}, transport.Options{Auth: transport.AuthMiddleware(ts.keys)})
	ts.Server = httptest.NewServer(router)

	require.NoError(t, ts.AddAPIKey(token, tenantID))

	t.Cleanup(func() {
		ts.Server.Close()
		_ = db.Close()
	})

	return ts
}

// AddAPIKey registers an additional bearer token.
func (ts *TestServer) AddAPIKey(token, tenantID string) error {
	return ts.keys.CreateKey(context.Background(), tenantID, token, "test")
}
