// Package service holds the page-level use cases: listing and filtering
// records, submitting the record forms through the backend, exports,
// dashboard aggregation and the audit trail.
package service

import (
	"context"
	"strconv"

	"github.com/noah-isme/stages-admin/internal/backend"
	"github.com/noah-isme/stages-admin/internal/form"
	"github.com/noah-isme/stages-admin/internal/models"
)

// Caller is the user on whose behalf a service call runs.
type Caller struct {
	Credentials backend.Credentials
	Actor       models.AuditActor
}

// Gateway is the user-bound backend surface the record forms submit through.
type Gateway interface {
	form.StageGateway
	form.StagiaireGateway
	form.EncadrantGateway
	form.RapportGateway
	form.AttestationGateway
	form.MatriculeGateway
}

// GatewayFactory binds the backend to one user's credentials.
type GatewayFactory func(creds backend.Credentials) Gateway

// ClientGateways adapts a backend client to a GatewayFactory.
func ClientGateways(client *backend.Client) GatewayFactory {
	return func(creds backend.Credentials) Gateway { return client.As(creds) }
}

// dashboardCachePattern matches every cached dashboard aggregate.
const dashboardCachePattern = "dashboard:*"

// recordChange audits a successful write and drops cached aggregates that
// may now be stale.
func recordChange(ctx context.Context, audit *AuditService, cache *CacheService, caller Caller, action, resource string, id int64, details map[string]interface{}) {
	resourceID := ""
	if id != 0 {
		resourceID = strconv.FormatInt(id, 10)
	}
	audit.Record(caller.Actor, action, resource, resourceID, details)
	_ = cache.Invalidate(ctx, dashboardCachePattern)
}
