package models

import "time"

// Audit actions recorded for user operations.
const (
	AuditActionLogin    = "LOGIN"
	AuditActionLogout   = "LOGOUT"
	AuditActionCreate   = "CREATE"
	AuditActionUpdate   = "UPDATE"
	AuditActionDelete   = "DELETE"
	AuditActionExport   = "EXPORT"
	AuditActionValidate = "VALIDATE"
	AuditActionArchive  = "ARCHIVE"
	AuditActionGenerate = "GENERATE"
)

// Audited resources.
const (
	ResourceSession     = "session"
	ResourceStagiaire   = "stagiaire"
	ResourceEncadrant   = "encadrant"
	ResourceStage       = "stage"
	ResourceRapport     = "rapport"
	ResourceAttestation = "attestation"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	Username   string    `db:"username" json:"username"`
	Role       string    `db:"role" json:"role"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Details    []byte    `db:"details" json:"details,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	RequestID  string    `db:"request_id" json:"request_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AuditFilter narrows audit listings.
type AuditFilter struct {
	Username string
	Resource string
	Since    *time.Time
	Limit    int
}

// AuditActor identifies who performed an audited action and from where.
type AuditActor struct {
	Username  string
	Role      string
	IPAddress string
	UserAgent string
	RequestID string
}
