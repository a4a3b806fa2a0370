// Package queue carries identity events over the message broker: a
// publisher used by the request path and an audit consumer that appends
// every event to a log file.
package queue

// Event types.
const (
	UserRegistered = "user.registered"
	UserLoggedIn   = "user.logged_in"
	UserLoggedOut  = "user.logged_out"
	TokenRefreshed = "token.refreshed"
	UserCreated    = "user.created"
	UserUpdated    = "user.updated"
	UserDeleted    = "user.deleted"
	TenantCreated  = "tenant.created"
	TenantUpdated  = "tenant.updated"
	TenantDeleted  = "tenant.deleted"
)

// DefaultQueueName is the durable queue events are routed to.
const DefaultQueueName = "identity.events"

// Event is published after a state change has been committed. It holds
// enough for the audit log without querying the primary database.
type Event struct {
	Type       string `json:"type"`
	SubjectID  uint64 `json:"subject_id"`          // user or tenant the event is about
	ActorID    uint64 `json:"actor_id,omitempty"`  // authenticated caller, zero for self-service flows
	Email      string `json:"email,omitempty"`
	Role       string `json:"role,omitempty"`
	OccurredAt string `json:"occurred_at"` // RFC3339, UTC
}
