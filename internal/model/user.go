package model

import "time"

// Role names. Comparison is case-sensitive everywhere.
const (
    RoleAdmin    = "ADMIN"
    RoleManager  = "MANAGER"
    RoleCustomer = "CUSTOMER"
)

// Roles lists every assignable role.
var Roles = []string{RoleAdmin, RoleManager, RoleCustomer}

// User represents an application user record as stored in the `users`
// table.  The password hash is never serialized; handlers can return a
// User directly.
//
// Fields:
//  ID           – primary key identifier of the user.
//  FirstName    – given name.
//  LastName     – family name.
//  Email        – unique email address, compared byte-for-byte.
//  PasswordHash – bcrypt hash; only loaded by the credential lookup.
//  Role         – ADMIN, MANAGER or CUSTOMER.
//  TenantID     – owning tenant, nil for users not scoped to one.
//  Tenant       – the tenant row when loaded alongside the user.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    `json:"id"`                 // users.id
    FirstName    string    `json:"firstName"`          // users.first_name
    LastName     string    `json:"lastName"`           // users.last_name
    Email        string    `json:"email"`              // users.email
    PasswordHash string    `json:"-"`                  // users.password_hash
    Role         string    `json:"role"`               // users.role
    TenantID     *uint64   `json:"tenantId,omitempty"` // users.tenant_id (nullable)
    Tenant       *Tenant   `json:"tenant,omitempty"`
    CreatedAt    time.Time `json:"createdAt"` // users.created_at
    UpdatedAt    time.Time `json:"updatedAt"` // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  The row id
// travels inside the signed refresh token as its `id` claim; deleting the
// row revokes the token.  Rows are never updated.
//
// Fields:
//  ID        – primary key identifier, the token's `id` claim.
//  UserID    – owner of the token.
//  ExpiresAt – expiration timestamp of the token.
//  CreatedAt – timestamp of issuance.
type RefreshToken struct {
    ID        uint64    // refresh_tokens.id
    UserID    uint64    // refresh_tokens.user_id
    ExpiresAt time.Time // refresh_tokens.expires_at
    CreatedAt time.Time // refresh_tokens.created_at
}
