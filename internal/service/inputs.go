package service

import (
	"strings"

	"github.com/devmadlani/auth-service/internal/model"
	"github.com/devmadlani/auth-service/internal/password"
	"github.com/devmadlani/auth-service/internal/validate"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// Column widths of the users and tenants tables.
const (
	maxNameLen    = 100
	maxEmailLen   = 255
	maxAddressLen = 255
)

// RegisterInput is the self-registration body. There is no role: every
// self-registered account is a customer.
type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (in *RegisterInput) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
}

func (in RegisterInput) validate() error {
	v := validate.New()
	checkProfile(v, in.FirstName, in.LastName, in.Email)
	checkPassword(v, in.Password)
	return v.Err()
}

// LoginInput is the credential exchange body.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in *LoginInput) normalize() { in.Email = strings.TrimSpace(in.Email) }

func (in LoginInput) validate() error {
	return validate.New().
		Required("email", in.Email, "Email is required").
		Email("email", in.Email, "Please enter valid email").
		Required("password", in.Password, "Password is required").
		Err()
}

// TenantInput creates or replaces a tenant.
type TenantInput struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (in *TenantInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
}

func (in TenantInput) validate() error {
	return validate.New().
		Required("name", in.Name, "Name is required").
		MaxLen("name", in.Name, maxNameLen, "Name is too long").
		Required("address", in.Address, "Address is required").
		MaxLen("address", in.Address, maxAddressLen, "Address is too long").
		Err()
}

// CreateUserInput is the admin-side account creation body.
type CreateUserInput struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	Role      string  `json:"role"`
	TenantID  *uint64 `json:"tenantId"`
}

func (in *CreateUserInput) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Role = strings.TrimSpace(in.Role)
}

func (in CreateUserInput) validate() error {
	v := validate.New()
	checkProfile(v, in.FirstName, in.LastName, in.Email)
	checkPassword(v, in.Password)
	checkRole(v, in.Role)
	return v.Err()
}

// UpdateUserInput replaces the profile of an existing user. A nil TenantID
// detaches the user from its tenant.
type UpdateUserInput struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	TenantID  *uint64 `json:"tenantId"`
}

func (in *UpdateUserInput) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Role = strings.TrimSpace(in.Role)
}

func (in UpdateUserInput) validate() error {
	v := validate.New()
	checkProfile(v, in.FirstName, in.LastName, in.Email)
	checkRole(v, in.Role)
	return v.Err()
}

func checkProfile(v *validate.Validator, first, last, email string) {
	v.Required("firstName", first, "First name is required").
		MaxLen("firstName", first, maxNameLen, "First name is too long").
		Required("lastName", last, "Last name is required").
		MaxLen("lastName", last, maxNameLen, "Last name is too long").
		Required("email", email, "Email is required").
		Email("email", email, "Please enter valid email").
		MaxLen("email", email, maxEmailLen, "Email is too long")
}

func checkPassword(v *validate.Validator, pw string) {
	v.Required("password", pw, "Password is required").
		MinLen("password", pw, MinPasswordLength, "Password length should be at least 8 chars!").
		MaxLen("password", pw, password.MaxLength, "Password is too long")
}

func checkRole(v *validate.Validator, role string) {
	v.Required("role", role, "Role is required").
		OneOf("role", role, model.Roles, "Role must be one of ADMIN, MANAGER, CUSTOMER")
}
