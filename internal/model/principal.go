package model

import "github.com/google/uuid"

// Role identifies which side of the system a principal belongs to.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Principal is the resolved identity behind a request. It is either a
// StudentPrincipal or an AdminPrincipal; the concrete type is decided once
// when the bearer token is verified.
type Principal interface {
	SubjectID() uuid.UUID
	Role() Role
	isPrincipal()
}

// StudentPrincipal carries only the fields a student token is allowed to assert.
type StudentPrincipal struct {
	ID                uuid.UUID
	RollNumber        string
	Department        string
	Semester          int
	DeviceFingerprint string
	TokenID           string
}

func (p StudentPrincipal) SubjectID() uuid.UUID { return p.ID }
func (p StudentPrincipal) Role() Role           { return RoleStudent }
func (StudentPrincipal) isPrincipal()           {}

// AdminPrincipal is the identity of an administrator.
type AdminPrincipal struct {
	ID    uuid.UUID
	Email string
}

func (p AdminPrincipal) SubjectID() uuid.UUID { return p.ID }
func (p AdminPrincipal) Role() Role           { return RoleAdmin }
func (AdminPrincipal) isPrincipal()           {}
