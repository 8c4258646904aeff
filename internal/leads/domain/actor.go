package domain

import "github.com/google/uuid"

// Role is one of the two roles the tracker knows about.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleRepresentative Role = "representative"
)

// SystemActorName attributes history entries written by background jobs.
const SystemActorName = "系统"

// Actor is the caller of a core operation.
type Actor struct {
	UserID uuid.UUID
	Name   string
	Role   Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// CanModify reports whether the actor may change lead. Admins may change
// any lead; representatives only the leads they currently own.
func (a Actor) CanModify(lead Lead) bool {
	return a.IsAdmin() || (a.UserID != uuid.Nil && lead.OwnerID == a.UserID)
}

// ActorFromRoles picks the effective role from a token's role list.
func ActorFromRoles(userID uuid.UUID, name string, roles []string) Actor {
	actor := Actor{UserID: userID, Name: name, Role: RoleRepresentative}
	for _, r := range roles {
		if Role(r) == RoleAdmin {
			actor.Role = RoleAdmin
			break
		}
	}
	return actor
}
