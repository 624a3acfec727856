package entity

import (
	"strings"
	"time"
)

// Profile is the directory record for a user. The engine only reads it.
type Profile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsApprover returns true for roles that sit on the approval chain
func (p *Profile) IsApprover() bool {
	switch p.Role {
	case RoleChefia, RoleSubsecretario, RoleDAD:
		return true
	default:
		return false
	}
}

// UnidentifiedName is shown when a profile has neither a name nor an email
const UnidentifiedName = "Servidor Não Identificado"

// DisplayName returns the name, else the local part of the email, else UnidentifiedName.
// Safe on a nil profile.
func (p *Profile) DisplayName() string {
	if p == nil {
		return UnidentifiedName
	}
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	if local, _, _ := strings.Cut(p.Email, "@"); strings.TrimSpace(local) != "" {
		return strings.TrimSpace(local)
	}
	return UnidentifiedName
}
