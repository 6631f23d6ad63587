package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents what an operator may do with the replay control surface
type Role string

const (
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

// Actions checked by the control surface.
const (
	ActionControlPlayback = "control_playback"
	ActionViewMetrics     = "view_metrics"
)

// Operator is an account allowed to use the control surface
type Operator struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	IsActive     bool               `bson:"is_active" json:"is_active"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token    string   `json:"token"`
	Operator Operator `json:"operator"`
}

// Claims represents JWT claims
type Claims struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Exp      int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleOperator, RoleViewer:
		return true
	default:
		return false
	}
}

// HasPermission checks if the role allows an action
func (r Role) HasPermission(action string) bool {
	switch r {
	case RoleOperator:
		return action == ActionControlPlayback || action == ActionViewMetrics
	case RoleViewer:
		return action == ActionViewMetrics
	default:
		return false
	}
}
