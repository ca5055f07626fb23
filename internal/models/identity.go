package models

type Role string

const (
	RoleInvestor Role = "investor"
	RoleFounder  Role = "founder"
)

// Identity is the authenticated caller, supplied with every engine call.
type Identity struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
	Email  string `json:"email,omitempty"`
}

func (i Identity) IsInvestor() bool { return i.Role == RoleInvestor && i.UserID != "" }
func (i Identity) IsFounder() bool  { return i.Role == RoleFounder && i.UserID != "" }
