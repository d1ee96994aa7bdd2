package models

// Roles as issued by the upstream auth API
const (
	RoleOwner    = "Owner"
	RoleEmployee = "Employee"
	RoleGuest    = "Guest"
)

var RoleValues = []string{RoleOwner, RoleEmployee, RoleGuest}

// Token types carried in the "tokenType" claim
const (
	TokenTypeAccess         = "AccessToken"
	TokenTypeRefresh        = "RefreshToken"
	TokenTypeTable          = "TableToken"
	TokenTypeForgotPassword = "ForgotPasswordToken"
)

// ValidRole reports whether role is one issued by the upstream API
func ValidRole(role string) bool {
	for _, r := range RoleValues {
		if r == role {
			return true
		}
	}
	return false
}

// TokenPair as returned by the upstream auth API on login and refresh
type TokenPair struct {
	Access  string `json:"accessToken"`
	Refresh string `json:"refreshToken"`
}

// Credentials is the full credential set held for one browser session.
// Account is the cached profile as raw JSON and may be empty.
// Both tokens are always replaced together, never one without the other.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	Account      string
}

// Complete reports whether both tokens are present
func (c Credentials) Complete() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}
