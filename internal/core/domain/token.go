package domain

// TokenPair is returned by login, register and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expires_in"`
}

// ValidationResult is the answer of the token trust oracle. Login and Role
// are empty whenever Valid is false.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Login string `json:"username,omitempty"`
	Role  string `json:"role,omitempty"`
}

// RoleClaim is the JWT claim carrying the role at issuance time.
const RoleClaim = "role"
