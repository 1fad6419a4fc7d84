package model

// User is the account record persisted under user:<id> and mirrored under
// the user:phone:<phone> (and user:email:<email>) lookup indexes. The id is
// immutable; optional fields are omitted from JSON when absent.
type User struct {
	ID        string `json:"id"`
	Phone     string `json:"phone,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
	UserType  string `json:"userType"`
	CreatedAt string `json:"createdAt"`
}

// OTPSession is the record behind a login or recovery challenge, stored
// under otp:<sessionId> or recovery:<sessionId> with a five minute TTL.
type OTPSession struct {
	Phone     string `json:"phone"`
	OTPCode   string `json:"otpCode"`
	CreatedAt string `json:"createdAt"`
}

// DeletionSession binds a deletion challenge to the user that requested it,
// stored under deletion:<sessionId> with the same TTL.
type DeletionSession struct {
	UserID    string `json:"userId"`
	OTPCode   string `json:"otpCode"`
	CreatedAt string `json:"createdAt"`
}

// TokenClaims is the value stored under token:<accessToken>.
type TokenClaims struct {
	UserID string `json:"userId"`
}

// OTPChallenge is the response to any code-issuing operation. OTPCode is
// populated only when the code could not be delivered and demo exposure is
// enabled.
type OTPChallenge struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	OTPCode   string `json:"otpCode,omitempty"`
}

// AuthResult is returned after a successful login or recovery verification.
type AuthResult struct {
	AccessToken string `json:"accessToken"`
	UserID      string `json:"userId"`
	User        *User  `json:"user"`
	Message     string `json:"message,omitempty"`
}

// UpdateProfileRequest carries profile mutations; nil fields are untouched.
type UpdateProfileRequest struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Avatar *string `json:"avatar"`
}

const (
	// UserTypeIndividual is the type assigned to users provisioned on
	// first OTP login.
	UserTypeIndividual = "individual"
)
