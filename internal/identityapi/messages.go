package identityapi

// MetadataAuthorization carries "Bearer <session token>" on authenticated calls.
const MetadataAuthorization = "authorization"

type Empty struct{}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type RegisterResponse struct {
	IdentityID string `json:"identity_id"`
	Status     string `json:"status"`
}

type VerifyRequest struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

type ResendVerificationRequest struct {
	Username string `json:"username"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	SessionToken string `json:"session_token"`
}

type MeResponse struct {
	IdentityID string `json:"identity_id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Status     string `json:"status"`
}

type RequestPasswordResetRequest struct {
	Username string `json:"username"`
}

type CheckPasswordResetRequest struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

type ResetPasswordRequest struct {
	Username    string `json:"username"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}
