package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Auth ---

// registerRequest has no role field: self-registered accounts are always
// plain users, whatever the body says.
type registerRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

// --- Users ---

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// updateUserRequest is a partial update; omitted fields stay unchanged.
// Payload checks happen in the service, after authorization.
type updateUserRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

type listUsersResponse struct {
	Items  []userResponse `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// --- Advertisements ---

type createAdvertisementRequest struct {
	Title       string  `json:"title"       validate:"required,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	Price       float64 `json:"price"       validate:"gt=0"`
	Contacts    string  `json:"contacts"    validate:"max=500"`
}

// updateAdvertisementRequest is a partial update; omitted fields stay
// unchanged. Payload checks happen in the service, after authorization.
type updateAdvertisementRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Contacts    *string  `json:"contacts"`
}

type advertisementResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Contacts    string    `json:"contacts"`
	Author      string    `json:"author"`
	CreatedAt   time.Time `json:"created_at"`
}

type searchAdvertisementsResponse struct {
	Items  []advertisementResponse `json:"items"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
}
