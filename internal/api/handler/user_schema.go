package handler

import (
	"encoding/json"
	"time"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// validationErrorResponse is returned with 422 and lists messages per field.
type validationErrorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields"`
}

// --- Request types ---

// role is accepted as a JSON number or a numeric string, so it is kept raw
// until the service validates it.

type createUserRequest struct {
	Email                string          `json:"email"`
	Password             string          `json:"password"`
	PasswordConfirmation string          `json:"password_confirmation"`
	Role                 json.RawMessage `json:"role" swaggertype:"integer"`
}

type updateUserRequest struct {
	Email                *string         `json:"email,omitempty"`
	Password             *string         `json:"password,omitempty"`
	PasswordConfirmation *string         `json:"password_confirmation,omitempty"`
	Status               *string         `json:"status,omitempty" enums:"pending,approved,blocked"`
	Role                 json.RawMessage `json:"role,omitempty" swaggertype:"integer"`
}

type setRoleRequest struct {
	Role json.RawMessage `json:"role" swaggertype:"integer"`
}

// --- Response types ---

// userResource is the public representation of a user. The password hash is
// never part of it.
type userResource struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Status    string    `json:"status" enums:"pending,approved,blocked"`
	Role      int64     `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type userResponse struct {
	Data userResource `json:"data"`
}

type userCollectionResponse struct {
	Data []userResource `json:"data"`
}

type messageResponse struct {
	Message string `json:"message"`
}
