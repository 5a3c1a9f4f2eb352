package handler

import (
	"bytes"
	"encoding/json"

	"github.com/99minutos/users-api/internal/core/domain"
	"github.com/99minutos/users-api/internal/core/ports"
)

// --- Request → Service input ---

func toCreateInput(req createUserRequest) ports.CreateUserInput {
	role, _ := rawText(req.Role)
	return ports.CreateUserInput{
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
		Role:                 role,
	}
}

func toUpdateInput(req updateUserRequest) ports.UpdateUserInput {
	in := ports.UpdateUserInput{
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
		Status:               req.Status,
	}
	if role, ok := rawText(req.Role); ok {
		in.Role = &role
	}
	return in
}

func toSetRoleInput(req setRoleRequest) ports.SetRoleInput {
	role, _ := rawText(req.Role)
	return ports.SetRoleInput{Role: role}
}

// rawText renders a raw JSON scalar as text: strings are unquoted, anything
// else is kept verbatim. Missing and null values report ok=false.
func rawText(raw json.RawMessage) (text string, ok bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s, true
	}
	return string(trimmed), true
}

// --- Service result → HTTP response ---

func toUserResource(u *domain.User) userResource {
	return userResource{
		ID:        u.ID,
		Email:     u.Email,
		Status:    string(u.Status),
		Role:      u.RoleID,
		CreatedAt: u.CreatedAt.UTC(),
		UpdatedAt: u.UpdatedAt.UTC(),
	}
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{Data: toUserResource(u)}
}

func toUserCollectionResponse(users []*domain.User) userCollectionResponse {
	out := make([]userResource, len(users))
	for i, u := range users {
		out[i] = toUserResource(u)
	}
	return userCollectionResponse{Data: out}
}
