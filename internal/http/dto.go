package http

import (
	"fmt"
	"time"

	"user-manager/internal/domain"
)

const birthDateLayout = "2006-01-02"

// CreateUserRequest is the input shape shared by registration, login, and
// logout. Which fields matter depends on the endpoint: registration reads
// name+username, login reads name+username, logout reads id.
type CreateUserRequest struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Username     string  `json:"username"`
	CreationDate *string `json:"creationDate"`
	BirthDate    *string `json:"birthDate"`
}

// UpdateUserRequest carries the mutable profile fields.
type UpdateUserRequest struct {
	Username  string  `json:"username"`
	BirthDate *string `json:"birthDate"`
}

// UserResponse is the output representation of a user.
type UserResponse struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Username     string  `json:"username"`
	Status       string  `json:"status"`
	CreationDate string  `json:"creationDate"`
	BirthDate    *string `json:"birthDate"`
}

// userFromCreateRequest maps the create-input DTO onto a new entity. Fields
// absent from the DTO (token) stay at their zero value. The only way this can
// fail is an unparseable date string, which the handlers surface as a bad
// request.
func userFromCreateRequest(req CreateUserRequest) (domain.User, error) {
	user := domain.User{
		ID:       req.ID,
		Name:     req.Name,
		Username: req.Username,
	}
	if req.CreationDate != nil {
		t, err := time.Parse(time.RFC3339, *req.CreationDate)
		if err != nil {
			return domain.User{}, fmt.Errorf("invalid creationDate: %w", err)
		}
		user.CreationDate = t
	}
	if req.BirthDate != nil {
		t, err := parseBirthDate(*req.BirthDate)
		if err != nil {
			return domain.User{}, err
		}
		user.BirthDate = t
	}
	return user, nil
}

// userFromUpdateRequest maps the update-input DTO onto a bare entity carrying
// only the mutable fields.
func userFromUpdateRequest(req UpdateUserRequest) (domain.User, error) {
	user := domain.User{
		Username: req.Username,
	}
	if req.BirthDate != nil {
		t, err := parseBirthDate(*req.BirthDate)
		if err != nil {
			return domain.User{}, err
		}
		user.BirthDate = t
	}
	return user, nil
}

func userToResponse(user domain.User) UserResponse {
	resp := UserResponse{
		ID:           user.ID,
		Name:         user.Name,
		Username:     user.Username,
		Status:       string(user.Status),
		CreationDate: user.CreationDate.Format(time.RFC3339),
	}
	if user.BirthDate != nil {
		v := user.BirthDate.Format(birthDateLayout)
		resp.BirthDate = &v
	}
	return resp
}

func parseBirthDate(value string) (*time.Time, error) {
	t, err := time.Parse(birthDateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("invalid birthDate: %w", err)
	}
	return &t, nil
}
