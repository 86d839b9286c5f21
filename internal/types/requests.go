package types

import (
	"github.com/go-playground/validator/v10"
)

// CreateSessionRequest carries the base portrait for a new session.
// Image is a data URL or a bare base64 payload.
type CreateSessionRequest struct {
	Image string `json:"image" validate:"required"`
}

// UpdateInputRequest replaces the user-entered profession and context text.
type UpdateInputRequest struct {
	Professions string `json:"professions" validate:"max=2000"`
	Context     string `json:"context" validate:"max=4000"`
}

// AddProfessionRequest adds one profession to the accumulating input text.
type AddProfessionRequest struct {
	Profession string `json:"profession" validate:"required,max=200"`
}

// Validate validates the CreateSessionRequest using the validator.
func (r *CreateSessionRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the UpdateInputRequest using the validator.
func (r *UpdateInputRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the AddProfessionRequest using the validator.
func (r *AddProfessionRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
