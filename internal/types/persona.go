// Package types provides type definitions for structured data used throughout the persona generator.
package types

import (
	"github.com/go-playground/validator/v10"
)

// TargetPersonaCount is the number of professions a refinement must produce.
const TargetPersonaCount = 10

// ExpectedSkillCount is the number of skills requested per persona. It is not enforced.
const ExpectedSkillCount = 3

// Persona is one generated professional identity.
// A Persona is only exposed once every field is populated.
type Persona struct {
	ID          string   `json:"id" validate:"required"`
	JobField    string   `json:"jobField" validate:"required"`
	Title       string   `json:"title" validate:"required"`
	Bio         string   `json:"bio" validate:"required"`
	Skills      []string `json:"skills" validate:"required,min=1,dive,required"`
	Personality string   `json:"personality" validate:"required"`
	ImageURL    string   `json:"imageUrl" validate:"required"`
}

// PersonaDetails is the structured text produced for a single profession.
type PersonaDetails struct {
	Title       string   `json:"title"`
	Bio         string   `json:"bio"`
	Skills      []string `json:"skills"`
	Personality string   `json:"personality"`
}

// RefinedInput is the normalized profession list and context returned by refinement.
type RefinedInput struct {
	Professions []string `json:"refinedProfessions"`
	Context     string   `json:"refinedContext"`
}

// NewPersona assembles a Persona from generated details.
func NewPersona(id, jobField string, details PersonaDetails, imageURL string) Persona {
	skills := make([]string, len(details.Skills))
	copy(skills, details.Skills)
	return Persona{
		ID:          id,
		JobField:    jobField,
		Title:       details.Title,
		Bio:         details.Bio,
		Skills:      skills,
		Personality: details.Personality,
		ImageURL:    imageURL,
	}
}

// Validate reports whether every field of the persona is populated.
func (p *Persona) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}
