// Package generation adapts the remote generative model to the typed persona contract:
// input refinement, persona details, and portrait editing.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/jonathan/persona-shift/internal/llm"
	"github.com/jonathan/persona-shift/internal/prompts"
	"github.com/jonathan/persona-shift/internal/schemas"
	"github.com/jonathan/persona-shift/internal/types"
	schemafiles "github.com/jonathan/persona-shift/schemas"
)

const promptFile = "persona.json"

// Operation names used in errors, logs and metrics
const (
	OpRefine          = "refine"
	OpGenerateDetails = "generate_details"
	OpGenerateImage   = "generate_image"
)

// Client is the contract the pipeline relies on. Implementations hold no
// per-session state; every call is independent.
type Client interface {
	// Refine normalizes the raw profession list and context
	Refine(ctx context.Context, professions, styleContext string) (*types.RefinedInput, error)
	// GenerateDetails produces title, bio, skills and personality for one profession
	GenerateDetails(ctx context.Context, field, styleContext string) (*types.PersonaDetails, error)
	// GenerateImage edits the base portrait for one profession and returns a data URL
	GenerateImage(ctx context.Context, base Image, field, styleContext string) (string, error)
}

var refinementSchema = &llm.Schema{
	Type: llm.TypeObject,
	Properties: map[string]*llm.Schema{
		"refinedProfessions": {
			Type:        llm.TypeArray,
			Items:       &llm.Schema{Type: llm.TypeString},
			Description: "A list of exactly " + strconv.Itoa(types.TargetPersonaCount) + " professional fields.",
		},
		"refinedContext": {Type: llm.TypeString},
	},
	Required: []string{"refinedProfessions", "refinedContext"},
}

var detailsSchema = &llm.Schema{
	Type: llm.TypeObject,
	Properties: map[string]*llm.Schema{
		"title":       {Type: llm.TypeString},
		"bio":         {Type: llm.TypeString},
		"skills":      {Type: llm.TypeArray, Items: &llm.Schema{Type: llm.TypeString}},
		"personality": {Type: llm.TypeString},
	},
	Required: []string{"title", "bio", "skills", "personality"},
}

// GeminiClient implements Client over an llm.Client
type GeminiClient struct {
	llm llm.Client
}

// NewGeminiClient wraps an LLM client. The caller keeps ownership of llmClient.
func NewGeminiClient(llmClient llm.Client) *GeminiClient {
	return &GeminiClient{llm: llmClient}
}

// Refine corrects spelling, translates, and expands the profession list.
// It does not enforce the profession count; that is the caller's contract check.
func (c *GeminiClient) Refine(ctx context.Context, professions, styleContext string) (*types.RefinedInput, error) {
	prompt, err := prompts.Render(promptFile, "refine-input", map[string]string{
		"Professions": professions,
		"Context":     styleContext,
		"Target":      strconv.Itoa(types.TargetPersonaCount),
	})
	if err != nil {
		return nil, err
	}

	text, err := c.llm.GenerateJSON(ctx, prompt, llm.TierStandard, refinementSchema)
	if err != nil {
		return nil, &ServiceError{Op: OpRefine, Message: "failed to refine input", Cause: err}
	}

	var refined types.RefinedInput
	if err := decodeStructured(OpRefine, schemafiles.Refinement, text, &refined); err != nil {
		return nil, err
	}
	return &refined, nil
}

// GenerateDetails produces the text portion of a persona.
func (c *GeminiClient) GenerateDetails(ctx context.Context, field, styleContext string) (*types.PersonaDetails, error) {
	prompt, err := prompts.Render(promptFile, "persona-details", map[string]string{
		"Field":      field,
		"Context":    styleContext,
		"SkillCount": strconv.Itoa(types.ExpectedSkillCount),
	})
	if err != nil {
		return nil, err
	}

	text, err := c.llm.GenerateJSON(ctx, prompt, llm.TierStandard, detailsSchema)
	if err != nil {
		return nil, &ServiceError{Op: OpGenerateDetails, Message: "failed to generate details for " + field, Cause: err}
	}

	var details types.PersonaDetails
	if err := decodeStructured(OpGenerateDetails, schemafiles.PersonaDetails, text, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// GenerateImage edits the base portrait into a professional photograph for field.
func (c *GeminiClient) GenerateImage(ctx context.Context, base Image, field, styleContext string) (string, error) {
	prompt, err := prompts.Render(promptFile, "persona-image", map[string]string{
		"Field":   field,
		"Context": styleContext,
	})
	if err != nil {
		return "", err
	}

	out, err := c.llm.GenerateImage(ctx, prompt, llm.InlineData{MIMEType: base.MIMEType, Data: base.Data}, llm.TierImage)
	if err != nil {
		if errors.Is(err, llm.ErrNoInlineData) {
			return "", &EmptyResultError{Field: field}
		}
		return "", &ServiceError{Op: OpGenerateImage, Message: "failed to generate image for " + field, Cause: err}
	}
	if out == nil || len(out.Data) == 0 {
		return "", &EmptyResultError{Field: field}
	}

	return Image{MIMEType: out.MIMEType, Data: out.Data}.DataURL(), nil
}

// decodeStructured validates text against an embedded schema and decodes it into v
func decodeStructured(op, schemaName, text string, v any) error {
	text = llm.CleanJSONBlock(text)
	if err := schemas.ValidateEmbedded(schemaName, text); err != nil {
		return &SchemaError{Op: op, Message: "response does not match " + schemaName, Cause: err}
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return &SchemaError{Op: op, Message: "failed to decode response", Cause: err}
	}
	return nil
}
