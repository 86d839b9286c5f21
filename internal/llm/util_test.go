package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const fence = "```"

const (
	refinementJSON = `{"refinedProfessions": ["Pilot", "Ethical Hacker", "Deep Sea Explorer"], "refinedContext": "film noir lighting"}`
	detailsJSON    = `{"title": "Night Shift Pilot", "bio": "Flies cargo over the Andes. Never misses a sunrise.", "skills": ["Navigation", "Radio", "Calm"], "personality": "Steady"}`
)

func TestCleanJSONBlock_Fenced(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "refinement in json fence",
			input:    fence + "json\n" + refinementJSON + "\n" + fence,
			expected: refinementJSON,
		},
		{
			name:     "details in json fence with trailing text",
			input:    fence + "json\n" + detailsJSON + "\n" + fence + "\nLet me know if you want a different tone.",
			expected: detailsJSON,
		},
		{
			name:     "details in bare fence",
			input:    fence + "\n" + detailsJSON + "\n" + fence,
			expected: detailsJSON,
		},
		{
			name:     "fence with other language tag",
			input:    fence + "javascript\n" + refinementJSON + "\n" + fence,
			expected: refinementJSON,
		},
		{
			name:     "chatty preamble then fenced refinement then sign-off",
			input:    "Sure! I corrected the spelling and added seven related careers:\n\n" + fence + "json\n" + refinementJSON + "\n" + fence + "\n\nEnjoy your new identities!",
			expected: refinementJSON,
		},
		{
			name:     "preamble then fenced details",
			input:    "Here is the persona you asked for:\n" + fence + "json\n" + detailsJSON + "\n" + fence,
			expected: detailsJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}

func TestCleanJSONBlock_Unfenced(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain refinement",
			input:    refinementJSON,
			expected: refinementJSON,
		},
		{
			name:     "preamble before details",
			input:    "As requested, the structured persona:\n" + detailsJSON,
			expected: detailsJSON,
		},
		{
			name:     "details with trailing text",
			input:    detailsJSON + "\n\nI kept the bio to two sentences.",
			expected: detailsJSON,
		},
		{
			name:     "preamble before profession array",
			input:    "The ten professions are:\n[\"Pilot\", \"Chef\"]",
			expected: `["Pilot", "Chef"]`,
		},
		{
			name:     "braces inside bio",
			input:    "Result: {\"bio\": \"Answers every question with {curly} riddles.\"}",
			expected: `{"bio": "Answers every question with {curly} riddles."}`,
		},
		{
			name:     "escaped quotes in title",
			input:    "Result: {\"title\": \"The \\\"Ghost\\\" Pilot\"} done",
			expected: `{"title": "The \"Ghost\" Pilot"}`,
		},
		{
			name:     "no JSON at all",
			input:    "  I could not generate a persona for that.  ",
			expected: "I could not generate a persona for that.",
		},
		{
			name:     "truncated object is returned unchanged",
			input:    "Here: {\"title\": \"Pilot\"",
			expected: "Here: {\"title\": \"Pilot\"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "details object", input: detailsJSON, expected: detailsJSON},
		{name: "object with trailing text", input: refinementJSON + " and that's all", expected: refinementJSON},
		{name: "nested object", input: `{"persona": {"title": "Chef"}} tail`, expected: `{"persona": {"title": "Chef"}}`},
		{name: "closing brace inside string", input: `{"bio": "ends with }"}`, expected: `{"bio": "ends with }"}`},
		{name: "unbalanced", input: `{"title": {"x": 1}`, expected: ""},
		{name: "empty input", input: "", expected: ""},
		{name: "not starting with brace", input: "persona", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractJSONObject(tt.input))
		})
	}
}

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "skills array", input: `["Navigation", "Radio", "Calm"]`, expected: `["Navigation", "Radio", "Calm"]`},
		{name: "array of personas", input: `[{"title": "Chef"}, {"title": "Pilot"}] more`, expected: `[{"title": "Chef"}, {"title": "Pilot"}]`},
		{name: "bracket inside string", input: `["Coder [senior]"]`, expected: `["Coder [senior]"]`},
		{name: "empty input", input: "", expected: ""},
		{name: "not starting with bracket", input: "skills", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractJSONArray(tt.input))
		})
	}
}
