package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildExtractionPrompt_Structure(t *testing.T) {
	schema := ExtractionSchema{
		Name:        "Test",
		Description: "Extract test data.",
		Fields: []SchemaField{
			{Name: "title", Type: "string", Description: "the title", Required: true},
			{Name: "tags", Type: "[]string"},
		},
	}

	prompt := BuildExtractionPrompt(schema, "some input text")

	assert.Contains(t, prompt, "Extract test data.")
	assert.Contains(t, prompt, `"title": string (required) // the title`)
	assert.Contains(t, prompt, `"tags": []string`)
	assert.Contains(t, prompt, "Return ONLY valid JSON")
	assert.Contains(t, prompt, "\"\"\"\nsome input text\n\"\"\"")
}

func TestBuildExtractionPrompt_DefaultsTypeToString(t *testing.T) {
	schema := ExtractionSchema{
		Description: "Extract.",
		Fields:      []SchemaField{{Name: "name"}},
	}

	prompt := BuildExtractionPrompt(schema, "text")
	assert.Contains(t, prompt, `"name": string`)
}

func TestBuildExtractionPrompt_TruncatesLongInput(t *testing.T) {
	long := strings.Repeat("a", maxPromptContent+5000)

	prompt := BuildExtractionPrompt(VacancySchema(), long)

	assert.Less(t, len(prompt), len(long))
	assert.NotContains(t, prompt, strings.Repeat("a", maxPromptContent+1))
	assert.Contains(t, prompt, strings.Repeat("a", maxPromptContent))
}

func TestVacancySchema_Fields(t *testing.T) {
	schema := VacancySchema()

	names := make([]string, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "seniority")
	assert.Contains(t, names, "technologies")
	assert.Contains(t, names, "salary_min")
	assert.Contains(t, names, "salary_max")
}

func TestCompanyProfileSchema_NameRequired(t *testing.T) {
	schema := CompanyProfileSchema()

	var nameField *SchemaField
	for i := range schema.Fields {
		if schema.Fields[i].Name == "name" {
			nameField = &schema.Fields[i]
		}
	}
	if assert.NotNil(t, nameField) {
		assert.True(t, nameField.Required)
	}
}
