// Package ai - prompt.go builds structured extraction prompts.
package ai

import (
	"fmt"
	"strings"
)

// maxPromptContent caps how much page text goes into one prompt. Detail
// pages occasionally embed entire site footers; the useful content is at
// the front.
const maxPromptContent = 24000

// ExtractionSchema defines the structure for LLM-based content extraction.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "Vacancy", "CompanyProfile")
	Description string        // System prompt preamble describing the extraction task
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint: "string", "[]string", "int"
	Description string // Description for the LLM
	Required    bool
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	if len(inputText) > maxPromptContent {
		inputText = inputText[:maxPromptContent]
	}

	var sb strings.Builder
	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  %q: %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Extract information directly from the text, do not invent or summarize.\n")
	sb.WriteString("- Omit fields that are not present in the text rather than guessing.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	sb.WriteString("Input text:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

// VacancySchema returns the extraction schema for job posting detail pages.
func VacancySchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "Vacancy",
		Description: `You are an expert job posting parser.
Your task is to extract structured vacancy information from a raw job posting.
Preserve the original terminology for technologies and benefits.`,
		Fields: []SchemaField{
			{Name: "seniority", Type: "string", Description: "junior, mid, senior, lead, or principal"},
			{Name: "employment_type", Type: "string", Description: "full-time, part-time, contract"},
			{Name: "remote_policy", Type: "string", Description: "remote, hybrid, or onsite"},
			{Name: "technologies", Type: "[]string", Description: "languages, frameworks, tools mentioned as required or used"},
			{Name: "responsibilities", Type: "[]string", Description: "what the role does day to day"},
			{Name: "requirements", Type: "[]string", Description: "skills and experience the candidate must have"},
			{Name: "benefits", Type: "[]string", Description: "benefits and perks offered"},
			{Name: "salary_min", Type: "int", Description: "lower salary bound if stated, omit otherwise"},
			{Name: "salary_max", Type: "int", Description: "upper salary bound if stated, omit otherwise"},
		},
	}
}

// CompanyProfileSchema returns the extraction schema for company pages.
func CompanyProfileSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "CompanyProfile",
		Description: `You are an expert company researcher.
Your task is to extract structured company information from a company profile or website page.
Only report facts stated in the text.`,
		Fields: []SchemaField{
			{Name: "name", Type: "string", Description: "company name", Required: true},
			{Name: "industry", Type: "string", Description: "primary industry, e.g. fintech, gaming, outsourcing"},
			{Name: "size", Type: "string", Description: "one of: startup, small, medium, large, enterprise"},
			{Name: "work_model", Type: "string", Description: "remote, hybrid, or onsite"},
			{Name: "founded_year", Type: "int", Description: "year founded if stated"},
			{Name: "employee_count", Type: "int", Description: "number of employees if stated"},
			{Name: "technologies", Type: "[]string", Description: "technologies the company works with"},
			{Name: "benefits", Type: "[]string", Description: "benefits and perks the company offers"},
			{Name: "values", Type: "[]string", Description: "stated company values"},
			{Name: "description", Type: "string", Description: "one-paragraph summary of what the company does"},
		},
	}
}
