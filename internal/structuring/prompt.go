package structuring

import (
	"fmt"
	"strings"

	"github.com/tyler-sommer/stick"
)

// resumeShape is the target JSON layout shown to the model
const resumeShape = `{
  "summary": "string",
  "skills": ["string"],
  "experience": [
    {
      "company": "string",
      "role": "string",
      "start_date": "string or null",
      "end_date": "string or null",
      "description": "string or null"
    }
  ],
  "education": [
    {
      "degree": "string",
      "institution": "string",
      "years": "string or null"
    }
  ],
  "projects": [
    {
      "name": "string",
      "description": "string or null",
      "technology_stack": ["string"]
    }
  ]
}`

const resumePromptTemplate = `You are an expert resume parser. Extract the information from the resume text below.

Return only a single valid JSON object with no commentary and no Markdown formatting.
The object must have exactly this shape:
{{ shape }}

Rules:
- "summary" is required and must be a short professional summary string.
- Use an empty list [] for any section that has no entries.
- Use null for optional fields that are not present. Do not invent values.
- Keep dates as they appear in the resume.

Resume text:
"""
{{ text }}
"""
`

// Prompt renders the fixed resume instruction template
type Prompt struct {
	env      *stick.Env
	template string
}

// NewPrompt creates the resume prompt renderer
func NewPrompt() *Prompt {
	return &Prompt{
		env:      stick.New(nil),
		template: resumePromptTemplate,
	}
}

// Render embeds the extracted text and target shape into the template
func (p *Prompt) Render(text string) (string, error) {
	ctx := map[string]stick.Value{
		"shape": resumeShape,
		"text":  text,
	}

	var out strings.Builder
	if err := p.env.Execute(p.template, &out, ctx); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return out.String(), nil
}
