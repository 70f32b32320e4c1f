package handlers

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"sitegen/internal/models"
)

// generateBody is the JSON body of POST /generate. prompt, brand and
// sections stay untyped so type mistakes are reported per field.
type generateBody struct {
	Prompt      any            `json:"prompt"`
	Brand       any            `json:"brand"`
	Sections    any            `json:"sections"`
	Version     *int           `json:"version"`
	IsEdit      bool           `json:"isEdit"`
	CurrentData map[string]any `json:"currentData"`
	Feedback    string         `json:"feedback"`
	Model       string         `json:"model"`
	Stream      *bool          `json:"stream"`
}

// defaultVersion is used when a request names no schema version.
const defaultVersion = 1

// validateGenerate checks the body and converts it into a request. The
// returned details list every problem found; the request is only valid
// when it is empty.
func validateGenerate(body generateBody, versions []int) (models.GenerationRequest, []string) {
	var details []string
	req := models.GenerationRequest{
		SchemaVersion: defaultVersion,
		IsEdit:        body.IsEdit,
		PriorDocument: body.CurrentData,
		EditFeedback:  strings.TrimSpace(body.Feedback),
	}

	editing := body.IsEdit && body.CurrentData != nil
	if body.IsEdit && body.CurrentData == nil {
		details = append(details, "currentData must be an object when isEdit is true")
	}

	prompt, isString := body.Prompt.(string)
	switch {
	case editing && body.Prompt == nil:
	case !isString || (strings.TrimSpace(prompt) == "" && !editing):
		details = append(details, "prompt must be a non-empty string")
	case utf8.RuneCountInString(prompt) > models.MaxPromptLength:
		details = append(details, fmt.Sprintf("prompt must be <= %d characters", models.MaxPromptLength))
	default:
		req.Prompt = strings.TrimSpace(prompt)
	}

	if body.Brand != nil {
		brand, ok := body.Brand.(string)
		switch {
		case !ok || strings.TrimSpace(brand) == "":
			details = append(details, "brand must be a non-empty string")
		case utf8.RuneCountInString(brand) > models.MaxBrandLength:
			details = append(details, fmt.Sprintf("brand must be <= %d characters", models.MaxBrandLength))
		default:
			req.BrandHint = strings.TrimSpace(brand)
		}
	}

	if body.Sections != nil {
		sections, ok := body.Sections.([]any)
		switch {
		case !ok:
			details = append(details, "sections must be an array of strings")
		case len(sections) > models.MaxSections:
			details = append(details, fmt.Sprintf("sections must include <= %d items", models.MaxSections))
		default:
			for i, raw := range sections {
				s, ok := raw.(string)
				switch {
				case !ok || strings.TrimSpace(s) == "":
					details = append(details, fmt.Sprintf("sections[%d] must be a non-empty string", i))
				case utf8.RuneCountInString(s) > models.MaxSectionLength:
					details = append(details, fmt.Sprintf("sections[%d] must be <= %d characters", i, models.MaxSectionLength))
				default:
					req.SuggestedSections = append(req.SuggestedSections, strings.TrimSpace(s))
				}
			}
		}
	}

	if body.Version != nil {
		if slices.Contains(versions, *body.Version) {
			req.SchemaVersion = *body.Version
		} else {
			details = append(details, "version must be one of "+joinInts(versions))
		}
	}

	switch models.ModelTier(strings.ToLower(body.Model)) {
	case "", models.TierFast:
		req.ModelTier = models.TierFast
	case models.TierElite:
		req.ModelTier = models.TierElite
	default:
		details = append(details, `model must be "fast" or "elite"`)
	}

	if utf8.RuneCountInString(body.Feedback) > models.MaxPromptLength {
		details = append(details, fmt.Sprintf("feedback must be <= %d characters", models.MaxPromptLength))
	}

	// Edits default to single-shot, new sites to streaming.
	req.Stream = !req.IsEdit
	if body.Stream != nil {
		req.Stream = *body.Stream
	}
	return req, details
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}

// documentBody is the JSON body of POST /documents.
type documentBody struct {
	Raw    string `json:"raw"`
	Format string `json:"format"`
	Prompt string `json:"prompt"`
}

// validateDocument checks a document ingestion body, defaulting the format
// to plain text.
func validateDocument(body *documentBody) []string {
	var details []string
	if strings.TrimSpace(body.Raw) == "" {
		details = append(details, "raw must be a non-empty string")
	}
	switch body.Format {
	case "":
		body.Format = "text"
	case "sse", "text":
	default:
		details = append(details, `format must be "sse" or "text"`)
	}
	if utf8.RuneCountInString(body.Prompt) > models.MaxPromptLength {
		details = append(details, fmt.Sprintf("prompt must be <= %d characters", models.MaxPromptLength))
	}
	return details
}
