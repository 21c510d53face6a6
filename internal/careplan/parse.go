package careplan

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/haircarepro/haircarepro/internal/model"
)

// Placeholders for fields the model left out.
const (
	// DefaultInstruction is shown for an ingredient without usage text.
	// The PDF renderer uses the same value.
	DefaultInstruction = "No specific instruction."
	// DefaultWashFrequency is used when the model gives no wash frequency.
	DefaultWashFrequency = "Not specified"
	// ErrorMessage is the user-facing error stored in a failed plan.
	ErrorMessage = "Could not parse Gemini response as JSON."
)

var (
	// ErrMissingAPIKey indicates the client was built without an API key.
	ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not provided")
	// ErrEmptyResponse indicates the model returned no text.
	ErrEmptyResponse = errors.New("no text returned by Gemini")

	jsonFencePattern = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
)

// rawIngredient is one entry of the model's ingredients list.
type rawIngredient struct {
	Name     string `json:"name"`
	HowToUse string `json:"howToUse"`
}

// rawPlan is the JSON shape requested by the prompt.
// Field names follow the example embedded by BuildPrompt.
type rawPlan struct {
	Ingredients   []rawIngredient  `json:"ingredients"`
	WashFrequency string           `json:"washFrequency"`
	Tips          []string         `json:"tips"`
	Resources     []model.Resource `json:"resources"`
}

// ExtractJSON returns the content of the first ```json fenced block in text.
// Without a fence the trimmed text is returned unchanged.
func ExtractJSON(text string) string {
	if m := jsonFencePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

// Parse decodes model text into a normalized care plan.
func Parse(text string) (model.CarePlan, error) {
	if strings.TrimSpace(text) == "" {
		return model.CarePlan{}, ErrEmptyResponse
	}

	var raw rawPlan
	if err := json.Unmarshal([]byte(ExtractJSON(text)), &raw); err != nil {
		return model.CarePlan{}, fmt.Errorf("decode care plan: %w", err)
	}

	return normalize(raw), nil
}

// normalize reshapes the model output into a CarePlan, filling defaults.
func normalize(raw rawPlan) model.CarePlan {
	plan := model.CarePlan{
		Ingredients:   make([]string, 0, len(raw.Ingredients)),
		Instructions:  make(map[string]string, len(raw.Ingredients)),
		WashFrequency: raw.WashFrequency,
		Tips:          raw.Tips,
		Resources:     raw.Resources,
	}

	for _, ing := range raw.Ingredients {
		plan.Ingredients = append(plan.Ingredients, ing.Name)
		howToUse := ing.HowToUse
		if howToUse == "" {
			howToUse = DefaultInstruction
		}
		plan.Instructions[ing.Name] = howToUse
	}

	if plan.WashFrequency == "" {
		plan.WashFrequency = DefaultWashFrequency
	}
	if plan.Tips == nil {
		plan.Tips = []string{}
	}
	if plan.Resources == nil {
		plan.Resources = []model.Resource{}
	}

	return plan
}

// ErrorPlan builds the error variant of a care plan from err.
func ErrorPlan(err error) model.CarePlan {
	return model.CarePlan{
		Error:       ErrorMessage,
		RawResponse: err.Error(),
	}
}
