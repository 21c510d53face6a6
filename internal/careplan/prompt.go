// Package careplan turns survey answers into a care plan using a generative-text API.
package careplan

import (
	"fmt"

	"github.com/haircarepro/haircarepro/internal/model"
)

// promptTemplate asks the model to answer in the JSON shape parsed by Parse.
// The example block must stay a ```json fence so that models echo the format.
const promptTemplate = "\nYou are a professional hair care specialist. Based on the following survey responses, generate a JSON response like this:\n" +
	"\n```json\n" +
	`{
  "ingredients": [
    { "name": "Ingredient 1", "howToUse": "Instructions for Ingredient 1" }
  ],
  "washFrequency": "e.g., Twice a week",
  "tips": ["Tip 1", "Tip 2"],
  "resources": [{"name": "Site Name", "type": "Website"}]
}` +
	"\n```\n" +
	`
Survey:
- Hair Type: %s
- Hair Texture: %s
- Hair Porosity: %s
- Scalp Condition: %s
- Product Use: %s
- Styling Habits: %s
- Hair Goals: %s
- Lifestyle: %s
`

// BuildPrompt formats survey answers into the prompt sent to the model.
// Answers are embedded verbatim; missing answers become empty text.
func BuildPrompt(survey model.Survey) string {
	return fmt.Sprintf(promptTemplate,
		survey.Get(model.SurveyHairType),
		survey.Get(model.SurveyHairTexture),
		survey.Get(model.SurveyPorosity),
		survey.Get(model.SurveyScalpCondition),
		survey.Get(model.SurveyProductUse),
		survey.Get(model.SurveyStylingHabits),
		survey.Get(model.SurveyHairGoals),
		survey.Get(model.SurveyLifestyle),
	)
}
