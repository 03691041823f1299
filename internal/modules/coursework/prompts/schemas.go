package prompts

import "sort"

// Schemas follow strict structured-output rules: every property is required
// and no object allows additional properties.

func object(properties map[string]any) map[string]any {
	req := make([]string, 0, len(properties))
	for k := range properties {
		req = append(req, k)
	}
	sort.Strings(req)
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             req,
		"additionalProperties": false,
	}
}

func arrayOf(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

func StringSchema() map[string]any { return map[string]any{"type": "string"} }

func StringArraySchema() map[string]any { return arrayOf(StringSchema()) }

func IntSchema() map[string]any { return map[string]any{"type": "integer"} }

func BoolSchema() map[string]any { return map[string]any{"type": "boolean"} }

func ValidatedContentSchema() map[string]any {
	return object(map[string]any{
		"totalQuestions": IntSchema(),
		"questionList": arrayOf(object(map[string]any{
			"id":                StringSchema(),
			"mainQuestion":      StringSchema(),
			"subParts":          StringArraySchema(),
			"hasFigure":         BoolSchema(),
			"figureDescription": StringSchema(),
		})),
		"cleanedContent": StringSchema(),
		"metadata": object(map[string]any{
			"subject": StringSchema(),
			"topics":  StringArraySchema(),
		}),
	})
}

// SolverBatchSchema carries sub-part solutions as a list of {part, solution}
// pairs since strict schemas cannot express free-form maps.
func SolverBatchSchema() map[string]any {
	return object(map[string]any{
		"solutions": arrayOf(object(map[string]any{
			"questionId": StringSchema(),
			"solution": object(map[string]any{
				"given":       StringSchema(),
				"toFind":      StringSchema(),
				"approach":    StringSchema(),
				"steps":       StringArraySchema(),
				"finalAnswer": StringSchema(),
				"explanation": StringSchema(),
			}),
			"subPartSolutions": arrayOf(object(map[string]any{
				"part":     StringSchema(),
				"solution": StringSchema(),
			})),
		})),
	})
}

func QuizSchema() map[string]any {
	return object(map[string]any{
		"questions": arrayOf(object(map[string]any{
			"question":      StringSchema(),
			"options":       StringArraySchema(),
			"correctAnswer": IntSchema(),
		})),
	})
}

func FlashcardsSchema() map[string]any {
	return object(map[string]any{
		"flashcards": arrayOf(object(map[string]any{
			"front": StringSchema(),
			"back":  StringSchema(),
		})),
	})
}
