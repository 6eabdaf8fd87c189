package extraction

import (
	"encoding/json"
	"fmt"
)

// BuildPrompt renders a schema definition into the extraction
// instruction sent alongside the invoice image. The full definition is
// embedded verbatim so the model sees exactly the structure the
// validator will enforce. Pure and deterministic; callers rebuild it per
// request instead of caching a copy.
func BuildPrompt(definition map[string]any) string {
	schemaJSON, err := json.MarshalIndent(definition, "", "  ")
	if err != nil {
		// Definition is a plain map of strings, maps and slices; it cannot
		// fail to marshal.
		panic(fmt.Sprintf("marshaling schema definition: %v", err))
	}

	return `Analyze the provided invoice image and extract all relevant information.

Structure your output only as a valid JSON object that strictly adheres to the following schema.
If a specific field or value is not present in the image, use null as the value for that field (do not omit the key).
Do not include any text, explanations, or markdown formatting.

JSON Schema:
` + string(schemaJSON) + "\n"
}
