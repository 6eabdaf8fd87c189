package extraction

import "strings"

const jsonFence = "```json"

// sanitizeResponse strips incidental markdown formatting from a model
// response before parsing. Exactly one rule applies per response, in
// order of precedence:
//
//  1. a fence explicitly tagged as JSON: keep only the content between
//     the first ```json and the next ```, ignoring everything else
//  2. any generic fence markers: strip all ``` markers
//  3. otherwise the text is used unchanged
func sanitizeResponse(text string) string {
	text = strings.TrimSpace(text)

	if i := strings.Index(text, jsonFence); i >= 0 {
		rest := text[i+len(jsonFence):]
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		return strings.TrimSpace(rest)
	}

	if strings.Contains(text, "```") {
		return strings.TrimSpace(strings.ReplaceAll(text, "```", ""))
	}

	return text
}
