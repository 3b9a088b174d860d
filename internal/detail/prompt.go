package detail

import "strings"

// Instruction is sent as the single chat message of every request. The
// disease fields travel alongside it as structured members.
const Instruction = "Explain the detected plant leaf disease in detail: describe the disease, " +
	"its common causes and symptoms, how the given severity affects the plant, and " +
	"recommend treatment and prevention measures suited to that severity. " +
	"Format the answer in Markdown with short sections."

// ResponseKeys lists the text-bearing members the generation endpoint may
// answer with, in priority order. The first member holding a non-empty string
// wins.
var ResponseKeys = []string{
	"response",
	"output",
	"answer",
	"result",
	"text",
	"content",
	"message",
}

// pickText probes payload in ResponseKeys order.
func pickText(payload map[string]any) Result {
	for _, key := range ResponseKeys {
		value, ok := payload[key]
		if !ok {
			continue
		}
		text, ok := value.(string)
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		return Result{Text: strings.TrimSpace(text), Key: key}
	}
	return Result{}
}
