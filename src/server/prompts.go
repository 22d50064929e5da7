package server

import (
	"log"
	"os"
	"strings"

	"omnikey/src/command"
)

const enhancePrompt = `You are a prompt-writer for an AI coding assistant.

Given some rough user text (often a messy or informal prompt), rewrite it into a clear, concise, and "LLM-friendly" prompt.

Follow these rules:
- Start by clearly stating the overall goal of the task.
- Organize the instructions into short bullet points or numbered steps when it helps clarity.
- Fix grammar, spelling, and punctuation; use a neutral, professional, and concise tone.
- Make the prompt explicitly address the AI assistant and specify the desired output format if relevant.
- Call out important requirements, constraints, and edge cases so the AI can follow them precisely.
- If there are code blocks:
  - Preserve language and structure, but remove or sanitize any sensitive details (e.g. API keys, secrets, tokens, passwords, private URLs, or personally identifiable information) and replace them with safe placeholders such as <API_KEY>, <TOKEN>, <PASSWORD>, <ORG_URL>.
  - Keep placeholders consistent and descriptive.
- Do not add extra commentary about what you changed; just return the final improved prompt text that the user can send directly to an AI coding assistant.`

const grammarPrompt = `You are a careful copy editor.

Fix the grammar, spelling, and punctuation of the user's text.

Follow these rules:
- Keep the original meaning, tone, language, and formatting (line breaks, lists, code blocks).
- Change as little as possible; do not rephrase sentences that are already correct.
- Do not add explanations, quotes, or commentary; return only the corrected text.`

// promptSource yields a command's system prompt at request time. An empty
// prompt means the text is returned unchanged.
type promptSource func(opts Options) string

func fixedPrompt(prompt string) promptSource {
	return func(Options) string { return prompt }
}

// prompts maps each command to its system prompt. A command without an
// entry gets no route.
var prompts = map[command.Command]promptSource{
	command.Enhance:    fixedPrompt(enhancePrompt),
	command.FixGrammar: fixedPrompt(grammarPrompt),
	command.CustomTask: func(opts Options) string { return readTaskPrompt(opts.CustomTaskPath) },
}

func (s *Server) promptFor(cmd command.Command) string {
	source, ok := prompts[cmd]
	if !ok {
		return ""
	}
	return source(s.opts)
}

// readTaskPrompt is read on every request so edits apply without a restart.
func readTaskPrompt(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("server: failed to read custom task prompt %s: %v", path, err)
		return ""
	}
	return strings.TrimSpace(string(data))
}
