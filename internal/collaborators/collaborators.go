// Package collaborators defines the interfaces spec.md §6 calls
// "external collaborators": phrase validation, embeddings, and LLM
// text generation. Each can be in-process or served over HTTP/gRPC by
// another process; the coordinator only ever depends on these
// interfaces, mirroring the teacher's own split between
// internal/bitcoin.Client (an interface) and its concrete RPC
// implementation.
package collaborators

import "context"

// PhraseValidator runs the same rule set the coordinator applies to
// every human-submitted phrase, so AI-generated candidates in the
// Content Cache (C3) are held to an identical bar.
type PhraseValidator interface {
	Validate(ctx context.Context, phrase string) (ok bool, reason string, err error)
	ValidatePromptPhrase(ctx context.Context, phrase, promptText string) (ok bool, reason string, err error)
	ValidateCopy(ctx context.Context, phrase, originalPhrase string, otherCopyPhrase, promptText *string) (ok bool, reason string, err error)
	ValidateBackronymWords(ctx context.Context, words []string, expectedLetters []byte) (ok bool, reason string, err error)
}

// EmbeddingProvider is the root method for external embeddings; C4's
// two-tier cache is the only caller.
type EmbeddingProvider interface {
	GenerateEmbedding(ctx context.Context, text, model string) ([]float64, error)
}

// LLMProvider generates free-text completions. The Content Cache (C3)
// and the AI Orchestrator (C8, for backronym words) consume it;
// ai_provider selects which implementation is
// wired (openai, gemini, or "none" for test/offline runs).
type LLMProvider interface {
	GenerateResponse(ctx context.Context, prompt, model string, timeoutSeconds int) (string, error)
}
