// Package llm classifies bank transactions with an external language model.
//
// Provider clients (OpenAI, Anthropic) implement Client. BatchClassifier splits
// work into fixed-size batches, calls the provider once per batch and isolates
// failures so one bad batch never affects another.
package llm
