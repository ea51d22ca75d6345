// Package translate turns captured text into another language.
//
// Three backends are available. Glossary looks phrases up in a YAML table.
// Script runs tokenizer and model scripts in the shared embedded
// interpreter. LLM asks an OpenAI-compatible chat endpoint, typically a
// local llama.cpp or ollama server.
package translate
