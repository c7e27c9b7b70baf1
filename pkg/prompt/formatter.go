// Copyright 2025 The llmgate Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package prompt assembles the message list sent to the provider:
// system instructions, few-shot examples, truncated history, and the
// user's input.
package prompt

import (
	"strings"

	"github.com/llmgate/llmgate/pkg/llms"
)

// Example is a few-shot input/output pair.
type Example struct {
	Input  string `yaml:"input" json:"input"`
	Output string `yaml:"output" json:"output"`
}

// Formatter builds provider-ready message lists.
type Formatter struct {
	systemPrompt     string
	examples         []Example
	counter          *llms.TokenCounter
	historyBudget    int
	inputTemplate    string
	templateVariable string
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithSystemPrompt prepends a system message to every request.
func WithSystemPrompt(systemPrompt string) Option {
	return func(f *Formatter) {
		f.systemPrompt = systemPrompt
	}
}

// WithExamples injects few-shot example pairs after the system
// message.
func WithExamples(examples []Example) Option {
	return func(f *Formatter) {
		f.examples = examples
	}
}

// WithHistoryBudget truncates history to fit within maxTokens,
// dropping the oldest turns first. Requires a token counter.
func WithHistoryBudget(counter *llms.TokenCounter, maxTokens int) Option {
	return func(f *Formatter) {
		f.counter = counter
		f.historyBudget = maxTokens
	}
}

// WithInputTemplate wraps the user input in a template. The variable
// placeholder (default "{input}") is replaced with the raw input.
func WithInputTemplate(template string) Option {
	return func(f *Formatter) {
		f.inputTemplate = template
	}
}

// New creates a Formatter.
func New(opts ...Option) *Formatter {
	f := &Formatter{
		templateVariable: "{input}",
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format assembles the full message list for one completion:
// system prompt, few-shot examples, history, then the user input.
func (f *Formatter) Format(input string, history []llms.Message) []llms.Message {
	messages := make([]llms.Message, 0, len(f.examples)*2+len(history)+2)

	if f.systemPrompt != "" {
		messages = append(messages, llms.Message{Role: llms.RoleSystem, Content: f.systemPrompt})
	}

	for _, example := range f.examples {
		messages = append(messages,
			llms.Message{Role: llms.RoleUser, Content: example.Input},
			llms.Message{Role: llms.RoleAssistant, Content: example.Output},
		)
	}

	if f.counter != nil && f.historyBudget > 0 {
		history = f.counter.FitWithinLimit(history, f.historyBudget)
	}
	messages = append(messages, history...)

	content := input
	if f.inputTemplate != "" {
		content = strings.ReplaceAll(f.inputTemplate, f.templateVariable, input)
	}
	messages = append(messages, llms.Message{Role: llms.RoleUser, Content: content})

	return messages
}
