/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: caller.go
Description: Model-call transports for the Akaylee Validator. Provides a live
OpenAI-backed caller, a recording wrapper that persists every successful
response, and a replay caller that serves exclusively from the cache and fails
fast on a miss.
*/

package cache

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/kleascm/akaylee-validator/pkg/interfaces"
)

// OpenAICaller is a live prompt/response transport backed by the OpenAI
// chat completions API.
type OpenAICaller struct {
	client *openai.Client
	model  string
}

// NewOpenAICaller creates a live caller for the given model.
func NewOpenAICaller(apiKey string, model string) *OpenAICaller {
	return &OpenAICaller{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Call sends the prompt and returns the response text with token counts.
func (c *OpenAICaller) Call(ctx context.Context, prompt string) (string, int, int, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", 0, 0, fmt.Errorf("model call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, 0, fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0].Message.Content, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, nil
}

// RecordingCaller wraps a live transport and records every successful
// response into the store. Used while capturing fixtures.
type RecordingCaller struct {
	live       interfaces.ModelCaller
	store      *Store
	sourceFile string
	testFile   string
	logger     *logrus.Logger
}

// NewRecordingCaller wires a live caller to the store for one source/test pair.
func NewRecordingCaller(live interfaces.ModelCaller, store *Store, sourceFile, testFile string, logger *logrus.Logger) *RecordingCaller {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RecordingCaller{live: live, store: store, sourceFile: sourceFile, testFile: testFile, logger: logger}
}

// Call forwards to the live transport and persists the response.
func (c *RecordingCaller) Call(ctx context.Context, prompt string) (string, int, int, error) {
	text, promptTokens, completionTokens, err := c.live.Call(ctx, prompt)
	if err != nil {
		return "", 0, 0, err
	}
	if err := c.store.Record(c.sourceFile, c.testFile, prompt, text, promptTokens, completionTokens); err != nil {
		return "", 0, 0, err
	}
	return text, promptTokens, completionTokens, nil
}

// ReplayCaller serves model calls exclusively from recorded responses. A
// miss is fatal so a non-reproducible fixture surfaces immediately instead
// of degrading to a live call.
type ReplayCaller struct {
	store      *Store
	sourceFile string
	testFile   string
	logger     *logrus.Logger
}

// NewReplayCaller creates a replay-only transport for one source/test pair.
func NewReplayCaller(store *Store, sourceFile, testFile string, logger *logrus.Logger) *ReplayCaller {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ReplayCaller{store: store, sourceFile: sourceFile, testFile: testFile, logger: logger}
}

// Call replays the recorded response for the exact prompt.
func (c *ReplayCaller) Call(ctx context.Context, prompt string) (string, int, int, error) {
	entry, err := c.store.Lookup(c.sourceFile, c.testFile, prompt)
	if err != nil {
		return "", 0, 0, fmt.Errorf("replay for source %q test %q: %w", c.sourceFile, c.testFile, err)
	}
	return entry.Response, entry.PromptTokens, entry.CompletionTokens, nil
}
