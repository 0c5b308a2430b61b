package openai

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// ModelSlot selects which configured model serves a request.
type ModelSlot string

const (
	// SlotChat is the fast model used by the expert and workflow agents.
	SlotChat ModelSlot = "chat"
	// SlotReasoning is used by the synthesis agent.
	SlotReasoning ModelSlot = "reasoning"
)

var (
	// ErrEmptyCompletion is returned when the model answers without content
	ErrEmptyCompletion = errors.New("model returned an empty completion")
	// ErrInvalidTarget is returned when Generate is not given a pointer to a struct
	ErrInvalidTarget = errors.New("generate target must be a non-nil pointer to a struct")
)

// GenerateRequest is a single structured-output call.
type GenerateRequest struct {
	ModelSlot    ModelSlot
	SchemaName   string
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
}

// ChatAPI is the subset of the go-openai client used for completions.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Generator asks the model for JSON matching the schema of the target type
// and verifies the answer against that schema before decoding.
type Generator struct {
	api    ChatAPI
	models map[ModelSlot]string
}

type GeneratorConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	ReasoningModel string
}

func NewGenerator(cfg GeneratorConfig) *Generator {
	return NewGeneratorWithAPI(newAPIClient(cfg.APIKey, cfg.BaseURL), cfg.ChatModel, cfg.ReasoningModel)
}

func NewGeneratorWithAPI(api ChatAPI, chatModel, reasoningModel string) *Generator {
	if chatModel == "" {
		chatModel = openai.GPT4oMini
	}
	if reasoningModel == "" {
		reasoningModel = chatModel
	}
	return &Generator{
		api: api,
		models: map[ModelSlot]string{
			SlotChat:      chatModel,
			SlotReasoning: reasoningModel,
		},
	}
}

// Model returns the model name configured for slot.
func (g *Generator) Model(slot ModelSlot) string {
	if m, ok := g.models[slot]; ok {
		return m
	}
	return g.models[SlotChat]
}

// Generate fills out, which must be a pointer to a struct, from the model's answer.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrInvalidTarget
	}

	schema, err := jsonschema.GenerateSchemaForType(rv.Elem().Interface())
	if err != nil {
		return fmt.Errorf("failed to derive schema: %w", err)
	}

	name := req.SchemaName
	if name == "" {
		name = schemaName(rv.Elem().Type())
	}

	resp, err := g.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.Model(req.ModelSlot),
		Temperature: req.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   name,
				Schema: schema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return ErrEmptyCompletion
	}

	if err := jsonschema.VerifySchemaAndUnmarshal(*schema, []byte(resp.Choices[0].Message.Content), out); err != nil {
		return fmt.Errorf("model output does not match schema: %w", err)
	}
	return nil
}

func schemaName(t reflect.Type) string {
	var b strings.Builder
	for i, r := range t.Name() {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "result"
	}
	return b.String()
}
