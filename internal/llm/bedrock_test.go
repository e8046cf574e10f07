package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConverse struct {
	inputs []*bedrockruntime.ConverseInput
	out    *bedrockruntime.ConverseOutput
	err    error
}

func (f *fakeConverse) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.inputs = append(f.inputs, params)
	return f.out, f.err
}

func textOutput(text string) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: text}},
		}},
		StopReason: brtypes.StopReasonEndTurn,
		Usage:      &brtypes.TokenUsage{InputTokens: aws.Int32(5), OutputTokens: aws.Int32(2), TotalTokens: aws.Int32(7)},
	}
}

func TestBedrockClient_SendsToolsAndHistory(t *testing.T) {
	fake := &fakeConverse{out: textOutput("You're booked.")}
	client := NewBedrockClient(fake, "anthropic.claude-test")

	resp, err := client.Complete(context.Background(), Request{
		System: []string{"be polite", "  "},
		Messages: []ChatMessage{
			{Role: RoleUser, Content: "book me"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "tu-1", Name: "book_appointment", Args: map[string]any{"date": "2024-06-10"}}}},
			{Role: RoleUser, ToolResults: []ToolResult{{CallID: "tu-1", Name: "book_appointment", Response: map[string]any{"error": "GP not found."}}}},
		},
		Tools: []ToolDefinition{{
			Name:        "book_appointment",
			Description: "Book an appointment.",
			Parameters:  &Schema{Type: TypeObject, Properties: map[string]*Schema{"date": {Type: TypeString}}, Required: []string{"date"}},
		}},
		MaxTokens:   256,
		Temperature: -1,
	})
	require.NoError(t, err)
	assert.Equal(t, "You're booked.", resp.Text)
	assert.Equal(t, int32(7), resp.Usage.TotalTokens)
	assert.False(t, resp.HasToolCalls())

	require.Len(t, fake.inputs, 1)
	in := fake.inputs[0]
	assert.Equal(t, "anthropic.claude-test", aws.ToString(in.ModelId))
	assert.Len(t, in.System, 1)
	assert.Equal(t, int32(256), aws.ToInt32(in.InferenceConfig.MaxTokens))
	assert.Nil(t, in.InferenceConfig.Temperature)

	require.NotNil(t, in.ToolConfig)
	require.Len(t, in.ToolConfig.Tools, 1)
	spec := in.ToolConfig.Tools[0].(*brtypes.ToolMemberToolSpec)
	assert.Equal(t, "book_appointment", aws.ToString(spec.Value.Name))

	require.Len(t, in.Messages, 3)
	use := in.Messages[1].Content[0].(*brtypes.ContentBlockMemberToolUse)
	assert.Equal(t, "tu-1", aws.ToString(use.Value.ToolUseId))
	result := in.Messages[2].Content[0].(*brtypes.ContentBlockMemberToolResult)
	assert.Equal(t, "tu-1", aws.ToString(result.Value.ToolUseId))
	assert.Equal(t, brtypes.ToolResultStatusError, result.Value.Status)
}

func TestBedrockClient_DecodesToolUse(t *testing.T) {
	fake := &fakeConverse{out: &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role: brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{
				&brtypes.ContentBlockMemberToolUse{Value: brtypes.ToolUseBlock{
					ToolUseId: aws.String("tu-9"),
					Name:      aws.String("list_available_slots"),
					Input:     document.NewLazyDocument(map[string]any{"date": "2024-06-10", "gpName": "Smith"}),
				}},
			},
		}},
		StopReason: brtypes.StopReasonToolUse,
	}}
	client := NewBedrockClient(fake, "model")

	resp, err := client.Complete(context.Background(), Request{Messages: []ChatMessage{{Role: RoleUser, Content: "slots?"}}})
	require.NoError(t, err)
	require.True(t, resp.HasToolCalls())
	assert.Equal(t, "tu-9", resp.ToolCalls[0].ID)
	assert.Equal(t, "list_available_slots", resp.ToolCalls[0].Name)
	assert.Equal(t, "Smith", resp.ToolCalls[0].Args["gpName"])
	assert.Equal(t, "tool_use", resp.StopReason)
}

func TestBedrockClient_Errors(t *testing.T) {
	_, err := NewBedrockClient(&fakeConverse{}, "").Complete(context.Background(), Request{Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}}})
	assert.ErrorContains(t, err, "model id")

	_, err = NewBedrockClient(&fakeConverse{}, "m").Complete(context.Background(), Request{})
	assert.True(t, errors.Is(err, ErrNoMessages))

	fake := &fakeConverse{err: errors.New("throttled")}
	_, err = NewBedrockClient(fake, "m").Complete(context.Background(), Request{Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}}})
	assert.ErrorContains(t, err, "throttled")

	fake = &fakeConverse{out: &bedrockruntime.ConverseOutput{}}
	_, err = NewBedrockClient(fake, "m").Complete(context.Background(), Request{Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}}})
	assert.True(t, errors.Is(err, ErrEmptyResponse))
}

func TestSchemaJSONSchema(t *testing.T) {
	s := &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"type": {Type: TypeString, Description: "kind", Enum: []string{"A", "B"}},
		},
		Required: []string{"type"},
	}
	assert.Equal(t, map[string]any{
		"type": "object",
		"properties": map[string]any{
			"type": map[string]any{"type": "string", "description": "kind", "enum": []string{"A", "B"}},
		},
		"required": []string{"type"},
	}, s.JSONSchema())

	var empty *Schema
	assert.Equal(t, map[string]any{"type": "object", "properties": map[string]any{}}, empty.JSONSchema())
}
