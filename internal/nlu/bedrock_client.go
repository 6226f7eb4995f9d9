package nlu

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockClient implements Client with the Bedrock Converse API.
type BedrockClient struct {
	api     bedrockConverseAPI
	modelID string
}

func NewBedrockClient(api bedrockConverseAPI, modelID string) *BedrockClient {
	if api == nil {
		panic("nlu: bedrock converse client cannot be nil")
	}
	return &BedrockClient{api: api, modelID: modelID}
}

func (c *BedrockClient) Complete(ctx context.Context, req Request) (Response, error) {
	modelID := req.Model
	if strings.TrimSpace(modelID) == "" {
		modelID = c.modelID
	}
	if strings.TrimSpace(modelID) == "" {
		return Response{}, errors.New("nlu: bedrock model id is required")
	}

	systemBlocks := make([]brtypes.SystemContentBlock, 0, len(req.System))
	for _, block := range req.System {
		if strings.TrimSpace(block) == "" {
			continue
		}
		systemBlocks = append(systemBlocks, &brtypes.SystemContentBlockMemberText{Value: block})
	}

	messages := make([]brtypes.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		var role brtypes.ConversationRole
		switch msg.Role {
		case RoleSystem:
			systemBlocks = append(systemBlocks, &brtypes.SystemContentBlockMemberText{Value: content})
			continue
		case RoleUser:
			role = brtypes.ConversationRoleUser
		case RoleAssistant:
			role = brtypes.ConversationRoleAssistant
		default:
			return Response{}, fmt.Errorf("nlu: unsupported role %q", msg.Role)
		}
		messages = append(messages, brtypes.Message{
			Role:    role,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: content}},
		})
	}
	if len(messages) == 0 {
		return Response{}, errors.New("nlu: bedrock requires at least one message")
	}

	inference := &brtypes.InferenceConfiguration{}
	if req.MaxTokens > 0 {
		inference.MaxTokens = aws.Int32(req.MaxTokens)
	}
	// Negative temperature means "provider default".
	if req.Temperature >= 0 {
		inference.Temperature = aws.Float32(req.Temperature)
	}
	if req.TopP != 0 {
		inference.TopP = aws.Float32(req.TopP)
	}
	if inference.MaxTokens == nil && inference.Temperature == nil && inference.TopP == nil {
		inference = nil
	}

	out, err := c.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:         aws.String(modelID),
		System:          systemBlocks,
		Messages:        messages,
		InferenceConfig: inference,
	})
	if err != nil {
		return Response{}, fmt.Errorf("nlu: bedrock converse failed: %w", err)
	}

	text, err := bedrockOutputText(out)
	if err != nil {
		return Response{}, err
	}

	resp := Response{Text: strings.TrimSpace(text)}
	if out.StopReason != "" {
		resp.StopReason = string(out.StopReason)
	}
	if out.Usage != nil {
		resp.Usage = TokenUsage{
			InputTokens:  int32OrZero(out.Usage.InputTokens),
			OutputTokens: int32OrZero(out.Usage.OutputTokens),
			TotalTokens:  int32OrZero(out.Usage.TotalTokens),
		}
	}
	return resp, nil
}

func bedrockOutputText(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil {
		return "", errors.New("nlu: bedrock response is nil")
	}
	msgOut, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", errors.New("nlu: bedrock response did not include a message output")
	}

	var builder strings.Builder
	for _, block := range msgOut.Value.Content {
		if textBlock, ok := block.(*brtypes.ContentBlockMemberText); ok {
			builder.WriteString(textBlock.Value)
		}
	}
	if strings.TrimSpace(builder.String()) == "" {
		return "", errors.New("nlu: bedrock response contained no text content blocks")
	}
	return builder.String(), nil
}

func int32OrZero(v *int32) int32 {
	if v == nil {
		return 0
	}
	return *v
}
