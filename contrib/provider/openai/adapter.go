package openai

import (
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"
	errorskg "github.com/sweetpotato0/echoflow/errors"
	"github.com/sweetpotato0/echoflow/message"
)

// Adapter renders turns as chat completion messages. Every role is native;
// assistant tool calls travel in tool_calls after the assistant text.
type Adapter struct{}

var _ message.Adapter[openai.ChatCompletionMessageParamUnion] = Adapter{}

// Adapt converts one merged turn.
func (Adapter) Adapt(msg *message.Message) openai.ChatCompletionMessageParamUnion {
	texts, calls, results := split(msg)

	switch msg.Role {
	case message.RoleSystem:
		sys := &openai.ChatCompletionSystemMessageParam{}
		if len(texts) == 1 {
			sys.Content.OfString = param.NewOpt(texts[0])
		} else {
			for _, t := range texts {
				sys.Content.OfArrayOfContentParts = append(sys.Content.OfArrayOfContentParts,
					openai.ChatCompletionContentPartTextParam{Text: t})
			}
		}
		return openai.ChatCompletionMessageParamUnion{OfSystem: sys}

	case message.RoleAssistant:
		asst := &openai.ChatCompletionAssistantMessageParam{}
		switch len(texts) {
		case 0:
		case 1:
			asst.Content.OfString = param.NewOpt(texts[0])
		default:
			for _, t := range texts {
				asst.Content.OfArrayOfContentParts = append(asst.Content.OfArrayOfContentParts,
					openai.ChatCompletionAssistantMessageParamContentArrayOfContentPartUnion{
						OfText: &openai.ChatCompletionContentPartTextParam{Text: t},
					})
			}
		}
		for _, c := range calls {
			args, err := c.InputJSON()
			if err != nil {
				args = []byte(`{}`)
			}
			asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallParam{
				ID: c.ID,
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      c.Name,
					Arguments: string(args),
				},
			})
		}
		return openai.ChatCompletionMessageParamUnion{OfAssistant: asst}

	case message.RoleTool:
		if len(results) == 0 {
			return openai.ToolMessage("", "")
		}
		return openai.ToolMessage(results[0].Content, results[0].ID)

	default:
		// User turns may carry tool calls; the chat wire has no slot for them
		// so they are sent as their JSON text.
		for _, c := range calls {
			if data, err := c.MarshalJSON(); err == nil {
				texts = append(texts, string(data))
			}
		}
		user := &openai.ChatCompletionUserMessageParam{}
		if len(texts) == 1 {
			user.Content.OfString = param.NewOpt(texts[0])
		} else {
			for _, t := range texts {
				user.Content.OfArrayOfContentParts = append(user.Content.OfArrayOfContentParts, openai.TextContentPart(t))
			}
		}
		return openai.ChatCompletionMessageParamUnion{OfUser: user}
	}
}

func split(msg *message.Message) (texts []string, calls []message.ToolCall, results []message.ToolResult) {
	for _, c := range msg.Content {
		switch c := c.(type) {
		case message.Text:
			texts = append(texts, string(c))
		case message.ToolCall:
			calls = append(calls, c)
		case message.ToolResult:
			results = append(results, c)
		}
	}
	return texts, calls, results
}

// ToMessage converts a chat message back.
func (Adapter) ToMessage(p openai.ChatCompletionMessageParamUnion) (*message.Message, error) {
	switch {
	case p.OfSystem != nil:
		msg := message.New(message.RoleSystem)
		if p.OfSystem.Content.OfString.Valid() {
			msg.Content = append(msg.Content, message.Text(p.OfSystem.Content.OfString.Value))
		}
		for _, part := range p.OfSystem.Content.OfArrayOfContentParts {
			msg.Content = append(msg.Content, message.Text(part.Text))
		}
		return msg, nil

	case p.OfUser != nil:
		msg := message.New(message.RoleUser)
		if p.OfUser.Content.OfString.Valid() {
			msg.Content = append(msg.Content, message.Text(p.OfUser.Content.OfString.Value))
		}
		for i, part := range p.OfUser.Content.OfArrayOfContentParts {
			if part.OfText == nil {
				return nil, fmt.Errorf("%w: user content part %d", errorskg.ErrUnsupportedContent, i)
			}
			msg.Content = append(msg.Content, message.Text(part.OfText.Text))
		}
		return msg, nil

	case p.OfAssistant != nil:
		msg := message.New(message.RoleAssistant)
		if p.OfAssistant.Content.OfString.Valid() {
			msg.Content = append(msg.Content, message.Text(p.OfAssistant.Content.OfString.Value))
		}
		for i, part := range p.OfAssistant.Content.OfArrayOfContentParts {
			if part.OfText == nil {
				return nil, fmt.Errorf("%w: assistant content part %d", errorskg.ErrUnsupportedContent, i)
			}
			msg.Content = append(msg.Content, message.Text(part.OfText.Text))
		}
		for _, tc := range p.OfAssistant.ToolCalls {
			input, err := parseArguments(tc.Function.Arguments)
			if err != nil {
				return nil, fmt.Errorf("tool call %s: %w", tc.ID, err)
			}
			msg.Content = append(msg.Content, message.ToolCall{
				ID:    tc.ID,
				Name:  tc.Function.Name,
				Input: input,
			})
		}
		return msg, nil

	case p.OfTool != nil:
		var b strings.Builder
		if p.OfTool.Content.OfString.Valid() {
			b.WriteString(p.OfTool.Content.OfString.Value)
		}
		for _, part := range p.OfTool.Content.OfArrayOfContentParts {
			b.WriteString(part.Text)
		}
		return message.NewToolResult(p.OfTool.ToolCallID, b.String()), nil

	default:
		return nil, fmt.Errorf("%w: unknown chat message variant", errorskg.ErrUnsupportedRole)
	}
}

func parseArguments(args string) (*message.Input, error) {
	if strings.TrimSpace(args) == "" {
		return message.NewInput(), nil
	}
	return message.ParseInput([]byte(args))
}

// NewStatic returns an eager buffer rendering chat messages.
func NewStatic() *message.Static[openai.ChatCompletionMessageParamUnion] {
	return message.NewStatic[openai.ChatCompletionMessageParamUnion](Adapter{})
}

// NewDynamic returns a lazy buffer rendering chat messages.
func NewDynamic() *message.Dynamic[openai.ChatCompletionMessageParamUnion] {
	return message.NewDynamic[openai.ChatCompletionMessageParamUnion](Adapter{})
}
