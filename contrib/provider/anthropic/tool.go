package anthropic

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/sweetpotato0/echoflow/tool"
)

// MarshalTool renders a tool spec with its schema under input_schema.
func MarshalTool(t *tool.Tool, cache bool) anthropic.ToolUnionParam {
	schema := t.InputSchema()
	param := anthropic.ToolParam{
		Name: t.Name,
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: schema.Properties,
			Required:   schema.Required,
		},
	}
	if t.Description != "" {
		param.Description = anthropic.String(t.Description)
	}
	if cache {
		param.CacheControl = anthropic.NewCacheControlEphemeralParam()
	}
	return anthropic.ToolUnionParam{OfTool: &param}
}

// MarshalTools renders every tool, marking only the last one when cache is set.
func MarshalTools(tools []*tool.Tool, cache bool) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		out[i] = MarshalTool(t, cache && i == len(tools)-1)
	}
	return out
}
