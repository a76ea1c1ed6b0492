package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/segmentio/encoding/json"
)

// Envelope is the only result shape a tool returns. Content is set only on
// success and Error only on failure.
type Envelope struct {
	Success bool            `json:"success"`
	Content json.RawMessage `json:"content,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Succeed encodes v compactly into a success envelope. Map keys are sorted,
// so equal values always encode to equal bytes.
func Succeed(v any) (Envelope, error) {
	content, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Success: true, Content: content}, nil
}

// Fail builds a failure envelope carrying msg.
func Fail(msg string) Envelope {
	return Envelope{Error: msg}
}

// CallToolResult renders the envelope as a single text content block.
func (e Envelope) CallToolResult() *mcp.CallToolResult {
	text, err := json.Marshal(e)
	if err != nil {
		text = []byte(`{"success":false,"error":"failed to encode result"}`)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(text)}},
		IsError: !e.Success,
	}
}
