package gemini

import (
	"context"
	"testing"

	"google.golang.org/genai"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", `{"entities":[]}`, `{"entities":[]}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n[1,2]\n```", `[1,2]`},
		{"whitespace", "  {}  \n", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.raw); got != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			nil,
			{Content: &genai.Content{Parts: []*genai.Part{{Text: " first "}, nil, {Text: ""}}}},
			{Content: &genai.Content{Parts: []*genai.Part{{Text: "second"}}}},
		},
	}

	got, err := responseText(resp)
	if err != nil {
		t.Fatalf("responseText() error = %v", err)
	}
	if got != "first\nsecond" {
		t.Errorf("responseText() = %q", got)
	}

	if _, err := responseText(&genai.GenerateContentResponse{}); err == nil {
		t.Error("expected error for empty response")
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(context.Background(), "  ", "", ""); err == nil {
		t.Fatal("expected error for blank api key")
	}
}

func TestNilClient(t *testing.T) {
	var c *Client
	if _, err := c.GenerateContent(context.Background(), "hi"); err == nil {
		t.Error("expected error from nil client")
	}
	if _, err := c.Embed(context.Background(), []string{"x"}); err == nil {
		t.Error("expected error from nil client")
	}
	if c.Model() != "" {
		t.Error("nil client should report empty model")
	}
}
