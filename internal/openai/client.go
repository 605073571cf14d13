package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pathakanu/myAlarm/internal/notify"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client wraps the OpenAI SDK for composing alarm notifications.
type Client struct {
	apiKey string
	client *openai.Client
	model  openai.ChatModel
}

// New returns a client. Without apiKey it only offers the plain formatter.
func New(apiKey string) *Client {
	if apiKey == "" {
		return &Client{}
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Client{
		apiKey: apiKey,
		client: &client,
		model:  openai.ChatModelGPT4oMini,
	}
}

// FormatDueMessage renders evt as plain text: a header line and one line per link.
func FormatDueMessage(evt notify.DueEvent) string {
	var sb strings.Builder
	sb.WriteString("Alarm ")
	sb.WriteString(evt.Time)
	if note := strings.TrimSpace(evt.Note); note != "" {
		sb.WriteString(": ")
		sb.WriteString(note)
	}
	for _, link := range evt.Links {
		title := link.Title
		if title == "" {
			title = "(untitled)"
		}
		sb.WriteString(fmt.Sprintf("\n%s: %s", title, link.URL))
	}
	return sb.String()
}

// ComposeDueMessage asks the model for a one-sentence reminder and appends
// the links verbatim. Without a configured client it falls back to
// FormatDueMessage.
func (c *Client) ComposeDueMessage(ctx context.Context, evt notify.DueEvent) (string, error) {
	if c.client == nil || strings.TrimSpace(evt.Note) == "" {
		return FormatDueMessage(evt), nil
	}

	req := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String("You turn alarm notes into one short, friendly reminder sentence. Keep the original time."),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(fmt.Sprintf("Alarm time: %s\nNote: %s", evt.Time, evt.Note)),
					},
				},
			},
		},
		Temperature:         openai.Float(0.3),
		MaxCompletionTokens: openai.Int(60),
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return FormatDueMessage(evt), err
	}
	if len(resp.Choices) == 0 {
		return FormatDueMessage(evt), fmt.Errorf("no completion received")
	}

	sentence := strings.TrimSpace(resp.Choices[0].Message.Content)
	if sentence == "" {
		return FormatDueMessage(evt), nil
	}
	links := FormatDueMessage(notify.DueEvent{Links: evt.Links})
	if i := strings.IndexByte(links, '\n'); i >= 0 {
		return sentence + links[i:], nil
	}
	return sentence, nil
}

// Enabled reports whether requests reach the API.
func (c *Client) Enabled() bool {
	return c.client != nil
}
