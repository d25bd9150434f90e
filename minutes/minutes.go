// Package minutes turns a labeled transcript into meeting minutes with a
// chat completion model.
package minutes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	DefaultModel     = "gpt-3.5-turbo"
	DefaultMaxTokens = 1000
	DefaultLanguage  = "english"
)

// Generator produces minutes for a rendered transcript.
type Generator interface {
	Generate(ctx context.Context, transcript string) (string, error)
}

type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	Language  string
	MaxTokens int
	// Now stamps the prompt with today's date; nil means time.Now.
	Now func() time.Time
}

// OpenAI is a [Generator] backed by the OpenAI chat completions API or a
// compatible endpoint.
type OpenAI struct {
	client openai.Client
	cfg    Config
}

func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("minutes: missing api key")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{client: openai.NewClient(opts...), cfg: cfg}, nil
}

func (g *OpenAI) Generate(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", errors.New("minutes: empty transcript")
	}
	params := openai.ChatCompletionNewParams{
		Model:     g.cfg.Model,
		Messages:  []openai.ChatCompletionMessageParamUnion{openai.UserMessage(Prompt(transcript, g.cfg.Language, g.cfg.Now()))},
		MaxTokens: openai.Int(int64(g.cfg.MaxTokens)),
	}
	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Prompt builds the minutes request for transcript, dated day.
func Prompt(transcript, language string, day time.Time) string {
	var b strings.Builder
	b.WriteString("Imagine you are a MoM generator from the following transcript. ")
	b.WriteString("Take the below conversation from a meeting and generate the minutes of the meeting ")
	b.WriteString("and create a detailed table containing the list of tasks assigned to each person, ")
	b.WriteString("the status of each task, and the deadlines. Write dates as well in the output table. ")
	fmt.Fprintf(&b, "Today is %s. Identify the speaker names from the meeting transcript. ", day.Format("02-01-2006"))
	fmt.Fprintf(&b, "Generate the Minutes of Meeting in %s only.\n\n", language)
	b.WriteString(transcript)
	return b.String()
}
