package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/samsaffron/minmax-code/internal/agent"
)

// SomethingElse is the option value that switches to free-text input.
const SomethingElse = "__something_else__"

// ErrAborted is returned when the user dismisses a question.
var ErrAborted = errors.New("question aborted")

// AskQuestions prompts for every question in batch and returns one answer
// per question.
func AskQuestions(ctx context.Context, batch agent.QuestionBatch) ([]string, error) {
	answers := make([]string, 0, len(batch))
	for _, q := range batch {
		answer, err := askOne(ctx, q)
		if err != nil {
			return nil, err
		}
		answers = append(answers, answer)
	}
	return answers, nil
}

func askOne(ctx context.Context, q agent.Question) (string, error) {
	if len(q.Options) > 0 {
		opts := huh.NewOptions(q.Options...)
		if q.AllowCustom {
			opts = append(opts, huh.NewOption("Something else...", SomethingElse))
		}
		var choice string
		sel := huh.NewSelect[string]().
			Title(q.Question).
			Options(opts...).
			Value(&choice)
		if q.Header != "" {
			sel = sel.Description(q.Header)
		}
		if err := runForm(ctx, huh.NewForm(huh.NewGroup(sel))); err != nil {
			return "", err
		}
		if choice != SomethingElse {
			return choice, nil
		}
	}

	var text string
	in := huh.NewInput().
		Title(q.Question).
		Value(&text)
	if q.Header != "" {
		in = in.Description(q.Header)
	}
	if err := runForm(ctx, huh.NewForm(huh.NewGroup(in))); err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func runForm(ctx context.Context, form *huh.Form) error {
	err := form.RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) || ctx.Err() != nil {
		return ErrAborted
	}
	return err
}
