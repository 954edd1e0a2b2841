package agent

import (
	"strings"
	"sync"

	"github.com/samsaffron/minmax-code/internal/tools"
)

const (
	defaultQuestion = "What would you like to do?"

	answerCancelled  = "Cancelled by user"
	answerNoResponse = "No response (cancelled)"
)

// Question is one prompt shown to the user.
type Question struct {
	Header      string
	Question    string
	Options     []string
	AllowCustom bool
}

// QuestionBatch is the ordered set of questions from one ask_user call.
type QuestionBatch []Question

// questionsFromArgs builds the batch for an ask_user call, applying the
// defaults for missing fields.
func questionsFromArgs(a tools.AskUserArgs) QuestionBatch {
	if len(a.Questions) > 0 {
		batch := make(QuestionBatch, 0, len(a.Questions))
		for _, q := range a.Questions {
			batch = append(batch, newQuestion(q.Header, q.Question, q.Options, q.AllowCustom))
		}
		return batch
	}
	return QuestionBatch{newQuestion(a.Header, a.Question, a.Options, a.AllowCustom)}
}

func newQuestion(header, text string, options []string, allowCustom *bool) Question {
	q := Question{
		Header:      header,
		Question:    strings.TrimSpace(text),
		Options:     options,
		AllowCustom: true,
	}
	if q.Question == "" {
		q.Question = defaultQuestion
	}
	if allowCustom != nil {
		q.AllowCustom = *allowCustom
	}
	if len(q.Options) == 0 {
		q.AllowCustom = true
	}
	return q
}

// formatAnswers renders answers for the tool result and the UI.
func (b QuestionBatch) formatAnswers(answers []string) string {
	if len(b) <= 1 {
		if len(answers) == 0 {
			return ""
		}
		return answers[0]
	}
	var sb strings.Builder
	for i, q := range b {
		label := q.Header
		if label == "" {
			label = q.Question
		}
		answer := ""
		if i < len(answers) {
			answer = answers[i]
		}
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(label + ": " + answer)
	}
	return sb.String()
}

// Reply is a single-use channel for answering an AskUser event. The first
// call to Answer or Cancel wins; later calls are ignored.
type Reply struct {
	ch   chan []string
	once sync.Once
}

// NewReply returns an unanswered Reply.
func NewReply() *Reply {
	return &Reply{ch: make(chan []string, 1)}
}

// Answer delivers one answer per question. It reports whether the answer
// was accepted.
func (r *Reply) Answer(answers ...string) bool {
	accepted := false
	r.once.Do(func() {
		r.ch <- answers
		accepted = true
	})
	return accepted
}

// Cancel abandons the question. The loop records a no-response answer.
func (r *Reply) Cancel() {
	r.once.Do(func() {
		close(r.ch)
	})
}
