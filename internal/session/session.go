// Package session holds the chat session controller: the draft, the
// transcript, the busy latch and the theme flag.
//
// The controller is not safe for concurrent mutation. Begin, Settle,
// UpdateDraft and ToggleTheme must run on one logical thread (the Bubble Tea
// update loop); Ask touches no state and may run anywhere.
package session

import (
	"context"
	"strings"

	"querychat/internal/answer"
	"querychat/internal/prefs"

	"github.com/rs/zerolog"
)

// FailureText is shown in place of an answer whenever a request fails.
const FailureText = "Üzgünüm, bir hata oluştu. Lütfen tekrar deneyin."

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. SQLQuery and SQLResult are empty when the
// reply carried none; user messages never set them or IsError.
type Message struct {
	Role      Role
	Text      string
	SQLQuery  string
	SQLResult string
	IsError   bool
}

func (m Message) HasSQL() bool {
	return m.Role == RoleAssistant && m.SQLQuery != ""
}

type State struct {
	Draft      string
	Transcript []Message
	Busy       bool
	DarkMode   bool
	Revision   uint64
}

// Asker is the remote answering collaborator.
type Asker interface {
	Ask(ctx context.Context, question string) (answer.Reply, error)
}

// Pending identifies the one in-flight submission.
type Pending struct {
	Question string
	seq      uint64
}

// Outcome is the settled result of a Pending request.
type Outcome struct {
	Pending Pending
	Reply   answer.Reply
	Err     error
}

type Controller struct {
	asker Asker
	store prefs.Store
	log   zerolog.Logger

	state State
	seq   uint64
}

// New reads the persisted theme once. A read failure is logged and the
// session starts in light mode.
func New(asker Asker, store prefs.Store, log zerolog.Logger) *Controller {
	c := &Controller{
		asker: asker,
		store: store,
		log:   log.With().Str("component", "session").Logger(),
	}
	dark, err := prefs.LoadDarkMode(store)
	if err != nil {
		c.log.Warn().Err(err).Msg("falling back to light theme")
	}
	c.state.DarkMode = dark
	return c
}

// State returns a copy that does not alias the transcript.
func (c *Controller) State() State {
	s := c.state
	s.Transcript = c.Transcript()
	return s
}

func (c *Controller) Transcript() []Message {
	out := make([]Message, len(c.state.Transcript))
	copy(out, c.state.Transcript)
	return out
}

func (c *Controller) Draft() string    { return c.state.Draft }
func (c *Controller) Busy() bool       { return c.state.Busy }
func (c *Controller) DarkMode() bool   { return c.state.DarkMode }
func (c *Controller) Revision() uint64 { return c.state.Revision }
func (c *Controller) Len() int         { return len(c.state.Transcript) }

// LastSQLQuery returns the newest generated query in the transcript.
func (c *Controller) LastSQLQuery() (string, bool) {
	for i := len(c.state.Transcript) - 1; i >= 0; i-- {
		if m := c.state.Transcript[i]; m.HasSQL() {
			return m.SQLQuery, true
		}
	}
	return "", false
}

func (c *Controller) UpdateDraft(text string) {
	if c.state.Draft == text {
		return
	}
	c.state.Draft = text
	c.touch()
}

// Begin starts a submission. It refuses blank text and refuses while another
// submission is in flight; in both cases nothing changes.
func (c *Controller) Begin(text string) (Pending, bool) {
	if strings.TrimSpace(text) == "" {
		return Pending{}, false
	}
	if c.state.Busy {
		c.log.Debug().Msg("submission rejected while busy")
		return Pending{}, false
	}

	c.seq++
	c.state.Transcript = append(c.state.Transcript, Message{Role: RoleUser, Text: text})
	c.state.Draft = ""
	c.state.Busy = true
	c.touch()
	return Pending{Question: text, seq: c.seq}, true
}

// Ask issues exactly one outbound call for p.
func (c *Controller) Ask(ctx context.Context, p Pending) Outcome {
	reply, err := c.asker.Ask(ctx, p.Question)
	return Outcome{Pending: p, Reply: reply, Err: err}
}

// Settle appends the assistant entry for o and returns the session to idle.
// Outcomes that do not belong to the in-flight request are dropped and Settle
// reports false.
func (c *Controller) Settle(o Outcome) bool {
	if !c.state.Busy || o.Pending.seq != c.seq {
		c.log.Warn().Uint64("seq", o.Pending.seq).Msg("dropping outcome for unknown request")
		return false
	}
	defer func() {
		c.state.Busy = false
		c.touch()
	}()

	if o.Err != nil {
		c.log.Error().Err(o.Err).Str("question", o.Pending.Question).Msg("answer request failed")
		c.state.Transcript = append(c.state.Transcript, Message{
			Role:    RoleAssistant,
			Text:    FailureText,
			IsError: true,
		})
		return true
	}

	c.log.Info().
		Str("question", o.Pending.Question).
		Bool("sql", o.Reply.SQLQuery != "").
		Msg("answer received")
	c.state.Transcript = append(c.state.Transcript, Message{
		Role:      RoleAssistant,
		Text:      o.Reply.Answer,
		SQLQuery:  o.Reply.SQLQuery,
		SQLResult: o.Reply.SQLResult,
	})
	return true
}

// SubmitQuestion runs a whole submission synchronously. It reports false when
// the submission was refused.
func (c *Controller) SubmitQuestion(ctx context.Context, text string) bool {
	p, ok := c.Begin(text)
	if !ok {
		return false
	}
	c.Settle(c.Ask(ctx, p))
	return true
}

// ToggleTheme flips and applies the theme, then persists it. A persist
// failure is returned but the flip stands for this session.
func (c *Controller) ToggleTheme() error {
	c.state.DarkMode = !c.state.DarkMode
	c.touch()
	if err := prefs.SaveDarkMode(c.store, c.state.DarkMode); err != nil {
		c.log.Error().Err(err).Msg("persist theme")
		return err
	}
	return nil
}

func (c *Controller) touch() {
	c.state.Revision++
}
