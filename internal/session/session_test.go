package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"querychat/internal/answer"
	"querychat/internal/prefs"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeAsker struct {
	mu        sync.Mutex
	reply     answer.Reply
	err       error
	questions []string
}

func (f *fakeAsker) Ask(_ context.Context, q string) (answer.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions = append(f.questions, q)
	return f.reply, f.err
}

func (f *fakeAsker) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.questions)
}

func newController(t *testing.T, a Asker) (*Controller, *prefs.MemoryStore) {
	t.Helper()
	store := prefs.NewMemoryStore()
	return New(a, store, zerolog.Nop()), store
}

func TestSubmitQuestionSuccessScenario(t *testing.T) {
	a := &fakeAsker{reply: answer.Reply{
		Answer:    "42000",
		SQLQuery:  "SELECT SUM(revenue) FROM sales",
		SQLResult: "42000",
	}}
	c, _ := newController(t, a)

	require.True(t, c.SubmitQuestion(context.Background(), "What is the total revenue?"))

	want := []Message{
		{Role: RoleUser, Text: "What is the total revenue?"},
		{Role: RoleAssistant, Text: "42000", SQLQuery: "SELECT SUM(revenue) FROM sales", SQLResult: "42000"},
	}
	require.Equal(t, want, c.Transcript())
	require.False(t, c.Busy())
	require.Equal(t, []string{"What is the total revenue?"}, a.questions)
}

func TestSubmitQuestionFailureScenario(t *testing.T) {
	a := &fakeAsker{err: &answer.RequestFailure{Op: "post question", Err: errors.New("connection refused")}}
	c, _ := newController(t, a)

	require.True(t, c.SubmitQuestion(context.Background(), "bad"))

	want := []Message{
		{Role: RoleUser, Text: "bad"},
		{Role: RoleAssistant, Text: FailureText, IsError: true},
	}
	require.Equal(t, want, c.Transcript())
	require.False(t, c.Busy())
}

func TestSubmitQuestionBlankIsNoop(t *testing.T) {
	for _, in := range []string{"", " ", "\t\n  "} {
		a := &fakeAsker{}
		c, _ := newController(t, a)
		c.UpdateDraft(in)
		rev := c.Revision()

		require.False(t, c.SubmitQuestion(context.Background(), in))
		require.Empty(t, c.Transcript())
		require.Equal(t, 0, a.calls())
		require.False(t, c.Busy())
		require.Equal(t, in, c.Draft())
		require.Equal(t, rev, c.Revision())
	}
}

func TestBusyRejectsSecondSubmission(t *testing.T) {
	a := &fakeAsker{reply: answer.Reply{Answer: "ok"}}
	c, _ := newController(t, a)
	c.UpdateDraft("first")

	p, ok := c.Begin("first")
	require.True(t, ok)
	require.True(t, c.Busy())
	require.Empty(t, c.Draft())
	require.Len(t, c.Transcript(), 1)

	_, ok = c.Begin("second")
	require.False(t, ok)
	require.False(t, c.SubmitQuestion(context.Background(), "third"))
	require.Len(t, c.Transcript(), 1)
	require.Equal(t, 0, a.calls())
	require.True(t, c.Busy())

	c.Settle(c.Ask(context.Background(), p))
	require.False(t, c.Busy())
	require.Equal(t, 1, a.calls())
	require.Len(t, c.Transcript(), 2)

	_, ok = c.Begin("fourth")
	require.True(t, ok)
}

func TestDraftEditableWhileBusy(t *testing.T) {
	c, _ := newController(t, &fakeAsker{})
	_, ok := c.Begin("q")
	require.True(t, ok)

	c.UpdateDraft("next question")
	require.Equal(t, "next question", c.Draft())
	require.True(t, c.Busy())
}

func TestSettleIgnoresForeignOutcome(t *testing.T) {
	c, _ := newController(t, &fakeAsker{})

	require.False(t, c.Settle(Outcome{Reply: answer.Reply{Answer: "stray"}}))
	require.Empty(t, c.Transcript())

	p, ok := c.Begin("q")
	require.True(t, ok)
	require.False(t, c.Settle(Outcome{Pending: Pending{Question: "q", seq: p.seq + 7}, Err: errors.New("late")}))
	require.True(t, c.Busy())
	require.Len(t, c.Transcript(), 1)

	require.True(t, c.Settle(Outcome{Pending: p, Reply: answer.Reply{Answer: "a"}}))
	require.False(t, c.Busy())

	require.False(t, c.Settle(Outcome{Pending: p, Reply: answer.Reply{Answer: "again"}}))
	require.Len(t, c.Transcript(), 2)
}

func TestSubmitKeepsUntrimmedText(t *testing.T) {
	c, _ := newController(t, &fakeAsker{reply: answer.Reply{Answer: "a"}})
	require.True(t, c.SubmitQuestion(context.Background(), "  spaced  "))
	require.Equal(t, "  spaced  ", c.Transcript()[0].Text)
}

func TestTranscriptIsAppendOnly(t *testing.T) {
	a := &fakeAsker{reply: answer.Reply{Answer: "same"}}
	c, _ := newController(t, a)
	for i := 0; i < 3; i++ {
		require.True(t, c.SubmitQuestion(context.Background(), "same"))
	}
	got := c.Transcript()
	require.Len(t, got, 6)
	for i, m := range got {
		if i%2 == 0 {
			require.Equal(t, RoleUser, m.Role)
		} else {
			require.Equal(t, RoleAssistant, m.Role)
		}
	}

	got[0].Text = "mutated"
	require.Equal(t, "same", c.Transcript()[0].Text)
}

func TestToggleThemeDoubleToggleAndRestart(t *testing.T) {
	c, store := newController(t, &fakeAsker{})
	require.False(t, c.DarkMode())

	require.NoError(t, c.ToggleTheme())
	require.True(t, c.DarkMode())
	require.NoError(t, c.ToggleTheme())
	require.False(t, c.DarkMode())
	require.Equal(t, 2, store.Writes())

	require.NoError(t, c.ToggleTheme())
	restarted := New(&fakeAsker{}, store, zerolog.Nop())
	require.True(t, restarted.DarkMode())
}

type brokenStore struct{ prefs.MemoryStore }

func (*brokenStore) Set(string, string) error { return errors.New("read-only") }

func TestToggleThemePersistFailureKeepsFlip(t *testing.T) {
	c := New(&fakeAsker{}, &brokenStore{}, zerolog.Nop())
	err := c.ToggleTheme()
	require.Error(t, err)
	require.True(t, c.DarkMode())
}

func TestLastSQLQuery(t *testing.T) {
	a := &fakeAsker{reply: answer.Reply{Answer: "1", SQLQuery: "SELECT 1"}}
	c, _ := newController(t, a)

	_, ok := c.LastSQLQuery()
	require.False(t, ok)

	require.True(t, c.SubmitQuestion(context.Background(), "one"))
	a.reply = answer.Reply{Answer: "no sql"}
	require.True(t, c.SubmitQuestion(context.Background(), "two"))

	q, ok := c.LastSQLQuery()
	require.True(t, ok)
	require.Equal(t, "SELECT 1", q)
}
