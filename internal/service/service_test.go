package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shank50/supportbotai/internal/adapter/llm"
	"github.com/shank50/supportbotai/internal/domain"
	"github.com/shank50/supportbotai/internal/faq"
	"github.com/shank50/supportbotai/internal/repository"
	"github.com/shank50/supportbotai/internal/responder"
	"github.com/shank50/supportbotai/policy"
	"github.com/shank50/supportbotai/tests/helpers"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.StreamEvent
}

func (n *recordingNotifier) Publish(sessionID string, event domain.StreamEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

type fixture struct {
	svc      *Service
	store    *helpers.FaultyStore
	client   llm.Client
	notifier *recordingNotifier
}

func newFixture(t *testing.T, client llm.Client) *fixture {
	t.Helper()
	return newFixtureWithTimeout(t, client, time.Second)
}

func newFixtureWithTimeout(t *testing.T, client llm.Client, timeout time.Duration) *fixture {
	t.Helper()
	return newFixtureWithStore(t, client, timeout, helpers.NewTestSQLiteStore(t))
}

func newFixtureWithStore(t *testing.T, client llm.Client, timeout time.Duration, base repository.Store) *fixture {
	t.Helper()
	ctx := context.Background()

	corpus, err := faq.Default()
	require.NoError(t, err)
	engine, err := policy.NewEngine(ctx, "", nil)
	require.NoError(t, err)

	store := helpers.NewFaultyStore(base)
	notifier := &recordingNotifier{}
	resp := responder.New(client, corpus, responder.Options{Timeout: timeout})
	svc := New(store, resp, engine, notifier, Options{MaxMessageLength: 100})
	return &fixture{svc: svc, store: store, client: client, notifier: notifier}
}

func (f *fixture) newSession(t *testing.T) string {
	t.Helper()
	session, err := f.svc.CreateSession(context.Background())
	require.NoError(t, err)
	return session.SessionID
}

func (f *fixture) messages(t *testing.T, sessionID string) []domain.Message {
	t.Helper()
	msgs, err := f.store.ListMessages(context.Background(), sessionID)
	require.NoError(t, err)
	return msgs
}

func (f *fixture) escalations(t *testing.T, sessionID string) []domain.Escalation {
	t.Helper()
	escs, err := f.store.ListEscalations(context.Background(), sessionID)
	require.NoError(t, err)
	return escs
}

func eventTypes(t *testing.T, store repository.Store, sessionID string) []domain.EventType {
	t.Helper()
	events, err := store.GetEvents(context.Background(), sessionID, 0, nil, 0)
	require.NoError(t, err)
	out := make([]domain.EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func TestProcessTurnAnswersFromFAQ(t *testing.T) {
	f := newFixture(t, llm.NewRepeatingClient(`{"message":"Use the Forgot password link.","shouldEscalate":false,"matchedFAQId":"faq-3","suggestedActions":["Open login page"]}`))
	ctx := context.Background()
	sid := f.newSession(t)

	res, err := f.svc.ProcessTurn(ctx, sid, "  How do I reset my password?  ")
	require.NoError(t, err)

	assert.Equal(t, domain.SenderUser, res.UserMessage.Sender)
	assert.Equal(t, "How do I reset my password?", res.UserMessage.Content)
	assert.Equal(t, domain.SenderBot, res.BotMessage.Sender)
	assert.Equal(t, "Use the Forgot password link.", res.BotMessage.Content)
	assert.False(t, res.ShouldEscalate)
	assert.Nil(t, res.Escalation)
	assert.False(t, res.BotMessage.CreatedAt.Before(res.UserMessage.CreatedAt))

	require.NotNil(t, res.BotMessage.Metadata)
	require.NotNil(t, res.BotMessage.Metadata.MatchedFAQ)
	assert.Equal(t, "faq-3", res.BotMessage.Metadata.MatchedFAQ.ID)
	assert.Equal(t, "How do I reset my password?", res.BotMessage.Metadata.MatchedFAQ.Question)
	assert.NotEmpty(t, res.BotMessage.Metadata.MatchedFAQ.Answer)
	assert.Equal(t, []string{"Open login page"}, res.BotMessage.Metadata.SuggestedActions)

	msgs := f.messages(t, sid)
	require.Len(t, msgs, 2)
	require.NotNil(t, msgs[1].Metadata.MatchedFAQ)
	assert.Equal(t, "How do I reset my password?", msgs[1].Metadata.MatchedFAQ.Question)
	assert.Empty(t, f.escalations(t, sid))

	assert.Equal(t, []domain.EventType{domain.EventTypeTurnStarted, domain.EventTypeAICallDone}, eventTypes(t, f.store, sid))
	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, sid, f.notifier.events[0].SessionID)
	assert.Equal(t, res, f.notifier.events[0].Turn)
}

func TestProcessTurnUnknownFAQIsAbsent(t *testing.T) {
	f := newFixture(t, llm.NewRepeatingClient(`{"message":"Hmm.","matchedFAQId":"faq-999"}`))
	sid := f.newSession(t)

	res, err := f.svc.ProcessTurn(context.Background(), sid, "something odd")
	require.NoError(t, err)
	require.NotNil(t, res.BotMessage.Metadata)
	assert.Nil(t, res.BotMessage.Metadata.MatchedFAQ)
	assert.Empty(t, res.BotMessage.Metadata.SuggestedActions)
}

func TestProcessTurnGrowsHistoryByTwo(t *testing.T) {
	f := newFixture(t, llm.NewRepeatingClient(`{"message":"ok"}`))
	ctx := context.Background()
	sid := f.newSession(t)

	for i := 1; i <= 4; i++ {
		_, err := f.svc.ProcessTurn(ctx, sid, fmt.Sprintf("question %d", i))
		require.NoError(t, err)

		msgs := f.messages(t, sid)
		require.Len(t, msgs, 2*i)
		for j := 1; j < len(msgs); j++ {
			assert.False(t, msgs[j].CreatedAt.Before(msgs[j-1].CreatedAt))
		}
	}
}

func TestProcessTurnEscalatesWithModelReason(t *testing.T) {
	f := newFixture(t, llm.NewRepeatingClient(`{"message":"Connecting you now.","shouldEscalate":true,"escalationReason":"Customer asked for a manager"}`))
	sid := f.newSession(t)

	res, err := f.svc.ProcessTurn(context.Background(), sid, "Get me a manager")
	require.NoError(t, err)
	assert.True(t, res.ShouldEscalate)
	require.NotNil(t, res.Escalation)
	assert.Equal(t, "Customer asked for a manager", res.Escalation.Reason)
	assert.False(t, res.Escalation.Resolved)

	escs := f.escalations(t, sid)
	require.Len(t, escs, 1)
	assert.Equal(t, "Customer asked for a manager", escs[0].Reason)
	assert.Contains(t, eventTypes(t, f.store, sid), domain.EventTypeEscalationCreated)
}

func TestProcessTurnEscalatesWithDefaultReason(t *testing.T) {
	f := newFixture(t, llm.NewRepeatingClient(`{"message":"Connecting you now.","shouldEscalate":true}`))
	sid := f.newSession(t)

	res, err := f.svc.ProcessTurn(context.Background(), sid, "human please")
	require.NoError(t, err)
	require.NotNil(t, res.Escalation)
	assert.Equal(t, policy.DefaultReason, res.Escalation.Reason)
}

func TestProcessTurnUnparseableReplyEscalates(t *testing.T) {
	f := newFixture(t, llm.NewRepeatingClient("Sorry, I can only answer in prose today."))
	sid := f.newSession(t)

	res, err := f.svc.ProcessTurn(context.Background(), sid, "hello")
	require.NoError(t, err)
	assert.Equal(t, responder.ParseFailureMessage, res.BotMessage.Content)
	assert.True(t, res.ShouldEscalate)
	require.NotNil(t, res.Escalation)
	assert.Equal(t, responder.ParseFailureReason, res.Escalation.Reason)
	assert.Len(t, f.messages(t, sid), 2)
	assert.Len(t, f.escalations(t, sid), 1)
}

func TestProcessTurnTimeoutAfterSevenPairs(t *testing.T) {
	client := llm.NewScriptedClient(llm.ScriptedStep{Reply: `{"message":"too late"}`, Delay: time.Second})
	f := newFixtureWithTimeout(t, client, 20*time.Millisecond)
	ctx := context.Background()
	sid := f.newSession(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 7; i++ {
		require.NoError(t, f.store.AppendMessage(ctx, &domain.Message{
			MessageID: fmt.Sprintf("u%d", i), SessionID: sid, Sender: domain.SenderUser,
			Content: fmt.Sprintf("user-%d", i), CreatedAt: base.Add(time.Duration(2*i) * time.Second),
		}))
		require.NoError(t, f.store.AppendMessage(ctx, &domain.Message{
			MessageID: fmt.Sprintf("b%d", i), SessionID: sid, Sender: domain.SenderBot,
			Content: fmt.Sprintf("bot-%d", i), CreatedAt: base.Add(time.Duration(2*i+1) * time.Second),
		}))
	}

	res, err := f.svc.ProcessTurn(ctx, sid, "are you there?")
	require.NoError(t, err)
	assert.Equal(t, responder.TechnicalErrorMessage, res.BotMessage.Content)
	assert.True(t, res.ShouldEscalate)
	require.NotNil(t, res.Escalation)
	assert.Equal(t, responder.TechnicalErrorReason, res.Escalation.Reason)
	assert.Len(t, f.escalations(t, sid), 1)
	assert.Len(t, f.messages(t, sid), 16)

	// The window is the six most recent messages, including this turn's.
	require.Equal(t, 1, client.Calls())
	prompt := client.Prompts()[0]
	assert.NotContains(t, prompt, "user-4")
	assert.Contains(t, prompt, "bot-4")
	assert.Contains(t, prompt, "user-6")
	assert.Contains(t, prompt, "user: are you there?")
}

func TestProcessTurnRejectsEmptyInput(t *testing.T) {
	client := llm.NewRepeatingClient(`{"message":"ok"}`)
	f := newFixture(t, client)
	sid := f.newSession(t)

	for _, text := range []string{"", "   \n\t"} {
		_, err := f.svc.ProcessTurn(context.Background(), sid, text)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}

	_, err := f.svc.ProcessTurn(context.Background(), sid, strings.Repeat("x", 101))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Empty(t, f.messages(t, sid))
	assert.Equal(t, 0, client.Calls())
}

func TestProcessTurnUnknownSession(t *testing.T) {
	client := llm.NewRepeatingClient(`{"message":"ok"}`)
	f := newFixture(t, client)

	_, err := f.svc.ProcessTurn(context.Background(), "missing", "hello")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, f.messages(t, "missing"))
	assert.Empty(t, eventTypes(t, f.store, "missing"))
	assert.Equal(t, 0, client.Calls())
}

func TestProcessTurnUserMessageFailure(t *testing.T) {
	client := llm.NewRepeatingClient(`{"message":"ok"}`)
	f := newFixture(t, client)
	sid := f.newSession(t)

	diskFull := errors.New("disk full")
	f.store.FailUserMessages(diskFull)

	_, err := f.svc.ProcessTurn(context.Background(), sid, "hello")
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorIs(t, err, diskFull)
	assert.Empty(t, f.messages(t, sid))
	assert.Equal(t, 0, client.Calls())
}

func TestProcessTurnTouchFailure(t *testing.T) {
	f := newFixture(t, llm.NewRepeatingClient(`{"message":"ok"}`))
	sid := f.newSession(t)
	f.store.FailTouch(errors.New("locked"))

	_, err := f.svc.ProcessTurn(context.Background(), sid, "hello")
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Empty(t, f.messages(t, sid))
}

func TestProcessTurnBotMessageFailureKeepsUserMessage(t *testing.T) {
	f := newFixture(t, llm.NewRepeatingClient(`{"message":"ok","shouldEscalate":true}`))
	sid := f.newSession(t)
	f.store.FailBotMessages(errors.New("disk full"))

	_, err := f.svc.ProcessTurn(context.Background(), sid, "hello")
	assert.ErrorIs(t, err, domain.ErrStorage)

	msgs := f.messages(t, sid)
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.SenderUser, msgs[0].Sender)
	assert.Empty(t, f.escalations(t, sid))
	assert.Contains(t, eventTypes(t, f.store, sid), domain.EventTypeTurnFailed)
	assert.Empty(t, f.notifier.events)
}

func TestProcessTurnEscalationFailureIsBestEffort(t *testing.T) {
	f := newFixture(t, llm.NewRepeatingClient(`{"message":"A human will follow up.","shouldEscalate":true,"escalationReason":"legal"}`))
	sid := f.newSession(t)
	f.store.FailEscalations(errors.New("constraint failed"))

	res, err := f.svc.ProcessTurn(context.Background(), sid, "I will call my lawyer")
	require.NoError(t, err)
	assert.True(t, res.ShouldEscalate)
	assert.True(t, res.EscalationFailed)
	assert.Nil(t, res.Escalation)
	assert.Len(t, f.messages(t, sid), 2)
	assert.Empty(t, f.escalations(t, sid))
	assert.Contains(t, eventTypes(t, f.store, sid), domain.EventTypeEscalationFailed)
}

func TestProcessTurnEventFailureDoesNotFailTurn(t *testing.T) {
	f := newFixture(t, llm.NewRepeatingClient(`{"message":"ok"}`))
	sid := f.newSession(t)
	f.store.FailEvents(errors.New("events table gone"))

	_, err := f.svc.ProcessTurn(context.Background(), sid, "hello")
	require.NoError(t, err)
	assert.Len(t, f.messages(t, sid), 2)
}

func TestProcessTurnTouchesSession(t *testing.T) {
	f := newFixture(t, llm.NewRepeatingClient(`{"message":"ok"}`))
	ctx := context.Background()
	sid := f.newSession(t)
	before, err := f.svc.GetSession(ctx, sid)
	require.NoError(t, err)

	res, err := f.svc.ProcessTurn(ctx, sid, "hello")
	require.NoError(t, err)

	after, err := f.svc.GetSession(ctx, sid)
	require.NoError(t, err)
	assert.False(t, after.LastActivityAt.Before(before.LastActivityAt))
	assert.True(t, after.LastActivityAt.Equal(res.UserMessage.CreatedAt))
}

func TestProcessTurnSerializesSameSession(t *testing.T) {
	f := newFixture(t, llm.NewRepeatingClient(`{"message":"ok"}`))
	ctx := context.Background()
	sid := f.newSession(t)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.ProcessTurn(ctx, sid, fmt.Sprintf("q%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	msgs := f.messages(t, sid)
	require.Len(t, msgs, 10)
	for i, m := range msgs {
		if i%2 == 0 {
			assert.Equal(t, domain.SenderUser, m.Sender, "message %d", i)
		} else {
			assert.Equal(t, domain.SenderBot, m.Sender, "message %d", i)
		}
	}
	assert.Equal(t, 0, f.svc.locks.len())
}

func TestProcessTurnConcurrentSessionsOnFileStore(t *testing.T) {
	client := llm.NewRepeatingClient(`{"message":"Connecting you now.","shouldEscalate":true,"escalationReason":"legal"}`)
	f := newFixtureWithStore(t, client, time.Second, helpers.NewTestFileSQLiteStore(t))
	ctx := context.Background()

	const sessions, turns = 8, 10
	sids := make([]string, sessions)
	for i := range sids {
		sids[i] = f.newSession(t)
	}

	var wg sync.WaitGroup
	for _, sid := range sids {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < turns; j++ {
				res, err := f.svc.ProcessTurn(ctx, sid, fmt.Sprintf("lawyer %d", j))
				if assert.NoError(t, err) {
					assert.False(t, res.EscalationFailed)
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 2*turns; j++ {
				_, err := f.svc.GetSnapshot(ctx, sid)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	for _, sid := range sids {
		assert.Len(t, f.messages(t, sid), 2*turns)
		assert.Len(t, f.escalations(t, sid), turns)
	}
}

func TestProcessTurnCompletesAfterCallerCancels(t *testing.T) {
	client := llm.NewScriptedClient(llm.ScriptedStep{Reply: `{"message":"Here is the answer."}`, Delay: 200 * time.Millisecond})
	f := newFixtureWithTimeout(t, client, time.Second)
	sid := f.newSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	defer cancel()

	res, err := f.svc.ProcessTurn(ctx, sid, "hello")
	require.NoError(t, err)
	assert.Equal(t, "Here is the answer.", res.BotMessage.Content)
	assert.Len(t, f.messages(t, sid), 2)
	assert.Equal(t, []domain.EventType{domain.EventTypeTurnStarted, domain.EventTypeAICallDone}, eventTypes(t, f.store, sid))
}

func TestProcessTurnCallerCancelDuringSlowModelEscalates(t *testing.T) {
	client := llm.NewScriptedClient(llm.ScriptedStep{Reply: `{"message":"too late"}`, Delay: time.Second})
	f := newFixtureWithTimeout(t, client, 100*time.Millisecond)
	sid := f.newSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	defer cancel()

	res, err := f.svc.ProcessTurn(ctx, sid, "hello")
	require.NoError(t, err)
	assert.Equal(t, responder.TechnicalErrorMessage, res.BotMessage.Content)
	require.NotNil(t, res.Escalation)
	assert.Equal(t, responder.TechnicalErrorReason, res.Escalation.Reason)
	assert.Len(t, f.messages(t, sid), 2)
	escs := f.escalations(t, sid)
	require.Len(t, escs, 1)
	assert.Equal(t, responder.TechnicalErrorReason, escs[0].Reason)
}

func TestGetSnapshot(t *testing.T) {
	f := newFixture(t, llm.NewScriptedClient(
		llm.ScriptedStep{Reply: `{"message":"first answer"}`},
		llm.ScriptedStep{Reply: `{"message":"handing off","shouldEscalate":true,"escalationReason":"angry"}`},
	))
	ctx := context.Background()
	sid := f.newSession(t)

	_, err := f.svc.ProcessTurn(ctx, sid, "hi")
	require.NoError(t, err)
	_, err = f.svc.ProcessTurn(ctx, sid, "this is useless")
	require.NoError(t, err)

	snap, err := f.svc.GetSnapshot(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, sid, snap.Session.SessionID)
	assert.Len(t, snap.Messages, 4)
	assert.Len(t, snap.Escalations, 1)
	require.Len(t, snap.Timeline, 5)

	kinds := make([]domain.EntryKind, 0, len(snap.Timeline))
	for _, e := range snap.Timeline {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []domain.EntryKind{
		domain.EntryKindMessage, domain.EntryKindMessage,
		domain.EntryKindMessage, domain.EntryKindMessage,
		domain.EntryKindEscalation,
	}, kinds)
	assert.Equal(t, "angry", snap.Timeline[4].Escalation.Reason)

	again, err := f.svc.GetSnapshot(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, snap.Timeline, again.Timeline)

	_, err = f.svc.GetSnapshot(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetSnapshotEmptySession(t *testing.T) {
	f := newFixture(t, llm.NewRepeatingClient(`{"message":"ok"}`))
	sid := f.newSession(t)

	snap, err := f.svc.GetSnapshot(context.Background(), sid)
	require.NoError(t, err)
	assert.NotNil(t, snap.Messages)
	assert.NotNil(t, snap.Escalations)
	assert.Empty(t, snap.Timeline)
}

func TestGetMessages(t *testing.T) {
	f := newFixture(t, llm.NewRepeatingClient(`{"message":"ok"}`))
	ctx := context.Background()
	sid := f.newSession(t)

	_, err := f.svc.ProcessTurn(ctx, sid, "  hello  ")
	require.NoError(t, err)

	msgs, err := f.svc.GetMessages(ctx, sid)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.SenderUser, msgs[0].Sender)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, domain.SenderBot, msgs[1].Sender)

	_, err = f.svc.GetMessages(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSummarize(t *testing.T) {
	f := newFixture(t, llm.NewScriptedClient(
		llm.ScriptedStep{Reply: `{"message":"Use the reset link."}`},
		llm.ScriptedStep{Reply: "The customer asked how to reset a password and was pointed to the reset link."},
	))
	ctx := context.Background()
	sid := f.newSession(t)

	summary, err := f.svc.Summarize(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, responder.NoMessagesSummary, summary)

	_, err = f.svc.ProcessTurn(ctx, sid, "reset password?")
	require.NoError(t, err)

	summary, err = f.svc.Summarize(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, "The customer asked how to reset a password and was pointed to the reset link.", summary)

	_, err = f.svc.Summarize(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAdminListings(t *testing.T) {
	f := newFixture(t, llm.NewRepeatingClient(`{"message":"handing off","shouldEscalate":true}`))
	ctx := context.Background()
	s1 := f.newSession(t)
	s2 := f.newSession(t)

	_, err := f.svc.ProcessTurn(ctx, s1, "help")
	require.NoError(t, err)
	_, err = f.svc.ProcessTurn(ctx, s2, "help")
	require.NoError(t, err)

	sessions, err := f.svc.ListSessions(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	escs, err := f.svc.ListEscalations(ctx, repository.EscalationFilter{})
	require.NoError(t, err)
	assert.Len(t, escs, 2)

	resolved := true
	escs, err = f.svc.ListEscalations(ctx, repository.EscalationFilter{Resolved: &resolved})
	require.NoError(t, err)
	assert.Empty(t, escs)
}

func TestGetSessionEvents(t *testing.T) {
	f := newFixture(t, llm.NewRepeatingClient(`{"message":"ok"}`))
	ctx := context.Background()
	sid := f.newSession(t)

	_, err := f.svc.ProcessTurn(ctx, sid, "hello")
	require.NoError(t, err)

	events, err := f.svc.GetSessionEvents(ctx, sid, 0, []string{string(domain.EventTypeAICallDone)}, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Contains(t, string(events[0].Payload), `"outcome":"ok"`)

	_, err = f.svc.GetSessionEvents(ctx, "missing", 0, nil, 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
