package helpers

import (
	"context"
	"sync"
	"time"

	"github.com/shank50/supportbotai/internal/domain"
	"github.com/shank50/supportbotai/internal/repository"
)

// FaultyStore wraps a Store and injects write failures on demand.
type FaultyStore struct {
	repository.Store

	mu             sync.Mutex
	failUserMsg    error
	failBotMsg     error
	failEscalation error
	failTouch      error
	failEvents     error
}

// NewFaultyStore wraps store.
func NewFaultyStore(store repository.Store) *FaultyStore {
	return &FaultyStore{Store: store}
}

// FailUserMessages makes AppendMessage return err for user messages.
func (f *FaultyStore) FailUserMessages(err error) { f.set(&f.failUserMsg, err) }

// FailBotMessages makes AppendMessage return err for bot messages.
func (f *FaultyStore) FailBotMessages(err error) { f.set(&f.failBotMsg, err) }

// FailEscalations makes AppendEscalation return err.
func (f *FaultyStore) FailEscalations(err error) { f.set(&f.failEscalation, err) }

// FailTouch makes TouchSession return err.
func (f *FaultyStore) FailTouch(err error) { f.set(&f.failTouch, err) }

// FailEvents makes CreateEvent return err.
func (f *FaultyStore) FailEvents(err error) { f.set(&f.failEvents, err) }

func (f *FaultyStore) set(field *error, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	*field = err
}

func (f *FaultyStore) get(field *error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *field
}

func (f *FaultyStore) AppendMessage(ctx context.Context, message *domain.Message) error {
	if message.Sender == domain.SenderUser {
		if err := f.get(&f.failUserMsg); err != nil {
			return err
		}
	} else if err := f.get(&f.failBotMsg); err != nil {
		return err
	}
	return f.Store.AppendMessage(ctx, message)
}

func (f *FaultyStore) AppendEscalation(ctx context.Context, escalation *domain.Escalation) error {
	if err := f.get(&f.failEscalation); err != nil {
		return err
	}
	return f.Store.AppendEscalation(ctx, escalation)
}

func (f *FaultyStore) TouchSession(ctx context.Context, sessionID string, at time.Time) error {
	if err := f.get(&f.failTouch); err != nil {
		return err
	}
	return f.Store.TouchSession(ctx, sessionID, at)
}

func (f *FaultyStore) CreateEvent(ctx context.Context, event *domain.Event) error {
	if err := f.get(&f.failEvents); err != nil {
		return err
	}
	return f.Store.CreateEvent(ctx, event)
}
