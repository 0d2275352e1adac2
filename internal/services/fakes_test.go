package services

import (
	"context"
	"sync"

	"github.com/tbourn/go-notify-bot/internal/domain"
)

// ----- Fake transport -----

type sentMsg struct {
	chatID string
	text   string
}

type editCall struct {
	chatID    string
	messageID int
	text      string
}

type fakeTransport struct {
	mu sync.Mutex

	nextID  int
	sendErr error
	sent    []sentMsg

	edits      []editCall
	editErrAt  int // 1-based edit call index that fails; 0 = never
	editErr    error
	deletes    []int
	deleteErrs map[int]error // messageID -> error
}

func (f *fakeTransport) Send(ctx context.Context, chatID, text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.nextID++
	f.sent = append(f.sent, sentMsg{chatID: chatID, text: text})
	return f.nextID, nil
}

func (f *fakeTransport) Edit(ctx context.Context, chatID string, messageID int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, editCall{chatID: chatID, messageID: messageID, text: text})
	if f.editErrAt > 0 && len(f.edits) >= f.editErrAt {
		return f.editErr
	}
	return nil
}

func (f *fakeTransport) Delete(ctx context.Context, chatID string, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, messageID)
	if err, ok := f.deleteErrs[messageID]; ok {
		return err
	}
	return nil
}

// ----- Fake store -----

type fakeStore struct {
	mu sync.Mutex

	records []domain.Notification

	addErr    error
	listErr   error
	deleteErr error

	addCalls    int
	deleteCalls int
}

func (f *fakeStore) Add(ctx context.Context, chatID string, messageID int, command string, deviceName, osName *string, status domain.Status) (*domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls++
	if f.addErr != nil {
		return nil, f.addErr
	}
	n := domain.Notification{
		ID:         int64(len(f.records) + 1),
		ChatID:     chatID,
		MessageID:  messageID,
		Command:    command,
		DeviceName: deviceName,
		OSName:     osName,
		Status:     status,
	}
	f.records = append(f.records, n)
	return &n, nil
}

func (f *fakeStore) ListForChat(ctx context.Context, chatID string, limit int) ([]domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Notification
	for _, n := range f.records {
		if n.ChatID == chatID {
			out = append(out, n)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteForChat(ctx context.Context, chatID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	var kept []domain.Notification
	var removed int64
	for _, n := range f.records {
		if n.ChatID == chatID {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	f.records = kept
	return removed, nil
}

func (f *fakeStore) countFor(chatID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := 0
	for _, n := range f.records {
		if n.ChatID == chatID {
			c++
		}
	}
	return c
}
