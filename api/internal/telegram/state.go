package telegram

import "sync"

// chatState tracks chats with an analysis in flight so a second upload does
// not start a parallel run for the same chat.
type chatState struct {
	busy sync.Map // chatID -> struct{}
}

func (s *chatState) tryStart(chatID int64) bool {
	_, loaded := s.busy.LoadOrStore(chatID, struct{}{})
	return !loaded
}

func (s *chatState) done(chatID int64) { s.busy.Delete(chatID) }
