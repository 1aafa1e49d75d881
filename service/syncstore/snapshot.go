package syncstore

import (
	"IMClient/module/chat/model"
)

// Messages returns a copy of the conversation log in seq order. Optimistic
// records keep their append position at the front of the seq ordering.
func (s *Store) Messages(conversationID string) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyMessages(conversationID)
}

// SnapshotOf returns the full read model of one conversation.
func (s *Store) SnapshotOf(conversationID string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ConversationID: conversationID,
		Messages:       s.copyMessages(conversationID),
		MaxSeq:         s.maxSeqs[conversationID],
		MinSeq:         s.minSeqs[conversationID],
	}
	if log := s.logs[conversationID]; log != nil {
		snap.Loading = log.loading
		snap.IsEnd = log.isEnd
	}
	return snap
}

// Conversations lists every conversation id the store knows about, from
// watermarks or held messages.
func (s *Store) Conversations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{}, len(s.maxSeqs)+len(s.logs))
	out := make([]string, 0, len(s.maxSeqs)+len(s.logs))
	for convID := range s.maxSeqs {
		if _, ok := seen[convID]; !ok {
			seen[convID] = struct{}{}
			out = append(out, convID)
		}
	}
	for convID := range s.logs {
		if _, ok := seen[convID]; !ok {
			seen[convID] = struct{}{}
			out = append(out, convID)
		}
	}
	return out
}

func (s *Store) MaxSeq(conversationID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxSeqs[conversationID]
}

func (s *Store) MinSeq(conversationID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minSeqs[conversationID]
}

func (s *Store) Loading(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if log := s.logs[conversationID]; log != nil {
		return log.loading
	}
	return false
}

func (s *Store) IsEnd(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if log := s.logs[conversationID]; log != nil {
		return log.isEnd
	}
	return false
}

func (s *Store) copyMessages(conversationID string) []model.Message {
	log := s.logs[conversationID]
	if log == nil || len(log.msgs) == 0 {
		return nil
	}
	out := make([]model.Message, len(log.msgs))
	for i, m := range log.msgs {
		out[i] = *m
	}
	return out
}
