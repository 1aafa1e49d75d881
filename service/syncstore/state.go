package syncstore

import (
	"sort"

	"IMClient/module/chat/model"
)

// convLog is the per-conversation message log plus its derived flags.
// Mutated only by the Store with its lock held.
type convLog struct {
	msgs    []*model.Message
	loading bool
	isEnd   bool
}

// sortBySeq re-sorts the log by seq ascending. The sort is stable so
// optimistic records (seq 0) keep their relative append order at the front
// and a freshly confirmed record stays where the replacement put it when
// seqs tie.
func (l *convLog) sortBySeq() {
	sort.SliceStable(l.msgs, func(i, j int) bool {
		return l.msgs[i].Seq < l.msgs[j].Seq
	})
}

// hasID reports whether any record carries the given permanent id.
func (l *convLog) hasID(id string) bool {
	for _, m := range l.msgs {
		if m.ID == id {
			return true
		}
	}
	return false
}

// indexByClientMsgID finds the record whose temporary id equals the
// correlation id, or -1.
func (l *convLog) indexByClientMsgID(clientMsgID string) int {
	for i, m := range l.msgs {
		if m.ClientMsgID == clientMsgID {
			return i
		}
	}
	return -1
}

// oldestSeq returns the lowest confirmed seq held, or 0 when the log holds
// no confirmed records.
func (l *convLog) oldestSeq() int64 {
	for _, m := range l.msgs {
		if m.Seq > 0 {
			return m.Seq
		}
	}
	return 0
}

// Snapshot is an immutable read model of one conversation, handed to the UI
// layer. All slices and records are copies; mutations flow back through the
// store's operations only.
type Snapshot struct {
	ConversationID string
	Messages       []model.Message
	MaxSeq         int64
	MinSeq         int64
	Loading        bool
	IsEnd          bool
}
