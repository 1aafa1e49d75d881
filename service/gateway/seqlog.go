package gateway

import (
	"sync"
	"time"

	"IMClient/module/chat/model"
	"IMClient/tools/ids"
)

// SeqLog is the gateway's in-memory message store: per conversation a
// gap-free seq-ordered log plus the min/max watermarks and the member set.
type SeqLog struct {
	mu      sync.RWMutex
	msgs    map[string][]*model.Message
	maxSeqs map[string]int64
	minSeqs map[string]int64
	members map[string]map[string]struct{}
}

func NewSeqLog() *SeqLog {
	return &SeqLog{
		msgs:    make(map[string][]*model.Message),
		maxSeqs: make(map[string]int64),
		minSeqs: make(map[string]int64),
		members: make(map[string]map[string]struct{}),
	}
}

// Append assigns the next seq and a permanent id, stores the message, and
// returns the stored record.
func (l *SeqLog) Append(req *model.SendMessageReq) *model.Message {
	convID := model.GetConversationID(req.ConvType, req.SenderID, req.TargetID)

	l.mu.Lock()
	defer l.mu.Unlock()

	seq := l.maxSeqs[convID] + 1
	l.maxSeqs[convID] = seq
	if l.minSeqs[convID] == 0 {
		l.minSeqs[convID] = 1
	}

	now := time.Now().UnixMilli()
	msg := &model.Message{
		ID:             ids.GenerateString(),
		ConversationID: convID,
		Seq:            seq,
		SenderID:       req.SenderID,
		ClientMsgID:    req.ClientMsgID,
		MsgType:        req.MsgType,
		Content:        req.Content,
		Status:         model.StatusSent,
		SendTime:       now,
		CreateTime:     now,
		ConvType:       req.ConvType,
		TargetID:       req.TargetID,
	}
	l.msgs[convID] = append(l.msgs[convID], msg)

	l.addMember(convID, req.SenderID)
	if req.ConvType == model.SingleChatType {
		l.addMember(convID, req.TargetID)
	}
	return msg
}

// JoinGroup adds a user to a group conversation's member set.
func (l *SeqLog) JoinGroup(userID, groupID string) {
	convID := model.GetConversationID(model.GroupChatType, userID, groupID)
	l.mu.Lock()
	l.addMember(convID, userID)
	l.mu.Unlock()
}

// Trim raises the conversation's retention floor: messages with seq below
// newMin are discarded.
func (l *SeqLog) Trim(convID string, newMin int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if newMin <= l.minSeqs[convID] {
		return
	}
	l.minSeqs[convID] = newMin
	kept := l.msgs[convID][:0]
	for _, m := range l.msgs[convID] {
		if m.Seq >= newMin {
			kept = append(kept, m)
		}
	}
	l.msgs[convID] = kept
}

// Range returns the stored messages with begin <= seq <= end (at most num),
// the end-of-history flag, and the lowest seq returned. The range is clamped
// to the retention floor; a page that reaches the floor reports isEnd.
func (l *SeqLog) Range(convID string, begin, end, num int64) (out []*model.Message, isEnd bool, endSeq int64) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	minSeq := l.minSeqs[convID]
	if minSeq == 0 {
		return nil, true, 0
	}
	if begin <= minSeq {
		begin = minSeq
		isEnd = true
	}
	for _, m := range l.msgs[convID] {
		if m.Seq < begin || m.Seq > end {
			continue
		}
		if num > 0 && int64(len(out)) >= num {
			break
		}
		if endSeq == 0 || m.Seq < endSeq {
			endSeq = m.Seq
		}
		cp := *m
		out = append(out, &cp)
	}
	return out, isEnd, endSeq
}

// Watermarks returns the max/min seq maps for every conversation the user
// belongs to. Conversations without messages are omitted.
func (l *SeqLog) Watermarks(userID string) (maxSeqs, minSeqs map[string]int64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	maxSeqs = make(map[string]int64)
	minSeqs = make(map[string]int64)
	for convID, members := range l.members {
		if _, ok := members[userID]; !ok {
			continue
		}
		if l.maxSeqs[convID] == 0 {
			continue
		}
		maxSeqs[convID] = l.maxSeqs[convID]
		minSeqs[convID] = l.minSeqs[convID]
	}
	return maxSeqs, minSeqs
}

// Members lists the users of a conversation.
func (l *SeqLog) Members(convID string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.members[convID]))
	for u := range l.members[convID] {
		out = append(out, u)
	}
	return out
}

func (l *SeqLog) addMember(convID, userID string) {
	m := l.members[convID]
	if m == nil {
		m = make(map[string]struct{})
		l.members[convID] = m
	}
	m[userID] = struct{}{}
}
