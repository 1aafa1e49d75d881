package syncstore

import (
	"encoding/json"
	"sync"
	"time"

	"IMClient/logger"
	"IMClient/module/chat/model"
	"IMClient/service/transport"
	"IMClient/tools/errs"
	"IMClient/tools/ids"
)

// Conn is the transport surface the store depends on.
type Conn interface {
	Send(data any) error
	Subscribe(kind int32, fn transport.Handler) (unsubscribe func())
	OnStateChange(fn transport.StateHandler) (unsubscribe func())
}

// Options configures a Store.
type Options struct {
	UserID    string
	PullCount int64 // default page size for LoadMore, default 20
}

const defaultPullCount = 20

// Store keeps the per-conversation message logs consistent with the
// server-authoritative seq-numbered log. It owns all sync state; the UI
// reads snapshots and drives it through Send/LoadMore only.
type Store struct {
	conn      Conn
	userID    string
	pullCount int64

	mu      sync.Mutex
	logs    map[string]*convLog
	maxSeqs map[string]int64
	minSeqs map[string]int64

	cbMu         sync.RWMutex
	onNewMessage func(msg *model.Message)

	unsubs   []func()
	attached bool
}

func New(conn Conn, opts Options) *Store {
	if opts.PullCount <= 0 {
		opts.PullCount = defaultPullCount
	}
	return &Store{
		conn:      conn,
		userID:    opts.UserID,
		pullCount: opts.PullCount,
		logs:      make(map[string]*convLog),
		maxSeqs:   make(map[string]int64),
		minSeqs:   make(map[string]int64),
	}
}

// Attach subscribes the store to the protocol kinds and arms the
// fetch-watermarks-on-open trigger. Idempotent.
func (s *Store) Attach() {
	s.mu.Lock()
	if s.attached {
		s.mu.Unlock()
		return
	}
	s.attached = true
	s.mu.Unlock()

	unsubs := []func(){
		s.conn.Subscribe(model.WSGetMaxSeq, s.onMaxSeqResp),
		s.conn.Subscribe(model.WSPullMsgBySeqs, s.onPullResp),
		s.conn.Subscribe(model.WSPushMsg, s.onPush),
		s.conn.OnStateChange(func(state transport.State) {
			if state != transport.StateOpen {
				return
			}
			if err := s.FetchMaxSeq(); err != nil {
				logger.Warnf("[syncstore] fetch watermarks on open: %v", err)
			}
		}),
	}

	s.mu.Lock()
	s.unsubs = unsubs
	s.mu.Unlock()
}

// Detach removes all transport subscriptions. The accumulated state stays
// readable.
func (s *Store) Detach() {
	s.mu.Lock()
	if !s.attached {
		s.mu.Unlock()
		return
	}
	s.attached = false
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
}

// SetOnNewMessage installs the callback fired for every pushed message after
// it has been merged into the log.
func (s *Store) SetOnNewMessage(fn func(msg *model.Message)) {
	s.cbMu.Lock()
	s.onNewMessage = fn
	s.cbMu.Unlock()
}

// FetchMaxSeq requests the per-conversation watermarks. Issued automatically
// each time the connection reaches open.
func (s *Store) FetchMaxSeq() error {
	return s.conn.Send(&model.WSRequest{
		ReqIdentifier: model.WSGetMaxSeq,
		Data:          nil,
	})
}

// LoadMore pulls one page of history older than anything held locally, or
// the most recent page when the local log is empty. A no-op once the
// beginning of the retained history was reached. Callers must not overlap
// calls for the same conversation; the Loading flag is theirs to check.
func (s *Store) LoadMore(conversationID string, count int64) error {
	if conversationID == "" {
		return errs.ErrArgs.WrapMsg("empty conversation id")
	}
	if count <= 0 {
		count = s.pullCount
	}

	s.mu.Lock()
	log := s.logs[conversationID]
	if log != nil && log.isEnd {
		s.mu.Unlock()
		return nil
	}

	var begin, end int64
	if log == nil || log.oldestSeq() == 0 {
		maxSeq := s.maxSeqs[conversationID]
		if maxSeq == 0 {
			s.mu.Unlock()
			logger.Warnf("[syncstore] no max seq for %s, nothing to load", conversationID)
			return nil
		}
		begin = max64(1, maxSeq-count+1)
		end = maxSeq
	} else {
		oldest := log.oldestSeq()
		begin = max64(1, oldest-count)
		end = oldest - 1
		if end < begin {
			// already holding seq 1, nothing older can exist
			log.isEnd = true
			s.mu.Unlock()
			return nil
		}
	}
	s.ensureLog(conversationID).loading = true
	s.mu.Unlock()

	err := s.conn.Send(&model.WSRequest{
		ReqIdentifier: model.WSPullMsgBySeqs,
		Data: &model.PullMessageBySeqsReq{
			SeqRanges: []*model.SeqRange{{
				ConversationID: conversationID,
				Begin:          begin,
				End:            end,
				Num:            count,
			}},
			Order: model.PullOrderAsc,
		},
	})
	if err != nil {
		s.mu.Lock()
		s.ensureLog(conversationID).loading = false
		s.mu.Unlock()
		return err
	}
	return nil
}

// Send appends an optimistic record to the conversation log and hands the
// request to the transport. It returns the generated client correlation id
// either way; on error the caller decides whether to MarkFailed the record,
// keeping UI retry logic explicit.
func (s *Store) Send(req *model.SendMessageReq, conversationID string) (clientMsgID string, err error) {
	if req == nil {
		return "", errs.ErrArgs.WrapMsg("nil send request")
	}
	if req.SenderID == "" {
		req.SenderID = s.userID
	}
	clientMsgID = ids.GenerateClientMsgID()
	now := time.Now().UnixMilli()

	optimistic := &model.Message{
		ID:             clientMsgID,
		ConversationID: conversationID,
		Seq:            0,
		SenderID:       req.SenderID,
		ClientMsgID:    clientMsgID,
		MsgType:        req.MsgType,
		Content:        req.Content,
		Status:         model.StatusSending,
		SendTime:       now,
		CreateTime:     now,
		ConvType:       req.ConvType,
		TargetID:       req.TargetID,
	}

	s.mu.Lock()
	log := s.ensureLog(conversationID)
	log.msgs = append(log.msgs, optimistic)
	s.mu.Unlock()

	wire := *req
	wire.ClientMsgID = clientMsgID
	err = s.conn.Send(&model.WSRequest{
		ReqIdentifier: model.WSSendMsg,
		Data:          &wire,
	})
	return clientMsgID, err
}

// MarkFailed flips an optimistic record to the failed status. The record is
// retained for manual resend; resending is a fresh Send call with a new
// correlation id.
func (s *Store) MarkFailed(conversationID, clientMsgID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := s.logs[conversationID]
	if log == nil {
		return false
	}
	i := log.indexByClientMsgID(clientMsgID)
	if i < 0 || log.msgs[i].Status != model.StatusSending {
		return false
	}
	log.msgs[i].Status = model.StatusFailed
	return true
}

// MarkRead flips confirmed records up to and including upToSeq from sent to
// read, returning how many records changed. Local bookkeeping only.
func (s *Store) MarkRead(conversationID string, upToSeq int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := s.logs[conversationID]
	if log == nil {
		return 0
	}
	n := 0
	for _, m := range log.msgs {
		if m.Seq == 0 || m.Seq > upToSeq {
			continue
		}
		if m.Status == model.StatusSent {
			m.Status = model.StatusRead
			n++
		}
	}
	return n
}

// onMaxSeqResp merges the watermark response. Conversations absent from the
// response are left untouched, and known watermarks only ever move forward,
// so an unrelated or stale refresh cannot erase state.
func (s *Store) onMaxSeqResp(resp *model.WSResponse) {
	if resp.Code != 0 {
		logger.Warnf("[syncstore] get max seq failed: code=%d msg=%s", resp.Code, resp.Msg)
		return
	}
	var data model.GetMaxSeqResp
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		logger.Warnf("[syncstore] bad max seq payload: %v", err)
		return
	}

	s.mu.Lock()
	for convID, seq := range data.MaxSeqs {
		if seq > s.maxSeqs[convID] {
			s.maxSeqs[convID] = seq
		}
	}
	for convID, seq := range data.MinSeqs {
		s.minSeqs[convID] = seq
	}
	s.mu.Unlock()
}

// onPullResp merges a history page: id-based dedup, append, re-sort by seq,
// then adopt the response's isEnd flag and clear loading.
func (s *Store) onPullResp(resp *model.WSResponse) {
	if resp.Code != 0 {
		logger.Warnf("[syncstore] pull failed: code=%d msg=%s", resp.Code, resp.Msg)
		// An error frame does not echo the requested ranges, so there is no
		// way to tell which in-flight pull it answers. Clearing every loading
		// flag can unblock an unrelated pull early; the id-dedup merge keeps
		// an overlapping re-pull harmless.
		s.mu.Lock()
		for _, log := range s.logs {
			log.loading = false
		}
		s.mu.Unlock()
		return
	}
	var data model.PullMessageBySeqsResp
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		logger.Warnf("[syncstore] bad pull payload: %v", err)
		return
	}

	s.mu.Lock()
	for convID, pulled := range data.Msgs {
		log := s.ensureLog(convID)
		for _, m := range pulled.Msgs {
			if m.ID == "" || log.hasID(m.ID) {
				continue
			}
			normalizeStatus(m)
			log.msgs = append(log.msgs, m)
		}
		log.sortBySeq()
		log.isEnd = pulled.IsEnd
		log.loading = false
	}
	s.mu.Unlock()
}

// onPush reconciles one pushed record, whatever its origin. A push carrying
// a known correlation id replaces the optimistic record in its log slot
// rather than being appended, so the UI never sees a duplicate or a reorder
// flash. The watermark self-heals from pushed seqs.
func (s *Store) onPush(resp *model.WSResponse) {
	var msg model.Message
	if err := json.Unmarshal(resp.Data, &msg); err != nil {
		logger.Warnf("[syncstore] bad push payload: %v", err)
		return
	}
	if msg.ConversationID == "" {
		logger.Warnf("[syncstore] drop push without conversation id")
		return
	}

	s.mu.Lock()
	log := s.ensureLog(msg.ConversationID)

	if msg.ClientMsgID != "" {
		if i := log.indexByClientMsgID(msg.ClientMsgID); i >= 0 {
			confirmed := msg
			confirmed.Status = model.StatusSent
			log.msgs[i] = &confirmed
		} else {
			// confirmation without a local counterpart, e.g. state was
			// flushed between send and push
			appended := msg
			appended.Status = model.StatusSent
			log.msgs = append(log.msgs, &appended)
		}
	} else if !log.hasID(msg.ID) {
		appended := msg
		normalizeStatus(&appended)
		log.msgs = append(log.msgs, &appended)
	}

	log.sortBySeq()
	if msg.Seq > s.maxSeqs[msg.ConversationID] {
		s.maxSeqs[msg.ConversationID] = msg.Seq
	}
	s.mu.Unlock()

	s.cbMu.RLock()
	cb := s.onNewMessage
	s.cbMu.RUnlock()
	if cb != nil {
		cb(&msg)
	}
}

func (s *Store) ensureLog(conversationID string) *convLog {
	log := s.logs[conversationID]
	if log == nil {
		log = &convLog{}
		s.logs[conversationID] = log
	}
	return log
}

// normalizeStatus maps the server's zero "normal" status onto the client
// sent state so confirmed records never look optimistic.
func normalizeStatus(m *model.Message) {
	if m.Status == 0 {
		m.Status = model.StatusSent
	}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
