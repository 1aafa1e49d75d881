package model

import "encoding/json"

// Websocket protocol kinds. Requests and responses are correlated purely by
// kind; the payload embeds the conversation id where disambiguation matters.
const (
	WSGetMaxSeq     int32 = 1001
	WSPullMsgBySeqs int32 = 1002
	WSSendMsg       int32 = 1003
	WSPushMsg       int32 = 2001
	WSDataError     int32 = 3001
	WSTest          int32 = 4001
)

// Pull order for PullMessageBySeqs.
const (
	PullOrderAsc  int32 = 1
	PullOrderDesc int32 = 2
)

// WSRequest is the client→server frame envelope.
type WSRequest struct {
	ReqIdentifier int32 `json:"req_identifier"`
	Data          any   `json:"data"`
}

// WSResponse is the server→client frame envelope. Data stays raw until the
// kind-specific handler decodes it.
type WSResponse struct {
	ReqIdentifier int32           `json:"req_identifier"`
	Code          int             `json:"code"`
	Msg           string          `json:"msg"`
	Data          json.RawMessage `json:"data"`
}

// GetMaxSeqResp carries the per-conversation watermarks. Kind 1001 requests
// have a null payload.
type GetMaxSeqResp struct {
	MaxSeqs map[string]int64 `json:"max_seqs"`
	MinSeqs map[string]int64 `json:"min_seqs"`
}

// SeqRange asks for messages with Begin <= seq <= End, at most Num.
type SeqRange struct {
	ConversationID string `json:"conversation_id"`
	Begin          int64  `json:"begin"`
	End            int64  `json:"end"`
	Num            int64  `json:"num"`
}

type PullMessageBySeqsReq struct {
	SeqRanges []*SeqRange `json:"seq_ranges"`
	Order     int32       `json:"order"`
}

type PullMsgs struct {
	Msgs   []*Message `json:"msgs"`
	IsEnd  bool       `json:"is_end"`
	EndSeq int64      `json:"end_seq"`
}

type PullMessageBySeqsResp struct {
	Msgs             map[string]*PullMsgs `json:"msgs"`
	NotificationMsgs map[string]*PullMsgs `json:"notification_msgs,omitempty"`
}

// SendMessageReq is the kind 1003 payload. There is no synchronous response;
// the confirmation arrives as a kind 2001 push carrying the same
// client_msg_id.
type SendMessageReq struct {
	SenderID    string `json:"sender_id"`
	ConvType    int32  `json:"conv_type"`
	TargetID    string `json:"target_id"`
	MsgType     int32  `json:"msg_type"`
	Content     string `json:"content"`
	ClientMsgID string `json:"client_msg_id,omitempty"`
}
