package model

// Conversation kinds.
const (
	SingleChatType int32 = 1
	GroupChatType  int32 = 2
)

// Message content kinds.
const (
	MsgTypeText  int32 = 1
	MsgTypeImage int32 = 2
	MsgTypeAudio int32 = 3
	MsgTypeVideo int32 = 4
	MsgTypeFile  int32 = 5
)

// Message statuses. A locally originated message starts as Sending and is
// flipped to Sent when the confirming push arrives, or to Failed by the
// caller when the send could not be handed to the transport. Failed messages
// stay in the log for manual resend.
const (
	StatusSending int32 = 1
	StatusSent    int32 = 2
	StatusFailed  int32 = 3
	StatusRead    int32 = 4
)

// Message is one record in a conversation log.
//
// ID is the server-assigned message id (snowflake, string-encoded on the
// wire). Before confirmation an optimistic record uses its ClientMsgID as
// the ID and Seq 0; callers must rely on Status, not Seq, to detect
// unconfirmed records.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Seq            int64  `json:"seq"`
	SenderID       string `json:"sender_id"`
	ClientMsgID    string `json:"client_msg_id,omitempty"`
	MsgType        int32  `json:"msg_type"`
	Content        string `json:"content"`
	RefMsgID       string `json:"ref_msg_id,omitempty"`
	Status         int32  `json:"status"`
	SendTime       int64  `json:"send_time"`
	CreateTime     int64  `json:"create_time"`
	ConvType       int32  `json:"conv_type"`
	TargetID       string `json:"target_id"`
}

// IsOptimistic reports whether the record has not been confirmed by the
// server yet.
func (m *Message) IsOptimistic() bool {
	return m.Status == StatusSending
}
