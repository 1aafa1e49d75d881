package gateway

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"IMClient/logger"
	"IMClient/module/chat/model"
	"IMClient/tools/errs"
	"IMClient/tools/security"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const sendQueueSize = 64

// Server is an in-memory reference gateway speaking the client protocol:
// kinds 1001/1002/1003 inbound, 2001 pushed. It backs the integration tests
// and local development; it is not a production message server.
type Server struct {
	jwtOpts security.Options
	reg     *Registry
	log     *SeqLog
}

func NewServer(secret []byte) *Server {
	return &Server{
		jwtOpts: security.DefaultOptions(secret),
		reg:     NewRegistry(),
		log:     NewSeqLog(),
	}
}

// Log exposes the backing store so tests and dev tooling can seed history.
func (s *Server) Log() *SeqLog { return s.log }

// Router builds the HTTP surface: GET /ws?token=...&sendId=...
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/ws", s.HandleWS)
	return r
}

func (s *Server) HandleWS(c *gin.Context) {
	token := c.Query("token")
	sendID := c.Query("sendId")
	if token == "" || sendID == "" {
		c.JSON(http.StatusUnauthorized, errs.ErrTokenInvalid)
		return
	}
	userID, err := security.Verify(s.jwtOpts, token)
	if err != nil {
		logger.Warnf("[gateway] reject token for sendId=%s: %v", sendID, err)
		c.JSON(http.StatusUnauthorized, errs.ErrTokenInvalid)
		return
	}
	if userID != sendID {
		c.JSON(http.StatusUnauthorized, errs.ErrTokenInvalid.WithDetail("token subject mismatch"))
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("[gateway] upgrade failed: %v", err)
		return
	}

	cn := newConn(sendID, ws, sendQueueSize)
	s.reg.add(cn)
	logger.Infof("[gateway] user=%s connected conn=%s", sendID, cn.id)

	defer func() {
		s.reg.remove(cn)
		logger.Infof("[gateway] user=%s disconnected conn=%s", sendID, cn.id)
	}()

	for {
		mt, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[gateway] peer closed conn=%s", cn.id)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("[gateway] read timeout conn=%s: %v", cn.id, err)
			} else {
				logger.Warnf("[gateway] read error conn=%s: %v", cn.id, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		s.handleFrame(cn, raw)
	}
}

type inboundReq struct {
	ReqIdentifier int32           `json:"req_identifier"`
	Data          json.RawMessage `json:"data"`
}

func (s *Server) handleFrame(cn *conn, raw []byte) {
	var req inboundReq
	if err := json.Unmarshal(raw, &req); err != nil || req.ReqIdentifier == 0 {
		logger.Warnf("[gateway] malformed frame conn=%s len=%d", cn.id, len(raw))
		cn.enqueue(respFrame(model.WSDataError, errs.FrameMalformed, errs.ErrMalformedFrame.Msg, nil))
		return
	}

	switch req.ReqIdentifier {
	case model.WSGetMaxSeq:
		maxSeqs, minSeqs := s.log.Watermarks(cn.userID)
		cn.enqueue(respFrame(model.WSGetMaxSeq, 0, "", &model.GetMaxSeqResp{
			MaxSeqs: maxSeqs,
			MinSeqs: minSeqs,
		}))

	case model.WSPullMsgBySeqs:
		var pull model.PullMessageBySeqsReq
		if err := json.Unmarshal(req.Data, &pull); err != nil {
			cn.enqueue(respFrame(model.WSPullMsgBySeqs, errs.ArgsError, "bad pull request", nil))
			return
		}
		resp := &model.PullMessageBySeqsResp{Msgs: make(map[string]*model.PullMsgs)}
		for _, r := range pull.SeqRanges {
			msgs, isEnd, endSeq := s.log.Range(r.ConversationID, r.Begin, r.End, r.Num)
			if len(msgs) == 0 && !isEnd {
				continue
			}
			resp.Msgs[r.ConversationID] = &model.PullMsgs{
				Msgs:   msgs,
				IsEnd:  isEnd,
				EndSeq: endSeq,
			}
		}
		cn.enqueue(respFrame(model.WSPullMsgBySeqs, 0, "", resp))

	case model.WSSendMsg:
		var send model.SendMessageReq
		if err := json.Unmarshal(req.Data, &send); err != nil {
			cn.enqueue(respFrame(model.WSSendMsg, errs.ArgsError, "bad send request", nil))
			return
		}
		if send.SenderID == "" {
			send.SenderID = cn.userID
		}
		msg := s.log.Append(&send)
		s.push(msg)

	case model.WSTest:
		cn.enqueue(respFrame(model.WSTest, 0, "", json.RawMessage(req.Data)))

	default:
		logger.Debugf("[gateway] no handler for kind=%d conn=%s", req.ReqIdentifier, cn.id)
	}
}

// push fans the new message out to every connection of every conversation
// member, the sender's own included: the sender's push doubles as the send
// confirmation via client_msg_id.
func (s *Server) push(msg *model.Message) {
	frame := respFrame(model.WSPushMsg, 0, "", msg)
	for _, userID := range s.log.Members(msg.ConversationID) {
		for _, cn := range s.reg.listByUser(userID) {
			cn.enqueue(frame)
		}
	}
}

func respFrame(kind int32, code int, msg string, payload any) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Errorf("[gateway] marshal payload kind=%d: %v", kind, err)
		data = []byte("null")
	}
	frame, _ := json.Marshal(&model.WSResponse{
		ReqIdentifier: kind,
		Code:          code,
		Msg:           msg,
		Data:          data,
	})
	return frame
}
