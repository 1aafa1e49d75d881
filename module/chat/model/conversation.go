package model

import (
	"strings"
)

const (
	singleConvPrefix = "single:"
	groupConvPrefix  = "group:"
)

// GetConversationID derives the conversation id for a chat. Single-chat ids
// order the pair of user ids canonically so both participants compute the
// identical id; group ids embed the group id only.
func GetConversationID(convType int32, userID, receiverID string) string {
	switch convType {
	case SingleChatType:
		lo, hi := userID, receiverID
		if compareID(lo, hi) > 0 {
			lo, hi = hi, lo
		}
		return singleConvPrefix + lo + "_" + hi
	case GroupChatType:
		return groupConvPrefix + receiverID
	default:
		return ""
	}
}

// ParseConversationID extracts the chat kind and the counterparty (for a
// single chat, the participant that is not selfID) from a conversation id.
// Returns convType 0 for ids it does not recognize.
func ParseConversationID(convID, selfID string) (convType int32, targetID string) {
	if rest, ok := strings.CutPrefix(convID, singleConvPrefix); ok {
		id1, id2, found := strings.Cut(rest, "_")
		if !found {
			return 0, ""
		}
		if selfID == id1 {
			return SingleChatType, id2
		}
		return SingleChatType, id1
	}
	if rest, ok := strings.CutPrefix(convID, groupConvPrefix); ok {
		return GroupChatType, rest
	}
	return 0, ""
}

// compareID orders numeric id strings by value (shorter means smaller) and
// falls back to plain string order for non-numeric ids.
func compareID(a, b string) int {
	if len(a) != len(b) && isDigits(a) && isDigits(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
