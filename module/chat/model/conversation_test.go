package model

import "testing"

func TestSingleConversationIDIsSymmetric(t *testing.T) {
	a := GetConversationID(SingleChatType, "1", "2")
	b := GetConversationID(SingleChatType, "2", "1")
	if a != b {
		t.Fatalf("pair ordering not canonical: %q vs %q", a, b)
	}
	if a != "single:1_2" {
		t.Fatalf("conversation id = %q", a)
	}
}

func TestSingleConversationIDNumericOrdering(t *testing.T) {
	// 9 < 10 numerically even though "9" > "10" lexically
	got := GetConversationID(SingleChatType, "10", "9")
	if got != "single:9_10" {
		t.Fatalf("conversation id = %q, want single:9_10", got)
	}
}

func TestGroupConversationIDIgnoresSender(t *testing.T) {
	a := GetConversationID(GroupChatType, "1", "42")
	b := GetConversationID(GroupChatType, "2", "42")
	if a != b || a != "group:42" {
		t.Fatalf("group ids = %q / %q", a, b)
	}
}

func TestParseConversationID(t *testing.T) {
	convType, target := ParseConversationID("single:1_2", "1")
	if convType != SingleChatType || target != "2" {
		t.Fatalf("parse as 1 = (%d, %q)", convType, target)
	}
	convType, target = ParseConversationID("single:1_2", "2")
	if convType != SingleChatType || target != "1" {
		t.Fatalf("parse as 2 = (%d, %q)", convType, target)
	}

	convType, target = ParseConversationID("group:42", "1")
	if convType != GroupChatType || target != "42" {
		t.Fatalf("group parse = (%d, %q)", convType, target)
	}

	if convType, _ = ParseConversationID("notif:7", "1"); convType != 0 {
		t.Fatalf("unknown prefix parsed as type %d", convType)
	}
	if convType, _ = ParseConversationID("single:nounderscore", "1"); convType != 0 {
		t.Fatalf("malformed single id parsed as type %d", convType)
	}
}
