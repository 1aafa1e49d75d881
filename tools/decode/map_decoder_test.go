package decode

import "testing"

type sample struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
	Port  int    `json:"port"`
}

func TestDecodeMapByJSONTag(t *testing.T) {
	got, err := DecodeMap[sample](map[string]any{
		"name":  "pull",
		"count": float64(20), // what encoding/json hands back for a number
		"port":  float64(8080),
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != "pull" || got.Count != 20 || got.Port != 8080 {
		t.Fatalf("decoded = %+v", got)
	}
}

func TestDecodeMapWeakTyping(t *testing.T) {
	got, err := DecodeMap[sample](map[string]any{"count": "42"})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Count != 42 {
		t.Fatalf("count = %d", got.Count)
	}

	if _, err := DecodeMap[sample](map[string]any{"count": "42"}, WithWeaklyTypedInput(false)); err == nil {
		t.Fatal("strict decode should reject string into int64")
	}
}

func TestDecodeMapNil(t *testing.T) {
	if _, err := DecodeMap[sample](nil); err == nil {
		t.Fatal("nil map should error")
	}
}
