package codec

import (
	"reflect"
	"testing"
)

type step struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

func TestEncodeSeqEmpty(t *testing.T) {
	for _, in := range [][]string{nil, {}} {
		got, err := EncodeSeq(in)
		if err != nil {
			t.Fatalf("EncodeSeq(%v): %v", in, err)
		}
		if got != "[]" {
			t.Errorf("EncodeSeq(%v) = %q, want %q", in, got, "[]")
		}
	}
}

func TestDecodeSeqEmpty(t *testing.T) {
	for _, in := range []string{"", "[]"} {
		got, err := DecodeSeq[string](in)
		if err != nil {
			t.Fatalf("DecodeSeq(%q): %v", in, err)
		}
		if got == nil {
			t.Errorf("DecodeSeq(%q) = nil, want empty non-nil slice", in)
		}
		if len(got) != 0 {
			t.Errorf("DecodeSeq(%q) = %v, want empty", in, got)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	in := []step{
		{Type: "access_request", Attributes: map[string]string{"User-Name": "alice"}},
		{Type: "expect_accept", Attributes: nil},
	}

	encoded, err := EncodeSeq(in)
	if err != nil {
		t.Fatalf("EncodeSeq: %v", err)
	}
	decoded, err := DecodeSeq[step](encoded)
	if err != nil {
		t.Fatalf("DecodeSeq: %v", err)
	}
	if !reflect.DeepEqual(decoded, in) {
		t.Errorf("round trip = %+v, want %+v", decoded, in)
	}
}

func TestDecodeSeqCorrupt(t *testing.T) {
	for _, in := range []string{"{", "not json", `{"a":1}`} {
		if _, err := DecodeSeq[string](in); err == nil {
			t.Errorf("DecodeSeq(%q): expected error", in)
		}
	}
}
