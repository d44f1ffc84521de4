package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseMessageType(t *testing.T) {
	tests := []struct {
		in      string
		want    MessageType
		wantErr bool
	}{
		{"", TypeText, false},
		{"text", TypeText, false},
		{"xrp_transfer", TypeXRPTransfer, false},
		{"token_transfer", TypeTokenTransfer, false},
		{"image", TypeImage, false},
		{"system", TypeSystem, false},
		{"video", "", true},
		{"TEXT", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMessageType(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidType) {
				t.Errorf("ParseMessageType(%q): expected ErrInvalidType, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMessageType(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMessageType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMessageJSONKeepsMetadataVariant(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := Message{
		ID:       "01HZY3K1V2Q7W8E9R0T1Y2U3I4",
		RoomID:   "r1",
		SenderID: "u1",
		Type:     TypeXRPTransfer,
		Content:  "sent 25 XRP",
		Metadata: TransferMetadata{
			Amount: "25",
			TxHash: "E3FE6EA3D48F0C2B639448020EA4F03D4F4F8FFDB243A852A0F59177921B4879",
		},
		Timestamp: ts,
		Sender:    Sender{ID: "u1", Name: "Alice", IsOnline: true},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	md, ok := decoded.Metadata.(TransferMetadata)
	if !ok {
		t.Fatalf("expected TransferMetadata, got %T", decoded.Metadata)
	}
	if md.Amount != "25" {
		t.Fatalf("expected amount 25, got %q", md.Amount)
	}
	if md.Currency != "XRP" {
		t.Fatalf("expected currency to default to XRP, got %q", md.Currency)
	}
	if !decoded.Timestamp.Equal(ts) {
		t.Fatalf("timestamp changed: %v != %v", decoded.Timestamp, ts)
	}
	if decoded.Sender.Name != "Alice" || !decoded.Sender.IsOnline {
		t.Fatalf("sender snapshot not preserved: %+v", decoded.Sender)
	}
}

func TestMessageJSONNilMetadataIsObject(t *testing.T) {
	data, err := json.Marshal(Message{ID: "x", Type: TypeText})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"metadata":{}`) {
		t.Fatalf("expected empty metadata object, got %s", data)
	}
	if !strings.Contains(string(data), `"isRead":false`) {
		t.Fatalf("expected isRead false, got %s", data)
	}
}

func TestDecodeMetadata(t *testing.T) {
	md, err := DecodeMetadata(TypeImage, json.RawMessage(`{"imageUrl":"https://img.example/a.png","extra":1}`))
	if err != nil {
		t.Fatal(err)
	}
	if img, ok := md.(ImageMetadata); !ok || img.ImageURL != "https://img.example/a.png" {
		t.Fatalf("unexpected image metadata: %#v", md)
	}

	md, err = DecodeMetadata(TypeSystem, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := md.(SystemMetadata); !ok {
		t.Fatalf("expected SystemMetadata for missing metadata, got %T", md)
	}

	if _, err := DecodeMetadata(TypeText, json.RawMessage(`"not an object"`)); !errors.Is(err, ErrInvalidMetadata) {
		t.Fatalf("expected ErrInvalidMetadata, got %v", err)
	}

	if _, err := DecodeMetadata("video", nil); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestValidateMetadata(t *testing.T) {
	tests := []struct {
		name    string
		typ     MessageType
		md      Metadata
		wantErr bool
	}{
		{"text ok", TypeText, TextMetadata{}, false},
		{"xrp ok", TypeXRPTransfer, TransferMetadata{Amount: "1.5", Currency: "XRP"}, false},
		{"xrp missing amount", TypeXRPTransfer, TransferMetadata{Currency: "XRP"}, true},
		{"xrp negative amount", TypeXRPTransfer, TransferMetadata{Amount: "-3"}, true},
		{"token missing currency", TypeTokenTransfer, TransferMetadata{Amount: "10"}, true},
		{"token ok", TypeTokenTransfer, TransferMetadata{Amount: "10", Currency: "USD", Issuer: "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"}, false},
		{"bad destination", TypeXRPTransfer, TransferMetadata{Amount: "1", Destination: "nope"}, true},
		{"image missing url", TypeImage, ImageMetadata{}, true},
		{"image bad scheme", TypeImage, ImageMetadata{ImageURL: "ftp://x/y.png"}, true},
		{"image ok", TypeImage, ImageMetadata{ImageURL: "https://x/y.png"}, false},
		{"system ok", TypeSystem, SystemMetadata{Event: "joined"}, false},
		{"variant mismatch", TypeText, ImageMetadata{ImageURL: "https://x/y.png"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMetadata(tt.typ, tt.md)
			if tt.wantErr && !errors.Is(err, ErrInvalidMetadata) {
				t.Fatalf("expected ErrInvalidMetadata, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestTrimHistory(t *testing.T) {
	msgs := make([]Message, 105)
	for i := range msgs {
		msgs[i].ID = string(rune('A' + i%26))
		msgs[i].Content = strings.Repeat("x", i)
	}

	trimmed, evicted := TrimHistory(msgs, MaxRoomMessages)
	if evicted != 5 {
		t.Fatalf("expected 5 evicted, got %d", evicted)
	}
	if len(trimmed) != MaxRoomMessages {
		t.Fatalf("expected %d messages, got %d", MaxRoomMessages, len(trimmed))
	}
	if len(trimmed[0].Content) != 5 {
		t.Fatalf("expected oldest kept message to be index 5, got %d", len(trimmed[0].Content))
	}
	if len(trimmed[99].Content) != 104 {
		t.Fatalf("expected newest message last, got %d", len(trimmed[99].Content))
	}

	short, evicted := TrimHistory(msgs[:3], MaxRoomMessages)
	if evicted != 0 || len(short) != 3 {
		t.Fatalf("expected no trimming, got %d messages, %d evicted", len(short), evicted)
	}
}

func TestIsClassicAddress(t *testing.T) {
	valid := []string{
		"rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh",
		"rPT1Sjq2YGrBMTttX4GZHjKu9dyfzbpAYe",
	}
	for _, a := range valid {
		if !IsClassicAddress(a) {
			t.Errorf("expected %q to be valid", a)
		}
	}

	invalid := []string{"", "r", "xHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh", "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyT0", "rIIIIIIIIIIIIIIIIIIIIIIIII"}
	for _, a := range invalid {
		if IsClassicAddress(a) {
			t.Errorf("expected %q to be invalid", a)
		}
	}
}
