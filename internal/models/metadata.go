package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Metadata is the type-specific payload attached to a message.
// The concrete type is selected by the message's MessageType.
type Metadata interface {
	validate(t MessageType) error
}

// TextMetadata carries nothing; text lives in Message.Content.
type TextMetadata struct{}

// TransferMetadata describes an XRP or issued-token payment.
type TransferMetadata struct {
	Amount      json.Number `json:"amount,omitempty"`
	Currency    string      `json:"currency,omitempty"`
	Issuer      string      `json:"issuer,omitempty"`
	Destination string      `json:"destination,omitempty"`
	TxHash      string      `json:"txHash,omitempty"`
}

// ImageMetadata points at an uploaded image.
type ImageMetadata struct {
	ImageURL string `json:"imageUrl,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

// SystemMetadata tags a server-generated notice.
type SystemMetadata struct {
	Event string `json:"event,omitempty"`
}

// NewMetadata returns the empty variant for t.
func NewMetadata(t MessageType) Metadata {
	switch t {
	case TypeXRPTransfer:
		return TransferMetadata{Currency: "XRP"}
	case TypeTokenTransfer:
		return TransferMetadata{}
	case TypeImage:
		return ImageMetadata{}
	case TypeSystem:
		return SystemMetadata{}
	default:
		return TextMetadata{}
	}
}

// DecodeMetadata decodes raw JSON into the variant for t.
// Absent or null metadata yields the empty variant.
func DecodeMetadata(t MessageType, raw json.RawMessage) (Metadata, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, string(t))
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return NewMetadata(t), nil
	}

	var (
		md  Metadata
		err error
	)
	switch t {
	case TypeXRPTransfer, TypeTokenTransfer:
		var v TransferMetadata
		err = json.Unmarshal(raw, &v)
		if t == TypeXRPTransfer && v.Currency == "" {
			v.Currency = "XRP"
		}
		md = v
	case TypeImage:
		var v ImageMetadata
		err = json.Unmarshal(raw, &v)
		md = v
	case TypeSystem:
		var v SystemMetadata
		err = json.Unmarshal(raw, &v)
		md = v
	default:
		var v TextMetadata
		err = json.Unmarshal(raw, &v)
		md = v
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	return md, nil
}

// ValidateMetadata checks that md is the right variant for t and that
// its required fields are present.
func ValidateMetadata(t MessageType, md Metadata) error {
	if md == nil {
		return nil
	}
	return md.validate(t)
}

func (TextMetadata) validate(t MessageType) error {
	if t != TypeText {
		return fmt.Errorf("%w: text metadata on %s message", ErrInvalidMetadata, t)
	}
	return nil
}

func (m TransferMetadata) validate(t MessageType) error {
	if !t.IsTransfer() {
		return fmt.Errorf("%w: transfer metadata on %s message", ErrInvalidMetadata, t)
	}
	if m.Amount == "" {
		return fmt.Errorf("%w: amount is required", ErrInvalidMetadata)
	}
	amount, err := strconv.ParseFloat(m.Amount.String(), 64)
	if err != nil || amount <= 0 {
		return fmt.Errorf("%w: amount must be a positive number", ErrInvalidMetadata)
	}
	if t == TypeTokenTransfer && strings.TrimSpace(m.Currency) == "" {
		return fmt.Errorf("%w: currency is required for token transfers", ErrInvalidMetadata)
	}
	if m.Destination != "" && !IsClassicAddress(m.Destination) {
		return fmt.Errorf("%w: destination is not a valid XRPL address", ErrInvalidMetadata)
	}
	return nil
}

func (m ImageMetadata) validate(t MessageType) error {
	if t != TypeImage {
		return fmt.Errorf("%w: image metadata on %s message", ErrInvalidMetadata, t)
	}
	if m.ImageURL == "" {
		return fmt.Errorf("%w: imageUrl is required", ErrInvalidMetadata)
	}
	u, err := url.Parse(m.ImageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "data") {
		return fmt.Errorf("%w: imageUrl must be an http(s) or data URL", ErrInvalidMetadata)
	}
	return nil
}

func (SystemMetadata) validate(t MessageType) error {
	if t != TypeSystem {
		return fmt.Errorf("%w: system metadata on %s message", ErrInvalidMetadata, t)
	}
	return nil
}
