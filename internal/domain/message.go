package domain

import (
	"errors"
	"strings"
)

// MessageType identifies the modality of an inbound message
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeAudio MessageType = "audio"
)

// ErrUnsupportedMessage is returned for message values outside the closed variant set
var ErrUnsupportedMessage = errors.New("unsupported message type")

// Message is an inbound student message. The set of implementations is closed:
// TextMessage, ImageMessage and AudioMessage.
type Message interface {
	Type() MessageType
	isMessage()
}

// TextMessage carries plain text typed by the student
type TextMessage struct {
	Text string
}

// ImageMessage carries a photograph of a problem
type ImageMessage struct {
	Data     []byte
	MIMEType string
}

// AudioMessage carries a recorded voice note
type AudioMessage struct {
	Data     []byte
	MIMEType string
}

func (TextMessage) Type() MessageType  { return MessageTypeText }
func (ImageMessage) Type() MessageType { return MessageTypeImage }
func (AudioMessage) Type() MessageType { return MessageTypeAudio }

func (TextMessage) isMessage()  {}
func (ImageMessage) isMessage() {}
func (AudioMessage) isMessage() {}

// NormalizedInput is the single textual form of any inbound message
type NormalizedInput struct {
	MessageType MessageType
	// Question drives generation
	Question string
	// SearchQuery drives retrieval; empty means retrieval is skipped
	SearchQuery string
	// ContentDescriptor describes the raw content for the research log
	ContentDescriptor string
	// MediaURL is where the raw media was archived, or a sentinel
	MediaURL string
	// Analysis is the image description or audio transcript
	Analysis string
}

// Reply is the outcome of one handled message
type Reply struct {
	Text        string      `json:"reply"`
	Succeeded   bool        `json:"succeeded"`
	MessageType MessageType `json:"message_type"`
}

// StripNUL removes NUL characters, which text columns and sheets reject
func StripNUL(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}
