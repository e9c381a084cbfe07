package extract

import "encoding/json"

// Envelope is the provider's webhook delivery shape: entries wrap changes,
// changes wrap a value object carrying channel metadata plus the messages.
// Messages are kept as raw JSON so each record can retain its original bytes
// verbatim for reprocessing.
type Envelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string            `json:"messaging_product"`
	Metadata         ChannelMetadata   `json:"metadata"`
	Messages         []json.RawMessage `json:"messages"`
}

type ChannelMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type wireMessage struct {
	ID          string          `json:"id"`
	From        string          `json:"from"`
	Timestamp   string          `json:"timestamp"`
	Type        string          `json:"type"`
	Text        wireText        `json:"text"`
	Button      wireButton      `json:"button"`
	Interactive wireInteractive `json:"interactive"`
}

type wireText struct {
	Body string `json:"body"`
}

type wireButton struct {
	Payload string `json:"payload"`
	Text    string `json:"text"`
}

type wireInteractive struct {
	Type string `json:"type"`
}
