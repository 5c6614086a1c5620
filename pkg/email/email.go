package email

// RecipientKind distinguishes direct recipients from carbon copies.
type RecipientKind string

const (
	RecipientTo RecipientKind = "to"
	RecipientCc RecipientKind = "cc"
)

// Address is a parsed mailbox: display name plus address. Either part may
// be empty when the source header omitted it.
type Address struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Recipient is an address from a To or Cc header, tagged with which of the
// two it came from.
type Recipient struct {
	Name  string        `json:"name"`
	Email string        `json:"email"`
	Kind  RecipientKind `json:"kind"`
}

// Email is one message recovered from the corpus. The ID is random and
// independent of content, so re-parsing the same corpus yields new IDs.
// RawContent keeps the chunk exactly as it appeared between delimiters for
// downstream traceability. An Email is immutable after parsing.
type Email struct {
	ID         string      `json:"id"`
	Subject    string      `json:"subject"`
	Sender     Address     `json:"sender"`
	Recipients []Recipient `json:"recipients"`
	Date       string      `json:"date"`
	Body       string      `json:"body"`
	RawContent string      `json:"rawContent"`
}
