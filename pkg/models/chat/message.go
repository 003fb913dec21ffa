package chat

import "encoding/json"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// style tags of a message
const (
	ClassError     = "error"
	ClassRouteInfo = "route-info"
)

// Message 对话记录中的一条消息，存入后不再修改
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// Content is rendered markup
	IsMarkup bool   `json:"isMarkup"`
	Class    string `json:"class,omitempty"`
}

func (m Message) IsError() bool {
	return m.Class == ClassError
}

// Record returns the persisted form
func (m Message) Record() Record {
	return Record{
		Type:    m.Role,
		Content: m.Content,
		IsHTML:  m.IsMarkup,
		Class:   m.Class,
	}
}

type Messages []Message

func (z Messages) Records() Records {
	out := make(Records, 0, len(z))
	for _, m := range z {
		out = append(out, m.Record())
	}
	return out
}

// Record is a message as kept in the storage, one element of the JSON array under the history key.
type Record struct {
	Type    Role   `json:"type"`
	Content string `json:"content"`
	IsHTML  bool   `json:"isHtml"`
	Class   string `json:"class,omitempty"`
}

// Message restores a message, user records are always plain text.
func (r Record) Message() Message {
	if r.Type == RoleUser {
		return Message{Role: RoleUser, Content: r.Content}
	}
	return Message{
		Role:     RoleAssistant,
		Content:  r.Content,
		IsMarkup: r.IsHTML,
		Class:    r.Class,
	}
}

type Records []Record

// Recent returns the last n records, all of them when n <= 0.
func (z Records) Recent(n int) Records {
	if n <= 0 || len(z) <= n {
		return z
	}
	return z[len(z)-n:]
}

func (z Records) Messages() Messages {
	out := make(Messages, 0, len(z))
	for _, r := range z {
		out = append(out, r.Message())
	}
	return out
}

// MarshalBinary implements the encoding.BinaryMarshaler interface.
func (z Records) MarshalBinary() (data []byte, err error) {
	if z == nil {
		z = Records{}
	}
	data, err = json.Marshal(z)
	return
}

// UnmarshalBinary unmarshal a binary representation of itself. for redis result.Scan
func (z *Records) UnmarshalBinary(data []byte) error {
	var t Records
	err := json.Unmarshal(data, &t)
	if err == nil {
		*z = t
	}
	return err
}
