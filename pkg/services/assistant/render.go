package assistant

import (
	"encoding/json"
	"fmt"

	"github.com/liut/campus-assistant/pkg/models/chat"
	"github.com/liut/campus-assistant/pkg/services/markup"
)

// css classes of the widget
const (
	classUser     = "message user-message"
	classLLM      = "message llm-message"
	classMarkdown = "message llm-message markdown-content"
	classError    = "message error-message"
	classLoader   = "message llm-message loader"
)

// RenderEntry maps a message to its render instruction
func RenderEntry(m chat.Message) chat.Entry {
	e := chat.Entry{Role: m.Role, Kind: chat.EntryText, Body: m.Content}
	switch {
	case m.Role == chat.RoleUser:
		e.Class = classUser
	case m.IsError():
		e.Class = classError
	case m.IsMarkup:
		e.Kind = chat.EntryMarkup
		e.Class = classMarkdown
		if len(m.Class) > 0 {
			e.Class += " " + m.Class
		}
	default:
		e.Class = classLLM
		if len(m.Class) > 0 {
			e.Class += " " + m.Class
		}
	}
	return e
}

func RenderEntries(msgs chat.Messages) chat.Entries {
	out := make(chat.Entries, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, RenderEntry(m))
	}
	return out
}

// LoaderEntry is the typing indicator shown while awaiting a response
func LoaderEntry(id string) chat.Entry {
	return chat.Entry{ID: id, Role: chat.RoleAssistant, Kind: chat.EntryLoader, Class: classLoader}
}

// ErrorMessage is an error-styled assistant message
func ErrorMessage(text string) chat.Message {
	return chat.Message{Role: chat.RoleAssistant, Content: text, Class: chat.ClassError}
}

// MarkdownMessage renders v as Markdown. On failure the raw content is kept as plain text.
func MarkdownMessage(r markup.Renderer, v any, class string) chat.Message {
	text := contentText(v)
	html, err := safeRender(r, text)
	if err != nil {
		logger().Infow("markdown render fail", "err", err)
		if _, ok := v.(string); !ok && v != nil {
			if b, err := json.MarshalIndent(v, "", "  "); err == nil {
				text = string(b)
			}
		}
		return chat.Message{Role: chat.RoleAssistant, Content: text, Class: class}
	}
	return chat.Message{Role: chat.RoleAssistant, Content: html, IsMarkup: true, Class: class}
}

func safeRender(r markup.Renderer, text string) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrRender, p)
		}
	}()
	out, err = r.Render(text)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrRender, err)
	}
	return
}

// contentText 确保 markdown 是字符串
func contentText(v any) string {
	switch vv := v.(type) {
	case string:
		return vv
	case nil:
		return msgNoContent
	case bool:
		if !vv {
			return msgNoContent
		}
	case float64:
		if vv == 0 {
			return msgNoContent
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
