package stores

import (
	"context"
	"errors"
	"os"

	"github.com/cupogo/andvari/models/oid"
	"gopkg.in/yaml.v3"

	"github.com/liut/campus-assistant/pkg/models/chat"
	"github.com/liut/campus-assistant/pkg/settings"
)

const (
	historyMaxLength = 100
)

// Conversation is the persisted transcript of one chat, kept as one JSON array under a single key.
type Conversation interface {
	GetID() string
	GetKey() string
	// LoadRecords returns nil records without error when nothing was saved
	LoadRecords(ctx context.Context) (chat.Records, error)
	SaveRecords(ctx context.Context, data chat.Records) error
	ClearRecords(ctx context.Context) error
}

// NewConversationID returns a new id for the web sessions
func NewConversationID() string {
	return oid.NewID(oid.OtEvent).String()
}

// CastConversationID validates an id from clients
func CastConversationID(s string) (string, bool) {
	id := oid.Cast(s)
	if id.IsZero() {
		return "", false
	}
	return id.String(), true
}

// NewConversation binds a conversation to the kv. An empty id is the local
// conversation which uses the bare history key.
func NewConversation(kv KV, id string) Conversation {
	return &conversation{id: id, kv: kv, prefix: settings.Current.HistoryKey}
}

type conversation struct {
	id     string
	prefix string
	kv     KV
}

func (s *conversation) GetID() string {
	return s.id
}

func (s *conversation) GetKey() string {
	if len(s.id) == 0 {
		return s.prefix
	}
	return s.prefix + "-" + s.id
}

func (s *conversation) LoadRecords(ctx context.Context) (data chat.Records, err error) {
	key := s.GetKey()
	var v string
	v, err = s.kv.GetItem(ctx, key)
	if errors.Is(err, ErrNoItem) {
		return nil, nil
	}
	if err != nil {
		logger().Infow("load history fail", "key", key, "err", err)
		return
	}
	err = data.UnmarshalBinary([]byte(v))
	return
}

func (s *conversation) SaveRecords(ctx context.Context, data chat.Records) error {
	key := s.GetKey()
	if len(data) > historyMaxLength {
		logger().Infow("history length overflow", "count", len(data))
		data = data.Recent(historyMaxLength)
	}
	b, err := data.MarshalBinary()
	if err != nil {
		return err
	}
	err = s.kv.SetItem(ctx, key, string(b))
	if err == nil {
		logger().Debugw("save history ok", "key", key, "size", len(data))
	} else {
		logger().Infow("save history fail", "key", key, "err", err)
	}
	return err
}

func (s *conversation) ClearRecords(ctx context.Context) error {
	return s.kv.RemoveItem(ctx, s.GetKey())
}

// LoadPreset reads the yaml preset file named in settings, an empty preset without it.
func LoadPreset() (doc *chat.Preset, err error) {
	doc = new(chat.Preset)
	if len(settings.Current.PresetFile) > 0 {
		logger().Infow("load preset", "file", settings.Current.PresetFile)
		yf, err := os.Open(settings.Current.PresetFile)
		if err != nil {
			return nil, err
		}
		defer yf.Close()
		err = yaml.NewDecoder(yf).Decode(doc)
		if err != nil {
			logger().Infow("decode preset fail", "err", err)
			return nil, err
		}
	}

	return
}
