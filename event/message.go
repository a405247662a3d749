package event

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// Event type tags. Handlers are dispatched on these via [Handler.Supports].
const (
	TypePasswordChanged = "auth.password.changed"
	TypeAccountDisabled = "auth.account.disabled"
	TypeAccountEnabled  = "auth.account.enabled"
	TypeRolesChanged    = "auth.roles.changed"
	TypeProfileUpdated  = "auth.profile.updated"
)

var errCorruptMessage = errors.New("corrupt event message")

// Message is the envelope appended to the durable stream. EventID is the
// deduplication key: consumers treat two entries with the same EventID as
// one logical event within the dedup TTL window.
type Message struct {
	EventID        string
	Type           string
	UserID         string
	AuthVersion    int64
	ProfileVersion int64
	OperatorID     string
	Timestamp      int64
	Payload        map[string]string
}

// NewID returns a fresh, lexicographically sortable event ID.
func NewID() string {
	return ulid.Make().String()
}

const (
	fieldEventID        = "event_id"
	fieldType           = "event_type"
	fieldUserID         = "user_id"
	fieldAuthVersion    = "auth_version"
	fieldProfileVersion = "profile_version"
	fieldOperatorID     = "operator_id"
	fieldTimestamp      = "ts"
	fieldPayload        = "payload"
)

func (m *Message) values() (map[string]interface{}, error) {
	values := map[string]interface{}{
		fieldEventID:   m.EventID,
		fieldType:      m.Type,
		fieldUserID:    m.UserID,
		fieldTimestamp: strconv.FormatInt(m.Timestamp, 10),
	}
	if m.AuthVersion != 0 {
		values[fieldAuthVersion] = strconv.FormatInt(m.AuthVersion, 10)
	}
	if m.ProfileVersion != 0 {
		values[fieldProfileVersion] = strconv.FormatInt(m.ProfileVersion, 10)
	}
	if m.OperatorID != "" {
		values[fieldOperatorID] = m.OperatorID
	}
	if len(m.Payload) > 0 {
		encoded, err := json.Marshal(m.Payload)
		if err != nil {
			return nil, err
		}
		values[fieldPayload] = string(encoded)
	}
	return values, nil
}

func decodeMessage(entry redis.XMessage) (Message, error) {
	msg := Message{Timestamp: time.Now().Unix()}

	id, ok := stringValue(entry.Values[fieldEventID])
	if !ok || id == "" {
		return Message{}, errCorruptMessage
	}
	msg.EventID = id

	eventType, ok := stringValue(entry.Values[fieldType])
	if !ok || eventType == "" {
		return Message{}, errCorruptMessage
	}
	msg.Type = eventType

	if userID, ok := stringValue(entry.Values[fieldUserID]); ok {
		msg.UserID = userID
	}
	if operator, ok := stringValue(entry.Values[fieldOperatorID]); ok {
		msg.OperatorID = operator
	}
	if raw, ok := stringValue(entry.Values[fieldAuthVersion]); ok {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Message{}, errCorruptMessage
		}
		msg.AuthVersion = v
	}
	if raw, ok := stringValue(entry.Values[fieldProfileVersion]); ok {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Message{}, errCorruptMessage
		}
		msg.ProfileVersion = v
	}
	if raw, ok := stringValue(entry.Values[fieldTimestamp]); ok {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Message{}, errCorruptMessage
		}
		msg.Timestamp = v
	}
	if raw, ok := stringValue(entry.Values[fieldPayload]); ok && raw != "" {
		payload := make(map[string]string)
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return Message{}, errCorruptMessage
		}
		msg.Payload = payload
	}

	return msg, nil
}

func stringValue(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}
