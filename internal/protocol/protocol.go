package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeResolve     = "RESOLVE"
	TypeResolved    = "RESOLVED"
	TypeMatch       = "MATCH"
	TypeMatchResult = "MATCH_RESULT"
	TypeCatalog     = "CATALOG"
	TypeError       = "ERROR"
)

// Wildcard is the wire spelling of an unconstrained vertex. An empty string
// means the same.
const Wildcard = "*"

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	RequestID       string `json:"request_id,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
