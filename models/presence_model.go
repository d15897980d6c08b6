package models

import "time"

const (
	PresenceOnline  = "online"
	PresenceAway    = "away"
	PresenceBusy    = "busy"
	PresenceOffline = "offline"
)

func ValidPresenceStatus(s string) bool {
	switch s {
	case PresenceOnline, PresenceAway, PresenceBusy:
		return true
	}
	return false
}

// PresenceRecord is the best-effort mirror other services read; the
// authoritative state lives in the presence registry of the process holding
// the connections.
type PresenceRecord struct {
	UserID   string     `json:"userId"`
	Status   string     `json:"status"`
	LastSeen *time.Time `json:"lastSeen"`
}
