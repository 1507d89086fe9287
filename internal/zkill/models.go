package zkill

import "eve-counter/internal/config"

// Killmail is the part of a feed message we read. Older feed builds send
// killID with the victim ids at the top level; newer ones send killmail_id and
// a victim object.
type Killmail struct {
	KillID        int64  `json:"killID"`
	KillmailID    int64  `json:"killmail_id"`
	CorporationID int64  `json:"corporation_id"`
	AllianceID    int64  `json:"alliance_id"`
	Victim        victim `json:"victim"`
}

type victim struct {
	CorporationID int64 `json:"corporation_id"`
	AllianceID    int64 `json:"alliance_id"`
}

// ID is the killmail id, or 0 for messages that are not killmails.
func (k Killmail) ID() int64 {
	if k.KillID != 0 {
		return k.KillID
	}
	return k.KillmailID
}

// LossFor reports whether the victim belongs to the tracked organization,
// i.e. the killmail counts against us.
func (k Killmail) LossFor(scope config.Scope) bool {
	var id int64
	switch scope.Kind {
	case config.ScopeCorporation:
		id = firstNonZero(k.CorporationID, k.Victim.CorporationID)
	case config.ScopeAlliance:
		id = firstNonZero(k.AllianceID, k.Victim.AllianceID)
	}
	return id != 0 && id == scope.ID
}

func firstNonZero(a, b int64) int64 {
	if a != 0 {
		return a
	}
	return b
}

type subscribeMsg struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
}

type pingMsg struct {
	Ping int `json:"ping"`
}
