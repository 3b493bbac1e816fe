package models

import "time"

// UnlockRecord grants a client permanent access to one creator resource.
// Its existence for a (client, creator, kind) key is the unlocked flag.
type UnlockRecord struct {
	ID           int64     `json:"id"`
	ClientID     int64     `json:"client_id"`
	CreatorID    int64     `json:"creator_id"`
	ResourceKind string    `json:"resource_kind"`
	PricePaid    int64     `json:"price_paid"`
	CreatedAt    time.Time `json:"created_at"`
}

// UnlockKey identifies an unlockable resource.
type UnlockKey struct {
	ClientID     int64
	CreatorID    int64
	ResourceKind string
}

func (r UnlockRecord) Key() UnlockKey {
	return UnlockKey{ClientID: r.ClientID, CreatorID: r.CreatorID, ResourceKind: r.ResourceKind}
}

// IsResourceKind validates an unlockable resource kind.
func IsResourceKind(kind string) bool {
	return kind == ResourcePhotos || kind == ResourceContact
}
