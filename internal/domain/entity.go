package domain

// EntityKind names an entity type in the store.
// The (kind, id) pair is the storage key.
type EntityKind string

// Entity kinds.
const (
	KindFactory        EntityKind = "StreamSwapFactory"
	KindPool           EntityKind = "Pool"
	KindToken          EntityKind = "Token"
	KindPooledToken    EntityKind = "PooledToken"
	KindUser           EntityKind = "User"
	KindUserToken      EntityKind = "UserToken"
	KindTransaction    EntityKind = "Transaction"
	KindInstantSwap    EntityKind = "InstantSwap"
	KindContinuousSwap EntityKind = "ContinuousSwap"
	KindProcessedEvent EntityKind = "ProcessedEvent"
)

// Entity is a keyed record of the materialized state.
type Entity interface {
	Kind() EntityKind
	Key() string
}

// Clone returns a deep copy of e. Stores use it so callers never share
// mutable state (slices, big.Int) with stored records.
func Clone(e Entity) Entity {
	switch v := e.(type) {
	case *StreamSwapFactory:
		c := *v
		return &c
	case *Pool:
		c := *v
		c.TokenAddresses = append([]string{}, v.TokenAddresses...)
		return &c
	case *Token:
		c := *v
		c.TotalSupply = copyBig(v.TotalSupply)
		return &c
	case *PooledToken:
		c := *v
		return &c
	case *User:
		c := *v
		return &c
	case *UserToken:
		c := *v
		return &c
	case *Transaction:
		c := *v
		return &c
	case *InstantSwap:
		c := *v
		return &c
	case *ContinuousSwap:
		c := *v
		return &c
	case *ProcessedEvent:
		c := *v
		return &c
	default:
		return e
	}
}
