package domain

// User is a participant address. It carries no mutable state.
type User struct {
	ID string `json:"id"`
}

func (u *User) Kind() EntityKind { return KindUser }
func (u *User) Key() string      { return u.ID }

// Transaction is one on-chain transaction, immutable once created.
type Transaction struct {
	ID          string `json:"id"` // transaction hash
	BlockNumber int64  `json:"blockNumber"`
	Timestamp   int64  `json:"timestamp"`
}

func (t *Transaction) Kind() EntityKind { return KindTransaction }
func (t *Transaction) Key() string      { return t.ID }

// ProcessedEvent marks an event (transaction hash + log index) as applied.
type ProcessedEvent struct {
	ID          string `json:"id"`
	BlockNumber int64  `json:"blockNumber"`
}

func (p *ProcessedEvent) Kind() EntityKind { return KindProcessedEvent }
func (p *ProcessedEvent) Key() string      { return p.ID }
