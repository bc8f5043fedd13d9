package domain

import (
	"context"
	"time"
)

// ListOpts carries standard pagination and time-range options for list
// queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// QuoteRecord is one persisted quote: the inputs it was computed from and
// the payload it produced. Records exist for submittable quotes only and
// form the audit trail revalidated against on-chain executions.
type QuoteRecord struct {
	ID            int64
	SessionID     string
	MarketAddress string
	FundingNetwork string
	FundingAsset  string
	GrossAmount   int64
	NetAmount     int64
	YesAmount     int64
	NoAmount      int64
	DrawAmount    int64
	Payload       LiquidityPayload
	CreatedAt     time.Time
}

// QuoteStore persists produced quotes.
type QuoteStore interface {
	Insert(ctx context.Context, rec QuoteRecord) (int64, error)
	List(ctx context.Context, market string, opts ListOpts) ([]QuoteRecord, error)
	ListBefore(ctx context.Context, before time.Time) ([]QuoteRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// AuditEntry is one structured operational event.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore appends and lists operational audit events.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
