package orders

import "context"

// Store is the relational store behind every component. Writes happen inside
// InTx; fn's error (or panic) rolls back everything fn did.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// View runs fn against one consistent read-only snapshot.
	View(ctx context.Context, fn func(ctx context.Context, v Reader) error) error
}

type Reader interface {
	GetProduct(ctx context.Context, id string) (Product, error)
	CartLines(ctx context.Context, userID string) ([]CartLine, error)
	GetCartEntry(ctx context.Context, userID, productID string) (CartEntry, bool, error)
	GetOrder(ctx context.Context, id string) (Order, error)
	OrderLines(ctx context.Context, orderID string) ([]OrderLine, error)
	// ListOrders returns orders newest first with their lines; empty userID lists all.
	ListOrders(ctx context.Context, userID string) ([]Order, error)
	OrdersBetween(ctx context.Context, p Period) ([]Order, error)
	SoldLinesBetween(ctx context.Context, p Period) ([]SoldLine, error)
	LowStockProducts(ctx context.Context, threshold, limit int) ([]Product, error)
}

type Tx interface {
	Reader

	// ReduceStock applies stock -= qty only when stock >= qty, as one
	// conditional write. ok is false when nothing changed.
	ReduceStock(ctx context.Context, productID string, qty int) (ok bool, err error)
	RestoreStock(ctx context.Context, productID string, qty int) error

	CreateSupplier(ctx context.Context, s Supplier) (Supplier, error)
	CreateProduct(ctx context.Context, p Product) (Product, error)
	PatchProduct(ctx context.Context, id string, patch ProductPatch) (Product, error)

	UpsertCartEntry(ctx context.Context, e CartEntry) error
	DeleteCartEntry(ctx context.Context, userID, productID string) error
	ClearCart(ctx context.Context, userID string) error

	InsertOrder(ctx context.Context, o Order) error
	// LockOrder reads the order and holds it against concurrent transitions
	// until the transaction ends.
	LockOrder(ctx context.Context, id string) (Order, error)
	SetOrderStatus(ctx context.Context, id string, s Status) error

	EnqueueEvent(ctx context.Context, ev OutboxEvent) error
}

// OutboxStore is the side of the store the outbox relay drains.
type OutboxStore interface {
	PendingEvents(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkEventSent(ctx context.Context, id int64) error
}
