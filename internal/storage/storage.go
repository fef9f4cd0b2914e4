package storage

import (
	"context"
	"log/slog"
	"time"

	"duet/internal/core"
)

// DataKey задает ключ, под которым Store кладется в данные запроса.
const DataKey = "storage"

// Invocation фиксирует один обработанный запрос любого транспорта.
type Invocation struct {
	RequestID string
	Transport string
	Target    string
	Outcome   int
	Message   string
	TS        time.Time
}

// InvocationQuery задает фильтры выборки истории.
type InvocationQuery struct {
	From      time.Time
	To        time.Time
	Transport string
	Limit     int
}

// Store описывает операции хранилища.
type Store interface {
	SaveInvocation(ctx context.Context, inv Invocation) error
	QueryInvocations(ctx context.Context, q InvocationQuery) ([]Invocation, error)
	Close() error
}

// FromRequest достает Store из данных запроса; nil, если хранилище недоступно.
func FromRequest(req core.Request) Store {
	v, ok := req.Data(DataKey)
	if !ok {
		return nil
	}
	s, _ := v.(Store)
	return s
}

// Record сохраняет вызов, если хранилище доступно. Ошибка записи истории
// не влияет на результат вызова и только логируется.
func Record(ctx context.Context, st Store, inv Invocation) {
	if st == nil {
		return
	}
	if inv.TS.IsZero() {
		inv.TS = time.Now().UTC()
	}
	if err := st.SaveInvocation(ctx, inv); err != nil {
		slog.WarnContext(ctx, "save invocation failed", "request_id", inv.RequestID, "err", err)
	}
}
