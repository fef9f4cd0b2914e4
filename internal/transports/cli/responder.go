package cli

import (
	"context"

	"duet/internal/core"
	"duet/internal/ext"
)

// Category задает точку расширения для command responder'ов.
const Category = core.ResponderCategory + "/cmd"

// Responder обрабатывает одну команду.
type Responder interface {
	Command() string
	Synopsis() string
	Respond(ctx context.Context, req *Request) (core.Response, error)
}

// UsageSetter задает свою строку использования. Хук необязателен.
type UsageSetter interface {
	SetUsage(req *Request)
}

// ToolOptionAdder добавляет опции команды. Хук необязателен.
type ToolOptionAdder interface {
	AddToolOptions(req *Request)
}

// Register добавляет responder под именем его команды. Повтор имени
// считается ошибкой загрузки плагина.
func Register(reg *ext.Registry, r Responder) error {
	return reg.Register(Category, r.Command(), r)
}
