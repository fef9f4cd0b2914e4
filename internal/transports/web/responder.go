package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"duet/internal/core"
	"duet/internal/ext"
)

// Category задает точку расширения для web responder'ов.
const Category = core.ResponderCategory + "/web"

var (
	ErrNoResponder        = errors.New("no web responder")
	ErrAmbiguousResponder = errors.New("several web responders registered")
)

// Responder обрабатывает web-запрос. Выбор responder'а по URL транспорт
// не делает: он задается конфигурацией.
type Responder interface {
	Name() string
	Respond(ctx context.Context, req *Request) (*Response, error)
}

// Register добавляет responder под его именем.
func Register(reg *ext.Registry, r Responder) error {
	return reg.Register(Category, r.Name(), r)
}

// Select находит responder по имени. Пустое имя допустимо, только если
// в реестре ровно один web responder.
func Select(reg *ext.Registry, name string) (Responder, error) {
	responders := ext.Of[Responder](reg, Category)
	if name == "" {
		switch len(responders) {
		case 0:
			return nil, ErrNoResponder
		case 1:
			return responders[0], nil
		default:
			return nil, fmt.Errorf("%d found, set web_responder: %w", len(responders), ErrAmbiguousResponder)
		}
	}
	for _, r := range responders {
		if r.Name() == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", name, ErrNoResponder)
}

// Respond вызывает responder и превращает ошибку в ответ с ErrorPayload.
// *Error сохраняет свой статус, прочие ошибки дают 500.
func Respond(ctx context.Context, responder Responder, req *Request) *Response {
	res, err := responder.Respond(ctx, req)
	if err != nil {
		var werr *Error
		if errors.As(err, &werr) {
			slog.WarnContext(ctx, "web responder returned error", "responder", responder.Name(), "status", werr.Status, "title", werr.Title)
		} else {
			slog.ErrorContext(ctx, "web responder failed", "responder", responder.Name(), "err", err)
			werr = NewError(http.StatusInternalServerError, "Internal server error", "The request could not be completed.")
		}
		res = NewResponse(req)
		res.SetPayload(NewErrorPayload(werr))
		return res
	}
	if res == nil {
		return NewResponse(req)
	}
	return res
}
