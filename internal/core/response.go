package core

import (
	"errors"
	"fmt"
	"io"
)

// ErrNotImplemented возвращается, когда у ответа нет ни payload, ни
// собственного вывода транспорта.
var ErrNotImplemented = errors.New("not implemented")

// Response описывает результат обработки запроса, отдаваемый транспорту один раз.
type Response interface {
	Request() Request
	ReturnCode() int
	Payload() Payload
	SetPayload(p Payload)
	ContentType() string
	SetContentType(ct string)
	Output(w io.Writer) error
}

// BaseResponse хранит код результата, payload и явный content type.
type BaseResponse struct {
	req         Request
	returnCode  int
	payload     Payload
	contentType string
}

// NewBaseResponse создает ответ с кодом 0 и без payload.
func NewBaseResponse(req Request) BaseResponse {
	return BaseResponse{req: req}
}

func (r *BaseResponse) Request() Request { return r.req }

func (r *BaseResponse) ReturnCode() int { return r.returnCode }

func (r *BaseResponse) SetReturnCode(code int) { r.returnCode = code }

func (r *BaseResponse) Payload() Payload { return r.payload }

func (r *BaseResponse) SetPayload(p Payload) { r.payload = p }

// ContentType: явное значение, иначе тип payload, иначе пустая строка.
func (r *BaseResponse) ContentType() string {
	if r.contentType != "" {
		return r.contentType
	}
	if r.payload != nil {
		return r.payload.ContentType()
	}
	return ""
}

func (r *BaseResponse) SetContentType(ct string) { r.contentType = ct }

// Output отрисовывает payload в w.
func (r *BaseResponse) Output(w io.Writer) error {
	if r.payload == nil {
		return fmt.Errorf("output without payload: %w", ErrNotImplemented)
	}
	return r.payload.Render(w)
}
