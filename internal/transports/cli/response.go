package cli

import (
	"fmt"
	"io"

	"duet/internal/core"
)

// Response хранит результат команды. Текст ошибки хранится отдельно от payload,
// чтобы выводить его в поток диагностики.
type Response struct {
	core.BaseResponse
	req     *Request
	errText string
}

// NewResponse создает успешный ответ.
func NewResponse(req *Request) *Response {
	return &Response{BaseResponse: core.NewBaseResponse(req), req: req}
}

// NewErrorResponse создает ответ с кодом 1 и сообщением об ошибке.
func NewErrorResponse(req *Request, msg string) *Response {
	res := NewResponse(req)
	res.SetError(1, msg)
	return res
}

func (r *Response) ErrorText() string { return r.errText }

// SetError задает код результата и текст ошибки.
func (r *Response) SetError(code int, text string) {
	r.SetReturnCode(code)
	r.errText = text
}

// PrintError пишет текст в поток диагностики запроса.
func (r *Response) PrintError(text string) error {
	_, err := fmt.Fprintln(r.req.Stderr(), text)
	return err
}

// Output отрисовывает payload; ответ без payload ничего не выводит.
func (r *Response) Output(w io.Writer) error {
	if r.Payload() == nil {
		return nil
	}
	return r.BaseResponse.Output(w)
}
