package web

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"duet/internal/core"
)

// Header описывает один заголовок ответа в порядке вывода.
type Header struct {
	Name  string
	Value string
}

// StatusPayload описывает payload, задающий HTTP-статус ответа.
type StatusPayload interface {
	core.Payload
	Status() int
}

type cookieDirective struct {
	name  string
	value string
}

// Response описывает web-ответ. HTTP-статус и код результата хранятся раздельно
// и связаны через OutcomeCode.
type Response struct {
	core.BaseResponse
	req *Request

	status      int
	location    string
	disposition string
	cookies     []cookieDirective
}

// NewResponse создает ответ без payload со статусом по умолчанию.
func NewResponse(req *Request) *Response {
	return &Response{BaseResponse: core.NewBaseResponse(req), req: req}
}

// OutcomeCode переводит HTTP-статус в код результата процесса:
// успех и redirect дают 0, остальные статусы возвращаются как есть.
func OutcomeCode(status int) int {
	switch status {
	case 0, http.StatusOK, http.StatusMovedPermanently:
		return 0
	}
	return status
}

// StatusLine возвращает строку статуса для заголовка Status.
func StatusLine(status int) string {
	switch status {
	case http.StatusMovedPermanently:
		return "301 Moved permanently"
	case http.StatusNotFound:
		return "404 Not found"
	case http.StatusInternalServerError:
		return "500 Internal server error"
	}
	text := http.StatusText(status)
	if text == "" {
		return strconv.Itoa(status)
	}
	return strconv.Itoa(status) + " " + text
}

// Status: явное значение, иначе статус payload, иначе 200.
func (r *Response) Status() int {
	if r.status != 0 {
		return r.status
	}
	if sp, ok := r.Payload().(StatusPayload); ok && sp.Status() != 0 {
		return sp.Status()
	}
	return http.StatusOK
}

func (r *Response) SetStatus(status int) { r.status = status }

func (r *Response) ReturnCode() int { return OutcomeCode(r.Status()) }

// SetReturnCode задает HTTP-статус: у web-ответа отдельного кода нет.
func (r *Response) SetReturnCode(code int) { r.status = code }

// Redirect переводит ответ в 301 без тела.
func (r *Response) Redirect(location string) {
	r.status = http.StatusMovedPermanently
	r.location = location
	r.SetPayload(nil)
}

// Location возвращает цель redirect или корневой URL сайта.
func (r *Response) Location() string {
	if r.location != "" {
		return r.location
	}
	return r.req.RootURL()
}

// SetCookie ставит cookie в очередь; заголовок формируется при выводе.
// Имя из недопустимых символов отбрасывается с предупреждением в лог.
func (r *Response) SetCookie(name, value string) {
	if !isCookieToken(name) {
		slog.Warn("invalid cookie name dropped", "name", name)
		return
	}
	r.cookies = append(r.cookies, cookieDirective{name: name, value: value})
}

func (r *Response) SetContentDisposition(v string) { r.disposition = v }

func (r *Response) ContentDisposition() string { return r.disposition }

// Head возвращает строку статуса и заголовки в порядке вывода.
// У redirect из заголовков содержимого остается только Location.
func (r *Response) Head() (string, []Header) {
	status := r.Status()
	var headers []Header
	if status == http.StatusMovedPermanently {
		headers = append(headers, Header{Name: "Location", Value: r.Location()})
	} else {
		if ct := r.ContentType(); ct != "" {
			headers = append(headers, Header{Name: "Content-type", Value: ct})
		}
		if r.disposition != "" {
			headers = append(headers, Header{Name: "Content-disposition", Value: r.disposition})
		}
	}
	for _, c := range r.setCookies() {
		headers = append(headers, Header{Name: "Set-Cookie", Value: c})
	}
	return StatusLine(status), headers
}

// setCookies строит значения Set-Cookie с domain и path из корневого URL.
func (r *Response) setCookies() []string {
	if len(r.cookies) == 0 {
		return nil
	}
	domain, path := cookieScope(r.req.RootURL())
	out := make([]string, 0, len(r.cookies))
	for _, c := range r.cookies {
		var b strings.Builder
		b.WriteString(c.name)
		b.WriteByte('=')
		b.WriteString(quoteCookieValue(c.value))
		b.WriteString("; Path=")
		b.WriteString(path)
		if domain != "" {
			b.WriteString("; Domain=")
			b.WriteString(domain)
		}
		out = append(out, b.String())
	}
	return out
}

const cookieTokenChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!#$%&'*+-.^_`|~:"

func isCookieToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(cookieTokenChars, s[i]) < 0 {
			return false
		}
	}
	return true
}

// quoteCookieValue оставляет токен как есть, иначе берет значение в кавычки:
// кавычка и обратная косая черта экранируются, разделители, управляющие
// и не-ASCII байты записываются восьмеричными escape-последовательностями.
func quoteCookieValue(v string) string {
	if isCookieToken(v) {
		return v
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(v); i++ {
		switch c := v[i]; {
		case c == '"' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == ';' || c == ',' || c < 0x20 || c >= 0x7f:
			fmt.Fprintf(&b, "\\%03o", c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func cookieScope(rootURL string) (string, string) {
	u, err := url.Parse(rootURL)
	if err != nil {
		return "", "/"
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return u.Hostname(), path
}

// Output пишет статус и заголовки (для HTTP-запроса), пустую строку и тело.
func (r *Response) Output(w io.Writer) error {
	if r.req.IsHTTP() {
		status, headers := r.Head()
		if _, err := fmt.Fprintf(w, "Status: %s\n", status); err != nil {
			return err
		}
		for _, h := range headers {
			if _, err := fmt.Fprintf(w, "%s: %s\n", h.Name, h.Value); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	if r.Payload() == nil {
		return nil
	}
	return r.Payload().Render(w)
}

// WriteHTTP отдает ответ через http.ResponseWriter.
func (r *Response) WriteHTTP(w http.ResponseWriter) error {
	_, headers := r.Head()
	for _, h := range headers {
		w.Header().Add(h.Name, h.Value)
	}
	w.WriteHeader(r.Status())
	if r.Payload() == nil {
		return nil
	}
	return r.Payload().Render(w)
}

// Write пишет в w строку, байты или вложенный payload.
func Write(w io.Writer, v any) error {
	switch x := v.(type) {
	case nil:
		return nil
	case core.Payload:
		return x.Render(w)
	case string:
		_, err := io.WriteString(w, x)
		return err
	case []byte:
		_, err := w.Write(x)
		return err
	case fmt.Stringer:
		_, err := io.WriteString(w, x.String())
		return err
	}
	_, err := fmt.Fprint(w, v)
	return err
}
