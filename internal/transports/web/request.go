package web

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"duet/internal/core"
)

// DefaultRootURL используется, пока корневой URL сайта не задан.
const DefaultRootURL = "http://127.0.0.1/"

const maxFormMemory = 8 << 20

// Request описывает web-запрос, построенный из CGI-окружения. Путь, query, данные
// формы и cookie разбираются один раз при создании.
type Request struct {
	core.BaseRequest

	http     bool
	rootURL  string
	method   string
	pathInfo string

	path     []string
	query    map[string]string
	postData map[string]string
	cookies  []*http.Cookie
}

type requestOptions struct {
	environ      map[string]string
	http         bool
	rootURL      string
	pathInfo     *string
	queryString  *string
	cookieHeader *string
	body         io.Reader
}

// Option настраивает Request.
type Option func(*requestOptions)

// WithEnviron задает снимок окружения вместо окружения процесса.
func WithEnviron(environ map[string]string) Option {
	return func(o *requestOptions) { o.environ = environ }
}

// WithHTTP задает, выводить ли статус и заголовки перед телом.
func WithHTTP(enabled bool) Option {
	return func(o *requestOptions) { o.http = enabled }
}

// WithRootURL задает корневой URL сайта для cookie и redirect.
func WithRootURL(rootURL string) Option {
	return func(o *requestOptions) { o.rootURL = rootURL }
}

// WithPathInfo заменяет PATH_INFO окружения.
func WithPathInfo(pathInfo string) Option {
	return func(o *requestOptions) { o.pathInfo = &pathInfo }
}

// WithQueryString заменяет QUERY_STRING окружения.
func WithQueryString(qs string) Option {
	return func(o *requestOptions) { o.queryString = &qs }
}

// WithCookieHeader заменяет HTTP_COOKIE окружения.
func WithCookieHeader(header string) Option {
	return func(o *requestOptions) { o.cookieHeader = &header }
}

// WithBody задает поток тела POST-запроса; по умолчанию stdin.
func WithBody(body io.Reader) Option {
	return func(o *requestOptions) { o.body = body }
}

// NewRequest разбирает окружение. Ошибки входных данных не фатальны:
// битые байты заменяются, нечитаемые формы и cookie дают пустой результат.
func NewRequest(opts ...Option) *Request {
	o := requestOptions{http: true, rootURL: DefaultRootURL}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Request{
		BaseRequest: core.NewBaseRequest(o.environ),
		http:        o.http,
		rootURL:     o.rootURL,
		query:       make(map[string]string),
		postData:    make(map[string]string),
	}
	if r.rootURL == "" {
		r.rootURL = DefaultRootURL
	}
	r.method = r.Getenv("REQUEST_METHOD")

	if o.pathInfo != nil {
		r.pathInfo = *o.pathInfo
	} else {
		r.pathInfo = r.Getenv("PATH_INFO")
	}
	r.path = splitPath(decodeUTF8(r.pathInfo))

	qs := r.Getenv("QUERY_STRING")
	if o.queryString != nil {
		qs = *o.queryString
	}
	values, err := url.ParseQuery(qs)
	if err != nil {
		slog.Warn("malformed query string", "err", err)
	}
	r.query = firstValues(values)

	if r.method == http.MethodPost {
		body := o.body
		if body == nil {
			body = os.Stdin
		}
		data, err := parsePost(r, body)
		if err != nil {
			slog.Warn("malformed form data", "err", err)
		}
		r.postData = data
	}

	cookies := r.Getenv("HTTP_COOKIE")
	if o.cookieHeader != nil {
		cookies = *o.cookieHeader
	}
	r.cookies = parseCookies(cookies)
	return r
}

// IsHTTP сообщает, нужен ли вывод статуса и заголовков.
func (r *Request) IsHTTP() bool { return r.http }

func (r *Request) RootURL() string { return r.rootURL }

func (r *Request) Method() string { return r.method }

func (r *Request) PathInfo() string { return r.pathInfo }

// Path возвращает непустые сегменты PATH_INFO.
func (r *Request) Path() []string {
	return append([]string(nil), r.path...)
}

// Query возвращает параметр query; при повторах побеждает первое значение.
func (r *Request) Query(key string) (string, bool) {
	v, ok := r.query[key]
	return v, ok
}

// QueryValue возвращает параметр query или def.
func (r *Request) QueryValue(key, def string) string {
	if v, ok := r.query[key]; ok {
		return v
	}
	return def
}

// PostValue возвращает поле формы POST или def.
func (r *Request) PostValue(key, def string) string {
	if v, ok := r.postData[key]; ok {
		return v
	}
	return def
}

// PostData возвращает копию полей формы.
func (r *Request) PostData() map[string]string {
	out := make(map[string]string, len(r.postData))
	for k, v := range r.postData {
		out[k] = v
	}
	return out
}

func (r *Request) Cookies() []*http.Cookie { return r.cookies }

// Cookie возвращает значение cookie по имени.
func (r *Request) Cookie(name string) (string, bool) {
	for _, c := range r.cookies {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

func splitPath(pathInfo string) []string {
	parts := strings.Split(pathInfo, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// decodeUTF8 заменяет некорректные последовательности на U+FFFD.
func decodeUTF8(s string) string {
	out, err := unicode.UTF8.NewDecoder().String(s)
	if err != nil {
		return strings.ToValidUTF8(s, "�")
	}
	return out
}

func firstValues(values url.Values) map[string]string {
	out := make(map[string]string, len(values))
	for k, vs := range values {
		if len(vs) == 0 {
			continue
		}
		out[decodeUTF8(k)] = decodeUTF8(vs[0])
	}
	return out
}

// parsePost читает только тело: query string в разбор формы не попадает.
func parsePost(r *Request, body io.Reader) (map[string]string, error) {
	ct := r.Getenv("CONTENT_TYPE")
	if ct == "" {
		ct = "application/x-www-form-urlencoded"
	}
	hr := &http.Request{
		Method: http.MethodPost,
		Header: http.Header{"Content-Type": {ct}},
		Body:   io.NopCloser(body),
	}
	if n, err := strconv.ParseInt(r.Getenv("CONTENT_LENGTH"), 10, 64); err == nil && n >= 0 {
		hr.ContentLength = n
		hr.Body = io.NopCloser(io.LimitReader(body, n))
	}

	var err error
	if mediaType, _, _ := mime.ParseMediaType(ct); mediaType == "multipart/form-data" {
		err = hr.ParseMultipartForm(maxFormMemory)
		if hr.MultipartForm != nil {
			defer func() { _ = hr.MultipartForm.RemoveAll() }()
		}
	} else {
		err = hr.ParseForm()
	}
	return firstValues(hr.PostForm), err
}

func parseCookies(header string) []*http.Cookie {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	hr := &http.Request{Header: http.Header{"Cookie": {header}}}
	return hr.Cookies()
}
