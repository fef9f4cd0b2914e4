package web

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"reflect"
	"sort"

	"duet/internal/core"
)

const (
	TextHTML        = "text/html; charset=utf-8"
	ApplicationJSON = "application/json"
)

// JSONPayload сериализует произвольные данные в JSON при выводе.
type JSONPayload struct {
	data any
}

func NewJSONPayload(data any) *JSONPayload {
	return &JSONPayload{data: data}
}

func (p *JSONPayload) ContentType() string { return ApplicationJSON }

func (p *JSONPayload) SetData(data any) { p.data = data }

func (p *JSONPayload) Data() any { return p.data }

func (p *JSONPayload) Render(w io.Writer) error {
	data, err := json.Marshal(p.data)
	if err != nil {
		return fmt.Errorf("marshal json payload: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// HTMLPayload собирает разметку из частей. Строки считаются готовой
// разметкой, вложенные payload'ы отрисовываются на месте.
type HTMLPayload struct {
	parts []any
}

func NewHTMLPayload() *HTMLPayload { return &HTMLPayload{} }

func (p *HTMLPayload) ContentType() string { return TextHTML }

// Add дописывает части без экранирования.
func (p *HTMLPayload) Add(parts ...any) *HTMLPayload {
	p.parts = append(p.parts, parts...)
	return p
}

// Addf форматирует разметку, экранируя каждый аргумент через Escape.
func (p *HTMLPayload) Addf(format string, args ...any) *HTMLPayload {
	escaped := make([]any, len(args))
	for i, arg := range args {
		escaped[i] = Escape(arg)
	}
	p.parts = append(p.parts, fmt.Sprintf(format, escaped...))
	return p
}

func (p *HTMLPayload) Render(w io.Writer) error {
	for _, part := range p.parts {
		if err := Write(w, part); err != nil {
			return err
		}
	}
	return nil
}

var escapeString = html.EscapeString

var anyType = reflect.TypeOf((*any)(nil)).Elem()

// Escape готовит значение к вставке в HTML:
//   - *HTMLPayload возвращается как есть;
//   - строка экранируется вместе с кавычками;
//   - массив [N]T становится [N]any с экранированными элементами;
//   - map оборачивается в MapView, который экранирует значение при чтении ключа;
//   - остальное возвращается без изменений.
func Escape(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case *HTMLPayload:
		return x
	case string:
		return escapeString(x)
	case []byte:
		return []byte(escapeString(string(x)))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return escapeString(rv.String())
	case reflect.Array:
		out := reflect.New(reflect.ArrayOf(rv.Len(), anyType)).Elem()
		for i := 0; i < rv.Len(); i++ {
			if e := Escape(rv.Index(i).Interface()); e != nil {
				out.Index(i).Set(reflect.ValueOf(e))
			}
		}
		return out.Interface()
	case reflect.Map:
		return MapView{m: rv}
	}
	return v
}

// MapView дает ленивое представление map: значение экранируется только
// при чтении его ключа.
type MapView struct {
	m reflect.Value
}

// Get возвращает экранированное значение ключа.
func (v MapView) Get(key any) (any, bool) {
	if !v.m.IsValid() {
		return nil, false
	}
	kv := reflect.ValueOf(key)
	keyType := v.m.Type().Key()
	if !kv.IsValid() {
		return nil, false
	}
	if !kv.Type().AssignableTo(keyType) {
		if !kv.Type().ConvertibleTo(keyType) {
			return nil, false
		}
		kv = kv.Convert(keyType)
	}
	val := v.m.MapIndex(kv)
	if !val.IsValid() {
		return nil, false
	}
	return Escape(val.Interface()), true
}

// Value возвращает экранированное значение или nil.
func (v MapView) Value(key any) any {
	val, _ := v.Get(key)
	return val
}

func (v MapView) Len() int {
	if !v.m.IsValid() {
		return 0
	}
	return v.m.Len()
}

// Keys возвращает ключи, упорядоченные по строковому представлению.
// Сами ключи не экранируются.
func (v MapView) Keys() []any {
	if !v.m.IsValid() {
		return nil
	}
	keys := v.m.MapKeys()
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.Interface())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return fmt.Sprint(out[i]) < fmt.Sprint(out[j])
	})
	return out
}

// Error описывает ошибку предметной области с HTTP-статусом, заголовком и описанием.
type Error struct {
	Status int
	Title  string
	Desc   string
}

func NewError(status int, title, desc string) *Error {
	return &Error{Status: status, Title: title, Desc: desc}
}

func (e *Error) Error() string {
	if e.Desc == "" {
		return e.Title
	}
	return e.Title + ": " + e.Desc
}

// ErrorPayload отрисовывает Error как HTML-страницу и задает статус ответа.
type ErrorPayload struct {
	err *Error
}

func NewErrorPayload(err *Error) *ErrorPayload {
	return &ErrorPayload{err: err}
}

func (p *ErrorPayload) ContentType() string { return TextHTML }

func (p *ErrorPayload) Err() *Error { return p.err }

// Status возвращает статус ошибки; 500, если он не задан.
func (p *ErrorPayload) Status() int {
	if p.err == nil || p.err.Status == 0 {
		return http.StatusInternalServerError
	}
	return p.err.Status
}

func (p *ErrorPayload) Render(w io.Writer) error {
	var title, desc string
	if p.err != nil {
		title, desc = p.err.Title, p.err.Desc
	}
	page := NewHTMLPayload().
		Add("<!DOCTYPE html>\n<html><head>").
		Addf("<title>%s</title></head><body>\n<h1>%s</h1>\n", title, title)
	if desc != "" {
		page.Addf("<p>%s</p>\n", desc)
	}
	page.Add("</body></html>\n")
	return page.Render(w)
}

var (
	_ core.Payload  = (*JSONPayload)(nil)
	_ core.Payload  = (*HTMLPayload)(nil)
	_ StatusPayload = (*ErrorPayload)(nil)
)
