package core

import (
	"os"
	"strings"
)

// Request хранит снимок окружения вызова плюс хранилище данных на время запроса.
type Request interface {
	Getenv(key string) string
	LookupEnv(key string) (string, bool)
	Environ() map[string]string
	SetData(key string, val any)
	Data(key string) (any, bool)
}

// BaseRequest реализует общую часть Request для транспортов.
// Окружение копируется при создании и дальше не меняется.
type BaseRequest struct {
	environ map[string]string
	data    map[string]any
}

// NewBaseRequest копирует environ; nil означает текущее окружение процесса.
func NewBaseRequest(environ map[string]string) BaseRequest {
	if environ == nil {
		environ = Environ()
	}
	snapshot := make(map[string]string, len(environ))
	for k, v := range environ {
		snapshot[k] = v
	}
	return BaseRequest{environ: snapshot, data: make(map[string]any)}
}

// Environ возвращает окружение процесса в виде map.
func Environ() map[string]string {
	env := os.Environ()
	out := make(map[string]string, len(env))
	for _, kv := range env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		out[k] = v
	}
	return out
}

func (r *BaseRequest) Getenv(key string) string {
	return r.environ[key]
}

func (r *BaseRequest) LookupEnv(key string) (string, bool) {
	v, ok := r.environ[key]
	return v, ok
}

// Environ возвращает копию снимка.
func (r *BaseRequest) Environ() map[string]string {
	out := make(map[string]string, len(r.environ))
	for k, v := range r.environ {
		out[k] = v
	}
	return out
}

func (r *BaseRequest) SetData(key string, val any) {
	if r.data == nil {
		r.data = make(map[string]any)
	}
	r.data[key] = val
}

func (r *BaseRequest) Data(key string) (any, bool) {
	v, ok := r.data[key]
	return v, ok
}

// DataString возвращает строковое значение из хранилища запроса или def.
func DataString(req Request, key, def string) string {
	v, ok := req.Data(key)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

// Ключи данных запроса, общие для транспортов.
const (
	DataRequestID = "request_id"
)
