package ext

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrDuplicateExtension = errors.New("extension already registered")
	errInvalidArguments   = errors.New("invalid arguments")
)

// Category задает точку расширения. Подкатегории задаются путем через "/":
// "responder/cmd" входит в "responder".
type Category string

// Parent возвращает родительскую категорию или "" для корневой.
func (c Category) Parent() Category {
	i := strings.LastIndex(string(c), "/")
	if i < 0 {
		return ""
	}
	return c[:i]
}

// Contains сообщает, является ли other самой категорией или ее потомком.
func (c Category) Contains(other Category) bool {
	return other == c || strings.HasPrefix(string(other), string(c)+"/")
}

// Extension описывает зарегистрированную реализацию точки расширения.
type Extension struct {
	Category Category
	Name     string
	Impl     any
}

// Registry хранит реализации по категориям и множество отключенных.
// Заполняется при загрузке плагинов; во время обработки запроса только читается.
type Registry struct {
	mu       sync.RWMutex
	byCat    map[Category][]Extension
	disabled map[Category]map[string]struct{}
}

// Default хранит реестр процесса, в который загружаются плагины.
var Default = NewRegistry()

// NewRegistry создает пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		byCat:    make(map[Category][]Extension),
		disabled: make(map[Category]map[string]struct{}),
	}
}

// Register добавляет реализацию; имя должно быть уникальным внутри категории.
func (r *Registry) Register(cat Category, name string, impl any) error {
	if cat == "" || name == "" {
		return fmt.Errorf("category and name are required: %w", errInvalidArguments)
	}
	if impl == nil {
		return fmt.Errorf("%s/%s: implementation is nil: %w", cat, name, errInvalidArguments)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range r.byCat[cat] {
		if ext.Name == name {
			return fmt.Errorf("%s in %s: %w", name, cat, ErrDuplicateExtension)
		}
	}
	r.byCat[cat] = append(r.byCat[cat], Extension{Category: cat, Name: name, Impl: impl})
	return nil
}

// Disable исключает реализацию из всех последующих выборок категории
// (и выборок ее предков). Обратной операции нет.
func (r *Registry) Disable(cat Category, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.disabled[cat]
	if !ok {
		set = make(map[string]struct{})
		r.disabled[cat] = set
	}
	set[name] = struct{}{}
}

// Extensions возвращает все включенные реализации категории, рекурсивно
// со всеми подкатегориями. Порядок детерминирован, но смысла не несет:
// сортировать должен вызывающий.
func (r *Registry) Extensions(cat Category) []Extension {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cats := make([]Category, 0, len(r.byCat))
	for c := range r.byCat {
		if cat.Contains(c) {
			cats = append(cats, c)
		}
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	var out []Extension
	for _, c := range cats {
		for _, ext := range r.byCat[c] {
			if r.isDisabled(c, ext.Name) {
				continue
			}
			out = append(out, ext)
		}
	}
	return out
}

// isDisabled проверяет отключение в категории c и во всех ее предках.
// Отключение действует на любой запрос, как бы узко он ни был задан.
func (r *Registry) isDisabled(c Category, name string) bool {
	for {
		if _, ok := r.disabled[c][name]; ok {
			return true
		}
		if c == "" {
			return false
		}
		c = c.Parent()
	}
}

// Of возвращает реализации категории, приводимые к T. Остальные пропускаются.
func Of[T any](r *Registry, cat Category) []T {
	exts := r.Extensions(cat)
	out := make([]T, 0, len(exts))
	for _, ext := range exts {
		if impl, ok := ext.Impl.(T); ok {
			out = append(out, impl)
		}
	}
	return out
}
