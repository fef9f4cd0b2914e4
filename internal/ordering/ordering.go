// Package ordering сортирует значения по именованным атрибутам.
//
// Атрибутом служит имя поля структуры, метода без аргументов или ключа map.
// Путь через точку ("Owner.Name") спускается по вложенным значениям,
// "[key]" читает ключ map. Префикс "-" задает убывающий порядок.
// Строки сравниваются без учета регистра, сортировка стабильная.
package ordering

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

var ErrNoAttribute = errors.New("no such attribute")

type sortKey struct {
	path []string
	desc bool
}

func parseKeys(attrs []string) []sortKey {
	keys := make([]sortKey, 0, len(attrs))
	for _, attr := range attrs {
		k := sortKey{}
		if strings.HasPrefix(attr, "-") {
			k.desc = true
			attr = attr[1:]
		}
		k.path = strings.Split(attr, ".")
		keys = append(keys, k)
	}
	return keys
}

// Sorted возвращает отсортированную копию items. Исходный срез не меняется.
func Sorted[T any](items []T, attrs ...string) ([]T, error) {
	out := make([]T, len(items))
	copy(out, items)
	if len(attrs) == 0 || len(out) < 2 {
		return out, nil
	}

	keys := parseKeys(attrs)
	fold := cases.Fold()
	values := make([][]any, len(out))
	for i, item := range out {
		row := make([]any, len(keys))
		for j, k := range keys {
			v, err := resolve(reflect.ValueOf(item), k.path)
			if err != nil {
				return nil, err
			}
			if s, ok := v.(string); ok {
				v = fold.String(s)
			}
			row[j] = v
		}
		values[i] = row
	}

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := values[idx[a]], values[idx[b]]
		for j, k := range keys {
			c := compare(ra[j], rb[j])
			if c == 0 {
				continue
			}
			if k.desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	sorted := make([]T, len(out))
	for i, src := range idx {
		sorted[i] = out[src]
	}
	return sorted, nil
}

func resolve(v reflect.Value, path []string) (any, error) {
	for _, name := range path {
		next, err := attr(v, name)
		if err != nil {
			return nil, err
		}
		v = next
	}
	if !v.IsValid() {
		return nil, nil
	}
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.String {
		return v.String(), nil
	}
	return v.Interface(), nil
}

func attr(v reflect.Value, name string) (reflect.Value, error) {
	if !v.IsValid() {
		return reflect.Value{}, fmt.Errorf("%s on nil value: %w", name, ErrNoAttribute)
	}
	if m := method(v, name); m.IsValid() {
		return m.Call(nil)[0], nil
	}
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("%s on nil value: %w", name, ErrNoAttribute)
		}
		v = v.Elem()
		if m := method(v, name); m.IsValid() {
			return m.Call(nil)[0], nil
		}
	}

	switch v.Kind() {
	case reflect.Map:
		key := strings.TrimSuffix(strings.TrimPrefix(name, "["), "]")
		kv := reflect.ValueOf(key)
		if !kv.Type().ConvertibleTo(v.Type().Key()) {
			return reflect.Value{}, fmt.Errorf("map key %s: %w", name, ErrNoAttribute)
		}
		return v.MapIndex(kv.Convert(v.Type().Key())), nil
	case reflect.Struct:
		if f := v.FieldByName(exported(name)); f.IsValid() && f.CanInterface() {
			return f, nil
		}
	}
	return reflect.Value{}, fmt.Errorf("%s on %s: %w", name, v.Type(), ErrNoAttribute)
}

// method ищет метод без аргументов с одним результатом.
func method(v reflect.Value, name string) reflect.Value {
	m := v.MethodByName(exported(name))
	if !m.IsValid() {
		return reflect.Value{}
	}
	if t := m.Type(); t.NumIn() != 0 || t.NumOut() != 1 {
		return reflect.Value{}
	}
	return m
}

func exported(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

// compare: nil меньше любого значения, числа сравниваются как числа,
// прочее по строковому представлению.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			default:
				return 1
			}
		}
	}
	sa, ok := a.(string)
	if !ok {
		sa = fmt.Sprint(a)
	}
	sb, ok := b.(string)
	if !ok {
		sb = fmt.Sprint(b)
	}
	return strings.Compare(sa, sb)
}

func number(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
