package ext

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"sync"
)

// ErrModuleNotFound означает, что подпакет не реализует запрошенный домен.
var ErrModuleNotFound = errors.New("module not found")

// LoadFunc регистрирует реализации модуля в реестре.
type LoadFunc func(reg *Registry) error

type moduleTable struct {
	mu      sync.Mutex
	modules map[string]LoadFunc
	subdirs map[string]map[string]struct{}
}

var linked = &moduleTable{
	modules: make(map[string]LoadFunc),
	subdirs: make(map[string]map[string]struct{}),
}

// Provide объявляет модуль <base>/<sub>/<domain>. Вызывается из init()
// пакета плагина; связывание происходит импортом пакета в main.
func Provide(base, sub, domain string, fn LoadFunc) {
	if base == "" || sub == "" || domain == "" || fn == nil {
		panic("ext: Provide requires base, sub, domain and a load func")
	}
	name := path.Join(base, sub, domain)

	linked.mu.Lock()
	defer linked.mu.Unlock()
	if _, exists := linked.modules[name]; exists {
		panic(fmt.Sprintf("ext: module %q already provided", name))
	}
	linked.modules[name] = fn
	if linked.subdirs[base] == nil {
		linked.subdirs[base] = make(map[string]struct{})
	}
	linked.subdirs[base][sub] = struct{}{}
}

// Subdirs возвращает отсортированный список подпакетов base.
func Subdirs(base string) []string {
	linked.mu.Lock()
	defer linked.mu.Unlock()
	subs := make([]string, 0, len(linked.subdirs[base]))
	for sub := range linked.subdirs[base] {
		subs = append(subs, sub)
	}
	sort.Strings(subs)
	return subs
}

func lookupModule(name string) (LoadFunc, error) {
	linked.mu.Lock()
	defer linked.mu.Unlock()
	fn, ok := linked.modules[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrModuleNotFound)
	}
	return fn, nil
}

// Discover обходит подпакеты base и загружает модуль домена domain из
// каждого. Отсутствие модуля пропускается молча; любая другая ошибка
// загрузки означает сломанный плагин и возвращается сразу.
func Discover(ctx context.Context, reg *Registry, base, domain string) error {
	loaded := 0
	for _, sub := range Subdirs(base) {
		name := path.Join(base, sub, domain)
		fn, err := lookupModule(name)
		if errors.Is(err, ErrModuleNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := fn(reg); err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
		loaded++
		slog.DebugContext(ctx, "module loaded", "module", name)
	}
	slog.DebugContext(ctx, "discovery finished", "base", base, "domain", domain, "loaded", loaded)
	return nil
}
