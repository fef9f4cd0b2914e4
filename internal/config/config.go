package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"duet/internal/core"
)

// ErrUnknownOption возвращается для незарегистрированной опции.
var ErrUnknownOption = errors.New("unknown option")

// DataKey задает ключ, под которым Store кладется в данные запроса.
const DataKey = "config"

// ResolveFunc вычисляет итоговое значение опции из сырой строки.
// ok=false означает, что значение в файле не задано.
type ResolveFunc func(s *Store, raw string, ok bool) string

// Option описывает одну настройку.
type Option struct {
	Name    string
	Doc     string
	Resolve ResolveFunc
}

// Store хранит сырые строковые значения и таблицу опций в порядке регистрации.
type Store struct {
	path    string
	raw     map[string]string
	options []Option
	index   map[string]int
}

type fileFormat struct {
	Config map[string]string `yaml:"config"`
}

// New создает хранилище без файла с опциями по умолчанию.
func New() *Store {
	s := &Store{raw: make(map[string]string), index: make(map[string]int)}
	for _, opt := range defaultOptions() {
		s.Register(opt)
	}
	return s
}

// DefaultPath возвращает путь к файлу настроек: $DUET_CONFIG или
// <user config dir>/duet/config.yaml.
func DefaultPath() string {
	if p := os.Getenv("DUET_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "duet.yaml")
	}
	return filepath.Join(dir, "duet", "config.yaml")
}

// Load читает YAML поверх значений по умолчанию. Отсутствующий файл
// не ошибка: все опции берут значения по умолчанию.
func Load(path string) (*Store, error) {
	s := New()
	s.path = path
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- путь задается оператором.
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("read config: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return s, nil
	}
	var ff fileFormat
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return s, fmt.Errorf("parse config %s: %w", path, err)
	}
	for k, v := range ff.Config {
		s.raw[k] = v
	}
	return s, nil
}

// Register добавляет опцию; повторная регистрация заменяет функцию,
// сохраняя исходную позицию.
func (s *Store) Register(opt Option) {
	if i, ok := s.index[opt.Name]; ok {
		s.options[i] = opt
		return
	}
	s.index[opt.Name] = len(s.options)
	s.options = append(s.options, opt)
}

// Options возвращает опции в порядке регистрации.
func (s *Store) Options() []Option {
	out := make([]Option, len(s.options))
	copy(out, s.options)
	return out
}

// Path возвращает файл, в который пишет Save.
func (s *Store) Path() string { return s.path }

// Raw возвращает сохраненное значение без обработки.
func (s *Store) Raw(name string) (string, bool) {
	v, ok := s.raw[name]
	return v, ok
}

// Get вычисляет значение опции.
func (s *Store) Get(name string) (string, error) {
	i, ok := s.index[name]
	if !ok {
		return "", fmt.Errorf("%s: %w", name, ErrUnknownOption)
	}
	raw, set := s.raw[name]
	return s.options[i].Resolve(s, raw, set), nil
}

func (s *Store) value(name string) string {
	v, err := s.Get(name)
	if err != nil {
		return ""
	}
	return v
}

// Set запоминает сырое значение; на диск попадает после Save.
func (s *Store) Set(name, value string) error {
	if _, ok := s.index[name]; !ok {
		return fmt.Errorf("%s: %w", name, ErrUnknownOption)
	}
	s.raw[name] = value
	return nil
}

// Save пишет сырые значения в файл, создавая каталог при необходимости.
func (s *Store) Save() error {
	if s.path == "" {
		return errors.New("config path is not set")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(fileFormat{Config: s.raw})
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// FromRequest достает Store из данных запроса; nil, если его там нет.
func FromRequest(req core.Request) *Store {
	v, ok := req.Data(DataKey)
	if !ok {
		return nil
	}
	s, _ := v.(*Store)
	return s
}
