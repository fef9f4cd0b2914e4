package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"duet/internal/core"
	"duet/internal/ext"
	"duet/internal/ordering"
)

// Request описывает вызов из командной строки. Аргументы разбираются в два этапа:
// общие опции до имени команды, затем опции самой команды.
type Request struct {
	core.BaseRequest

	argv     []string
	prog     string
	usage    string
	registry *ext.Registry
	stdout   io.Writer
	stderr   io.Writer

	common *pflag.FlagSet
	tool   *pflag.FlagSet
	help   bool
	parsed bool

	toolName   string
	commonArgs []string
	toolArgs   []string
}

// Option настраивает Request.
type Option func(*Request)

// WithEnviron задает снимок окружения вместо окружения процесса.
func WithEnviron(environ map[string]string) Option {
	return func(r *Request) { r.BaseRequest = core.NewBaseRequest(environ) }
}

// WithRegistry задает реестр, из которого берутся responder'ы.
func WithRegistry(reg *ext.Registry) Option {
	return func(r *Request) { r.registry = reg }
}

// WithOutput задает потоки для вывода и диагностики.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(r *Request) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// WithProgram задает имя программы для %prog в справке.
func WithProgram(name string) Option {
	return func(r *Request) { r.prog = name }
}

// NewRequest создает запрос; argv == nil означает аргументы процесса.
func NewRequest(argv []string, opts ...Option) *Request {
	if argv == nil {
		argv = os.Args[1:]
	}
	r := &Request{
		argv:     append([]string(nil), argv...),
		prog:     filepath.Base(os.Args[0]),
		registry: ext.Default,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
	r.BaseRequest = core.NewBaseRequest(nil)
	for _, opt := range opts {
		opt(r)
	}

	r.common = pflag.NewFlagSet(r.prog, pflag.ContinueOnError)
	r.common.SetInterspersed(false)
	r.common.SetOutput(io.Discard)
	r.common.Usage = func() {}
	r.common.BoolVarP(&r.help, "help", "h", false, "print this help message and exit")

	r.tool = pflag.NewFlagSet(r.prog, pflag.ContinueOnError)
	r.tool.SetOutput(io.Discard)
	r.tool.Usage = func() {}
	return r
}

// SetUsage задает строку использования; %prog заменяется именем программы.
func (r *Request) SetUsage(usage string) { r.usage = usage }

// CommonFlags возвращает набор общих опций; дополнять до ParseCommonOptions.
func (r *Request) CommonFlags() *pflag.FlagSet { return r.common }

// ToolFlags возвращает набор опций команды; дополняет responder в AddToolOptions.
func (r *Request) ToolFlags() *pflag.FlagSet { return r.tool }

// ParseCommonOptions разбирает общие опции до первого позиционного аргумента,
// который становится именем команды. Повторный вызов ничего не делает.
func (r *Request) ParseCommonOptions() error {
	if r.parsed {
		return nil
	}
	r.parsed = true
	if err := r.common.Parse(r.argv); err != nil {
		return fmt.Errorf("parse common options: %w", err)
	}
	args := r.common.Args()
	if len(args) > 0 {
		r.toolName = args[0]
		r.commonArgs = args[1:]
	}
	return nil
}

// ParseToolOptions разбирает остаток аргументов опциями команды.
func (r *Request) ParseToolOptions() error {
	if err := r.tool.Parse(r.commonArgs); err != nil {
		return fmt.Errorf("parse %s options: %w", r.toolName, err)
	}
	r.toolArgs = r.tool.Args()
	return nil
}

func (r *Request) IsHelpRequest() bool { return r.help }

// ToolName возвращает имя команды или "", если команда не указана.
func (r *Request) ToolName() string { return r.toolName }

// CommonArgs возвращает аргументы после имени команды до разбора опций команды.
func (r *Request) CommonArgs() []string { return r.commonArgs }

// ToolArgs возвращает позиционные аргументы команды.
func (r *Request) ToolArgs() []string { return r.toolArgs }

// CommonOption возвращает значение общей опции или def, если ее нет.
func (r *Request) CommonOption(name, def string) string {
	return flagValue(r.common, name, def)
}

// ToolOption возвращает значение опции команды или def, если ее нет.
func (r *Request) ToolOption(name, def string) string {
	return flagValue(r.tool, name, def)
}

func flagValue(fs *pflag.FlagSet, name, def string) string {
	f := fs.Lookup(name)
	if f == nil {
		return def
	}
	return f.Value.String()
}

func (r *Request) Registry() *ext.Registry { return r.registry }

func (r *Request) Program() string { return r.prog }

func (r *Request) Stdout() io.Writer { return r.stdout }

func (r *Request) Stderr() io.Writer { return r.stderr }

// ToolResponders возвращает все command responder'ы реестра,
// отсортированные по имени команды без учета регистра.
func (r *Request) ToolResponders() ([]Responder, error) {
	return ordering.Sorted(ext.Of[Responder](r.registry, Category), "Command")
}
