package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"

	"duet/internal/config"
	"duet/internal/core"
	"duet/internal/ext"
	"duet/internal/modules"
	"duet/internal/storage"
	"duet/internal/storage/sqlite"
	"duet/internal/transports/cli"
	"duet/internal/transports/web"
)

// App агрегирует зависимости: реестр responder'ов, настройки и историю.
type App struct {
	Registry *ext.Registry
	Config   *config.Store
	Store    storage.Store
	// Environ заменяет окружение процесса; nil означает текущее окружение.
	Environ map[string]string
}

// New собирает приложение из готовых частей.
func New(reg *ext.Registry, cfg *config.Store, st storage.Store) *App {
	if cfg == nil {
		cfg = config.New()
	}
	return &App{Registry: reg, Config: cfg, Store: st}
}

// NewApp загружает настройки, подключает плагины обоих доменов и открывает
// историю вызовов. Недоступная история не мешает работе.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	reg := ext.NewRegistry()
	for _, domain := range []string{modules.DomainCmd, modules.DomainWeb} {
		if err := ext.Discover(ctx, reg, modules.Base, domain); err != nil {
			return nil, fmt.Errorf("discover %s modules: %w", domain, err)
		}
	}

	a := New(reg, cfg, nil)
	dbPath := cfg.Settings().DBPath
	st, err := sqlite.Open(dbPath)
	if err != nil {
		slog.WarnContext(ctx, "invocation history disabled", "path", dbPath, "err", err)
	} else {
		a.Store = st
	}
	return a, nil
}

// Close высвобождает ресурсы приложения.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// IsCGI сообщает, запущен ли процесс web-сервером по CGI.
func (a *App) IsCGI() bool {
	if a.Environ != nil {
		_, ok := a.Environ["GATEWAY_INTERFACE"]
		return ok
	}
	_, ok := os.LookupEnv("GATEWAY_INTERFACE")
	return ok
}

// prepare кладет в данные запроса настройки, хранилище и request id.
func (a *App) prepare(req core.Request, requestID string) {
	req.SetData(core.DataRequestID, requestID)
	req.SetData(config.DataKey, a.Config)
	if a.Store != nil {
		req.SetData(storage.DataKey, a.Store)
	}
}

type errorTexter interface {
	ErrorText() string
}

// RunCommand выполняет один вызов командной строки и возвращает код результата.
func (a *App) RunCommand(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	requestID := uuid.NewString()
	req := cli.NewRequest(args,
		cli.WithRegistry(a.Registry),
		cli.WithOutput(stdout, stderr),
		cli.WithEnviron(a.Environ),
	)
	a.prepare(req, requestID)

	res := cli.Dispatch(ctx, req)
	code := res.ReturnCode()

	var msg string
	if et, ok := res.(errorTexter); ok && et.ErrorText() != "" {
		msg = et.ErrorText()
		if _, err := fmt.Fprintln(stderr, msg); err != nil {
			slog.WarnContext(ctx, "write error text failed", "err", err)
		}
	}
	if err := res.Output(stdout); err != nil {
		slog.ErrorContext(ctx, "output failed", "command", req.ToolName(), "err", err)
		if code == 0 {
			code = 1
		}
		msg = err.Error()
	}

	storage.Record(ctx, a.Store, storage.Invocation{
		RequestID: requestID,
		Transport: modules.DomainCmd,
		Target:    req.ToolName(),
		Outcome:   code,
		Message:   msg,
	})
	return code
}

// RunCGI обрабатывает один CGI-запрос: окружение и stdin на входе,
// статус, заголовки и тело в stdout.
func (a *App) RunCGI(ctx context.Context, stdin io.Reader, stdout io.Writer) int {
	requestID := uuid.NewString()
	settings := a.Config.Settings()
	req := web.NewRequest(
		web.WithEnviron(a.Environ),
		web.WithBody(stdin),
		web.WithRootURL(settings.WebRootURL),
	)
	a.prepare(req, requestID)

	var res *web.Response
	responder, err := web.Select(a.Registry, settings.WebResponder)
	if err != nil {
		slog.ErrorContext(ctx, "select web responder failed", "name", settings.WebResponder, "err", err)
		res = web.NewResponse(req)
		res.SetPayload(web.NewErrorPayload(web.NewError(http.StatusInternalServerError,
			"Internal server error", "No web responder is configured.")))
	} else {
		res = web.Respond(ctx, responder, req)
	}

	if err := res.Output(stdout); err != nil {
		slog.ErrorContext(ctx, "write web response failed", "path", req.PathInfo(), "err", err)
	}
	RecordWeb(ctx, a.Store, req, res)
	return res.ReturnCode()
}

// RecordWeb сохраняет web-вызов в историю. Используется и CGI, и dev-сервером.
func RecordWeb(ctx context.Context, st storage.Store, req *web.Request, res *web.Response) {
	var msg string
	if ep, ok := res.Payload().(*web.ErrorPayload); ok && ep.Err() != nil {
		msg = ep.Err().Error()
	}
	storage.Record(ctx, st, storage.Invocation{
		RequestID: core.DataString(req, core.DataRequestID, ""),
		Transport: modules.DomainWeb,
		Target:    "/" + strings.Join(req.Path(), "/"),
		Outcome:   res.ReturnCode(),
		Message:   msg,
	})
}
