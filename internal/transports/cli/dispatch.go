package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"duet/internal/core"
)

// UsageErrorCode задает код результата при неверных опциях.
const UsageErrorCode = 2

// Dispatch находит responder по имени команды и передает ему запрос.
// Ошибки разбора и поиска возвращаются ответом с ненулевым кодом, а не error.
func Dispatch(ctx context.Context, req *Request) core.Response {
	if err := req.ParseCommonOptions(); err != nil {
		return usageError(req, err)
	}

	tool := req.ToolName()
	var responder Responder
	if tool != "" {
		responders, err := req.ToolResponders()
		if err != nil {
			return NewErrorResponse(req, err.Error())
		}
		for _, res := range responders {
			if res.Command() == tool {
				responder = res
				break
			}
		}
		if responder == nil {
			return NewErrorResponse(req, fmt.Sprintf("%s is not a valid command.", tool))
		}
		if s, ok := responder.(UsageSetter); ok {
			s.SetUsage(req)
		}
		if a, ok := responder.(ToolOptionAdder); ok {
			a.AddToolOptions(req)
		}
	}

	if req.IsHelpRequest() {
		printHelp(ctx, req)
		return NewResponse(req)
	}

	if responder == nil {
		printHelp(ctx, req)
		return NewErrorResponse(req, "You must specify a command.")
	}

	if err := req.ParseToolOptions(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(ctx, req)
			return NewResponse(req)
		}
		return usageError(req, err)
	}

	slog.DebugContext(ctx, "dispatching command", "command", tool, "args", req.ToolArgs())
	res, err := responder.Respond(ctx, req)
	if err != nil {
		slog.ErrorContext(ctx, "command failed", "command", tool, "err", err)
		return NewErrorResponse(req, err.Error())
	}
	if res == nil {
		return NewResponse(req)
	}
	return res
}

func usageError(req *Request, err error) *Response {
	res := NewResponse(req)
	res.SetError(UsageErrorCode, err.Error())
	return res
}

func printHelp(ctx context.Context, req *Request) {
	if err := req.PrintHelp(); err != nil {
		slog.WarnContext(ctx, "print help failed", "err", err)
	}
}
