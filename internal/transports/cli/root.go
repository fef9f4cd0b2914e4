package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ExitError переносит ненулевой код результата до main.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Runner исполняет один вызов и возвращает код результата.
type Runner interface {
	RunCommand(ctx context.Context, args []string, stdout, stderr io.Writer) int
	RunCGI(ctx context.Context, stdin io.Reader, stdout io.Writer) int
	IsCGI() bool
}

// New создает корневую CLI-команду. Разбор флагов cobra отключен:
// argv целиком уходит в двухэтапный разбор Request.
func New(runner Runner) *cobra.Command {
	return &cobra.Command{
		Use:                "duet [common options] <command> [command arguments]",
		Short:              "Запуск responder'ов из командной строки или как CGI",
		DisableFlagParsing: true,
		SilenceErrors:      true,
		SilenceUsage:       true,
		Args:               cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var code int
			if runner.IsCGI() {
				code = CGIExitCode(runner.RunCGI(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout()))
			} else {
				code = runner.RunCommand(cmd.Context(), args, cmd.OutOrStdout(), cmd.ErrOrStderr())
			}
			if code != 0 {
				return &ExitError{Code: code}
			}
			return nil
		},
	}
}

// CGIExitCode сводит код результата web-ответа (HTTP-статус вроде 404)
// к коду завершения процесса: 0 при успехе, иначе 1. Статус уже передан
// серверу в строке Status.
func CGIExitCode(outcome int) int {
	if outcome == 0 {
		return 0
	}
	return 1
}
