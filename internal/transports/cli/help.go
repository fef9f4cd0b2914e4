package cli

import (
	"fmt"
	"io"
	"strings"
)

const defaultUsage = "%prog [common options] <command> [command arguments]"

// PrintHelp выводит справку: общие опции, затем либо список команд,
// либо опции выбранной команды.
func (r *Request) PrintHelp() error {
	var b strings.Builder

	usage := defaultUsage
	if r.toolName != "" && r.usage != "" {
		usage = r.usage
	}
	fmt.Fprintf(&b, "Usage: %s\n", strings.ReplaceAll(usage, "%prog", r.prog))

	b.WriteString("\nCommon Options:\n")
	b.WriteString(r.common.FlagUsages())

	if r.toolName == "" {
		responders, err := r.ToolResponders()
		if err != nil {
			return err
		}
		if len(responders) > 0 {
			b.WriteString("\nCommands:\n")
			maxlen := 0
			for _, res := range responders {
				if n := len(res.Command()); n > maxlen {
					maxlen = n
				}
			}
			maxlen += 2
			for _, res := range responders {
				cmd := res.Command()
				b.WriteString("  " + cmd + strings.Repeat(" ", maxlen-len(cmd)) + res.Synopsis() + "\n")
			}
		}
	} else if r.tool.HasFlags() {
		b.WriteString("\nCommand Options:\n")
		b.WriteString(r.tool.FlagUsages())
	}

	_, err := io.WriteString(r.stdout, b.String())
	return err
}
