package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"WeaveSync/internal/config"
	"WeaveSync/internal/service"
)

// Коды выхода weave-admin.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitNotFound = 3
)

func isHelp(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "-help"
}

// Dispatch выполняет команду из args (то, что осталось после флагов конфигурации)
// и возвращает код выхода процесса.
func Dispatch(ctx context.Context, cfg *config.Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(Out, FormatGlobalUsage())
		return ExitUsage
	}

	name := strings.ToLower(args[0])
	if name == "help" || isHelp(name) {
		if len(args) == 1 {
			fmt.Fprint(Out, FormatGlobalUsage())
			return ExitOK
		}
		return commandHelp(args[1])
	}

	c, ok := Get(name)
	if !ok {
		fmt.Fprintf(Out, "Unknown command: %s\n\n", name)
		fmt.Fprint(Out, FormatGlobalUsage())
		return ExitUsage
	}
	// weave-admin passwd --help
	for _, a := range args[1:] {
		if isHelp(a) {
			return commandHelp(name)
		}
	}

	err := c.Run(ctx, cfg, args[1:])
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage):
		fmt.Fprintf(Out, "Usage: %s\n", c.Usage())
		return ExitUsage
	case errors.Is(err, service.ErrUserNotFound):
		fmt.Fprintf(Out, "%s error: %v\n", name, err)
		return ExitNotFound
	default:
		fmt.Fprintf(Out, "%s error: %v\n", name, err)
		return ExitFailure
	}
}

func commandHelp(name string) int {
	c, ok := Get(strings.ToLower(name))
	if !ok {
		fmt.Fprintf(Out, "Unknown command: %s\n\n", name)
		fmt.Fprint(Out, FormatGlobalUsage())
		return ExitUsage
	}
	fmt.Fprintf(Out, "Usage: weave-admin %s\n  %s\n", c.Usage(), c.Description())
	return ExitOK
}
