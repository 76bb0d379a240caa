package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"WeaveSync/internal/config"
)

// ErrUsage - неверные аргументы; диспетчер печатает Usage команды.
var ErrUsage = errors.New("usage")

// Command - подкоманда weave-admin.
type Command interface {
	// Name - имя команды в командной строке, например "create-user".
	Name() string
	// Description - одна строка для общей справки.
	Description() string
	// Usage - синтаксис вызова, например "passwd <username> <new-password>".
	Usage() string
	// Run выполняет команду; args без имени команды.
	Run(ctx context.Context, cfg *config.Config, args []string) error
}

var registry = map[string]Command{}

// Out - куда пишет CLI, в тестах подменяется буфером.
var Out io.Writer = os.Stdout

// RegisterCmd вызывается из init() каждой команды.
func RegisterCmd(cmd Command) {
	registry[cmd.Name()] = cmd
}

func Get(name string) (Command, bool) {
	c, ok := registry[name]
	return c, ok
}

// List - команды по алфавиту.
func List() []Command {
	list := make([]Command, 0, len(registry))
	for _, c := range registry {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}

// adminFlags - флаги конфигурации, которые имеют смысл для weave-admin.
var adminFlags = []string{"driver", "d", "bcrypt-cost", "retention-days", "log-level", "log-file"}

// FormatGlobalUsage собирает общую справку: синтаксис, команды и флаги хранилища.
func FormatGlobalUsage() string {
	var b strings.Builder
	b.WriteString("WeaveSync admin\n\n")
	b.WriteString("Usage:\n  weave-admin [flags] <command> [args]\n  weave-admin help <command>\n\n")
	b.WriteString("Commands:\n")
	for _, c := range List() {
		fmt.Fprintf(&b, "  %-42s %s\n", c.Usage(), c.Description())
	}

	var flags []string
	for _, name := range adminFlags {
		if f := flag.Lookup(name); f != nil {
			flags = append(flags, fmt.Sprintf("  -%-16s %s", f.Name, f.Usage))
		}
	}
	if len(flags) > 0 {
		b.WriteString("\nFlags (также из env и .env, как у сервера):\n")
		b.WriteString(strings.Join(flags, "\n") + "\n")
	}
	return b.String()
}
