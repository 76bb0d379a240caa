package commands

import (
	"context"
	"fmt"
	"time"

	"WeaveSync/internal/cli/bootstrap"
	"WeaveSync/internal/config"
	"WeaveSync/internal/wbo"
)

type usersCmd struct{}

func (usersCmd) Name() string        { return "users" }
func (usersCmd) Description() string { return "Показать всех пользователей" }
func (usersCmd) Usage() string       { return "users" }

func (usersCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	app, done, err := bootstrap.Open(cfg)
	if err != nil {
		return err
	}
	defer done()

	list, err := app.Users.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(Out, "Нет пользователей")
		return nil
	}
	for _, u := range list {
		email := ""
		if u.Email != nil {
			email = "  email=" + *u.Email
		}
		fmt.Fprintf(Out, "- %s  wbo=%d  size=%.2fKB%s\n", u.UserName, u.WboCount, u.TotalKB, email)
	}
	fmt.Fprintf(Out, "Всего: %d\n", len(list))
	return nil
}

type userCmd struct{}

func (userCmd) Name() string { return "user" }
func (userCmd) Description() string {
	return "Показать пользователя и его коллекции"
}
func (userCmd) Usage() string { return "user <username>" }

func (userCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	app, done, err := bootstrap.Open(cfg)
	if err != nil {
		return err
	}
	defer done()

	d, err := app.Users.UserDetails(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "Пользователь: %s (id=%d)\n", d.UserName, d.ID)
	if d.Email != nil {
		fmt.Fprintf(Out, "Email: %s\n", *d.Email)
	}
	fmt.Fprintf(Out, "Создан: %s\n", d.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(Out, "Записей: %d, объём: %.2fKB\n", d.WboCount, d.TotalKB)
	for _, c := range d.Collections {
		fmt.Fprintf(Out, "  %-10s count=%d  bytes=%d  modified=%s\n", c.Name, c.Count, c.Bytes, wbo.FormatTimestamp(c.Modified))
	}
	return nil
}

func init() {
	RegisterCmd(usersCmd{})
	RegisterCmd(userCmd{})
}
