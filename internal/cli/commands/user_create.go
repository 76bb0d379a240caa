package commands

import (
	"context"
	"fmt"

	"WeaveSync/internal/cli/bootstrap"
	"WeaveSync/internal/config"
)

type createUserCmd struct{}

func (createUserCmd) Name() string { return "create-user" }
func (createUserCmd) Description() string {
	return "Создать пользователя синхронизации"
}
func (createUserCmd) Usage() string { return "create-user <username> <password> [email]" }

func (createUserCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return ErrUsage
	}
	email := ""
	if len(args) == 3 {
		email = args[2]
	}
	app, done, err := bootstrap.Open(cfg)
	if err != nil {
		return err
	}
	defer done()

	user, err := app.Users.Register(ctx, args[0], args[1], email)
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "Пользователь создан: %s (id=%d)\n", user.UserName, user.ID)
	return nil
}

func init() { RegisterCmd(createUserCmd{}) }
