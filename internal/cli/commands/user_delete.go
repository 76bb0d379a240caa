package commands

import (
	"context"
	"fmt"

	"WeaveSync/internal/cli/bootstrap"
	"WeaveSync/internal/config"
)

type deleteUserCmd struct{}

func (deleteUserCmd) Name() string { return "delete-user" }
func (deleteUserCmd) Description() string {
	return "Удалить пользователя вместе со всеми его данными"
}
func (deleteUserCmd) Usage() string { return "delete-user <username>" }

func (deleteUserCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	app, done, err := bootstrap.Open(cfg)
	if err != nil {
		return err
	}
	defer done()

	if err := app.Users.DeleteUser(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(Out, "Пользователь удалён: %s\n", args[0])
	return nil
}

func init() { RegisterCmd(deleteUserCmd{}) }
