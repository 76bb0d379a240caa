package commands

import (
	"context"
	"fmt"

	"WeaveSync/internal/cli/bootstrap"
	"WeaveSync/internal/config"
)

type passwdCmd struct{}

func (passwdCmd) Name() string        { return "passwd" }
func (passwdCmd) Description() string { return "Сменить пароль пользователя" }
func (passwdCmd) Usage() string       { return "passwd <username> <new-password>" }

func (passwdCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 2 {
		return ErrUsage
	}
	app, done, err := bootstrap.Open(cfg)
	if err != nil {
		return err
	}
	defer done()

	if err := app.Users.ChangePasswordByName(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintln(Out, "Пароль изменён")
	return nil
}

func init() { RegisterCmd(passwdCmd{}) }
