package commands

import (
	"context"
	"fmt"
	"strconv"

	"WeaveSync/internal/cli/bootstrap"
	"WeaveSync/internal/config"
)

type cleanupCmd struct{}

func (cleanupCmd) Name() string { return "cleanup" }
func (cleanupCmd) Description() string {
	return "Удалить устаревшие записи эфемерных коллекций"
}
func (cleanupCmd) Usage() string { return "cleanup [days]" }

func (cleanupCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) > 1 {
		return ErrUsage
	}
	days := cfg.RetentionDays
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return ErrUsage
		}
		days = n
	}
	app, done, err := bootstrap.Open(cfg)
	if err != nil {
		return err
	}
	defer done()

	n, err := app.Sync.Cleanup(ctx, days)
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "Удалено записей: %d\n", n)
	return nil
}

func init() { RegisterCmd(cleanupCmd{}) }
