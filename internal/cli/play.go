package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmorales/periogame/internal/backend"
	"github.com/dmorales/periogame/internal/config"
	"github.com/dmorales/periogame/internal/game"
	"github.com/dmorales/periogame/internal/logger"
	"github.com/dmorales/periogame/internal/models"
	"github.com/dmorales/periogame/internal/ui"
)

func newPlayCmd() *cobra.Command {
	var (
		gameID    string
		groupCode string
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz session",
		Long: `Play a quiz session against the backend.

Resume an existing session with --game, or join a group by its 6-character
code with --code, which creates a fresh session. The authenticated user is
taken from USER_ID / USER_NAME in the environment or .env file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), gameID, groupCode)
		},
	}
	cmd.Flags().StringVar(&gameID, "game", "", "id of an existing session to resume")
	cmd.Flags().StringVar(&groupCode, "code", "", "group join code (creates a new session)")
	return cmd
}

func runPlay(ctx context.Context, gameID, groupCode string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logger.Default().WithPrefix("cli")

	user := models.AuthUser{ID: cfg.UserID, Name: cfg.UserName, Role: cfg.UserRole}
	if !user.Valid() {
		return fmt.Errorf("no authenticated user: set USER_ID (and USER_NAME) in the environment")
	}

	client := backend.New(cfg.BackendURL, backend.WithTimeout(cfg.HTTPTimeout))

	switch {
	case gameID != "":
		// resume
	case groupCode != "":
		group, err := client.GetGroupByCode(ctx, groupCode)
		if err != nil {
			return err
		}
		log.Info("joining group %q (%s)", group.Name, group.Code)
		created, err := client.CreateGame(ctx, user.ID, group.Code)
		if err != nil {
			return err
		}
		gameID = created.ID
	default:
		return fmt.Errorf("either --game or --code is required")
	}

	engine, err := game.New(client, user, gameID)
	if err != nil {
		return err
	}
	runner := ui.NewRunner(engine, os.Stdin, os.Stdout, cfg.TickInterval)
	return runner.Run(ctx)
}
