package main

import (
	"fmt"
	"os"
	"time"

	accountcommands "pollbooth/contexts/identity-access/account-service/application/commands"
	"pollbooth/internal/app/bootstrap"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pollctl",
		Short: "Operator tooling for the pollbooth database",
		Long: `pollctl migrates the pollbooth schema, loads YAML fixtures and creates
accounts. It reads the same environment (POSTGRES_DSN, CONFIG_FILE, ...) as
the api and worker processes.`,
		SilenceUsage: true,
	}
	root.AddCommand(newMigrateCmd(), newSeedCmd(), newCreateUserCmd())
	return root
}

// withAdmin builds the admin app for one command run and closes it after.
func withAdmin(run func(cmd *cobra.Command, app *bootstrap.AdminApp) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		app, err := bootstrap.BuildAdmin()
		if err != nil {
			return err
		}
		defer app.Close()
		return run(cmd, app)
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the questions, choices, votes, users and outbox tables",
		Args:  cobra.NoArgs,
		RunE: withAdmin(func(cmd *cobra.Command, app *bootstrap.AdminApp) error {
			if err := app.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		}),
	}
}

func newSeedCmd() *cobra.Command {
	var fixturePath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users and questions from a YAML fixture",
		Args:  cobra.NoArgs,
		RunE: withAdmin(func(cmd *cobra.Command, app *bootstrap.AdminApp) error {
			file, err := os.Open(fixturePath)
			if err != nil {
				return err
			}
			defer file.Close()

			fixture, err := bootstrap.ParseFixture(file)
			if err != nil {
				return err
			}
			report, err := app.Seed(cmd.Context(), fixture, time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"users created=%d skipped=%d, questions created=%d, choices created=%d\n",
				report.UsersCreated, report.UsersSkipped, report.QuestionsCreated, report.ChoicesCreated,
			)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&fixturePath, "file", "f", "fixtures/polls.yaml", "fixture file to load")
	return cmd
}

func newCreateUserCmd() *cobra.Command {
	var input accountcommands.RegisterUserCommand
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an account; --staff grants question administration",
		Args:  cobra.NoArgs,
		RunE: withAdmin(func(cmd *cobra.Command, app *bootstrap.AdminApp) error {
			if input.Password == "" {
				input.Password = os.Getenv("POLLCTL_PASSWORD")
			}
			user, err := app.CreateUser(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s) staff=%t\n", user.Username, user.UserID, user.IsStaff)
			return nil
		}),
	}
	cmd.Flags().StringVar(&input.Username, "username", "", "login name")
	cmd.Flags().StringVar(&input.Password, "password", "", "password, or set POLLCTL_PASSWORD")
	cmd.Flags().StringVar(&input.FirstName, "first-name", "", "display name")
	cmd.Flags().StringVar(&input.Email, "email", "", "contact address")
	cmd.Flags().BoolVar(&input.IsStaff, "staff", false, "allow managing questions")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}
