package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"petsoft/internal/app"
	"petsoft/internal/config"
	"petsoft/internal/domain"
	"petsoft/internal/repository"
	"petsoft/internal/service"
)

type env struct {
	cfg    config.Config
	logger *logrus.Logger
	repos  *app.Repositories
	users  service.UserService
}

func openEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := app.NewLogger(cfg)
	logger.SetOutput(cmd.ErrOrStderr())

	repos, err := app.OpenRepositories(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:    cfg,
		logger: logger,
		repos:  repos,
		users:  service.NewUserService(repos.Users, logger),
	}, nil
}

func (e *env) Close() {
	_ = e.repos.Close()
}

func (e *env) ownerByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := e.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("no user with email %s", email)
	}
	return user, err
}

func createUserCmd() *cobra.Command {
	var (
		password string
		paid     bool
	)
	cmd := &cobra.Command{
		Use:   "create-user [email]",
		Short: "Create a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			user, err := e.users.SignUp(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			if paid {
				if err := e.users.GrantAccess(cmd.Context(), user.Email); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password for the new account")
	cmd.Flags().BoolVar(&paid, "paid", false, "Grant access right away")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func grantAccessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grant-access [email]",
		Short: "Mark an account as paid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.users.GrantAccess(cmd.Context(), args[0]); err != nil {
				return err
			}
			user, err := e.ownerByEmail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "access granted to %s\n", user.Email)
			return nil
		},
	}
}

func listPetsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list-pets [email]",
		Short: "List the pets checked in by a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			owner, err := e.ownerByEmail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			pets, err := e.repos.Pets.ListByOwner(cmd.Context(), owner.ID)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if pets == nil {
					pets = []domain.Pet{}
				}
				return enc.Encode(pets)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tOWNER\tAGE")
			for _, p := range pets {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", p.ID, p.Name, p.OwnerName, p.Age)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")
	return cmd
}

func listImagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-images [email]",
		Short: "List the pet images a user uploaded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			images, err := app.NewImageStore(cmd.Context(), e.cfg, e.logger)
			if err != nil {
				return err
			}
			if images == nil {
				return errors.New("storage.bucket is not configured")
			}

			owner, err := e.ownerByEmail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			objects, err := images.ListImages(cmd.Context(), owner.ID)
			if err != nil {
				return err
			}
			for _, obj := range objects {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", obj.URL, obj.Size)
			}
			return nil
		},
	}
}
