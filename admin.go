package main

import (
	"fmt"

	"github.com/kendall-kelly/service-crm-api/models"
	"github.com/kendall-kelly/service-crm-api/services"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeDB(db, log)

			if err := models.AutoMigrate(db.WithContext(cmd.Context())); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
			log.Info("database migration completed")
			return nil
		},
	}
}

func newCreateStaffCommand() *cobra.Command {
	var input services.StaffInput

	cmd := &cobra.Command{
		Use:   "create-staff",
		Short: "Create a verified staff account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeDB(db, log)

			accounts := services.NewAccountService(db, services.NewBcryptPasswordHasher(bcrypt.DefaultCost), nil, nil, log)
			account, err := accounts.CreateStaff(cmd.Context(), input)
			if err != nil {
				return err
			}

			log.Info("staff account created", "account_id", account.ID, "email", account.Email)
			fmt.Fprintf(cmd.OutOrStdout(), "created staff account %d (%s)\n", account.ID, account.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&input.Email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&input.Password, "password", "", "Password, at least 8 characters (required)")
	cmd.Flags().StringVar(&input.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&input.LastName, "last-name", "", "Last name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
