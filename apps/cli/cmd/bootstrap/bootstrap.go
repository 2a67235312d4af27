package bootstrap

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	companiesrepo "github.com/wundergunder/gunderats/domains/companies/be/repo"
	companiesservice "github.com/wundergunder/gunderats/domains/companies/be/service"
	"github.com/wundergunder/gunderats/platform/go/persistence"
)

// Command groups bootstrap helpers (schema DDL, seed data).
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Bootstrap database resources (schema, seed company)",
		Long:  "Bootstrap database resources such as the application schema and an initial company with its admin member.",
	}

	cmd.AddCommand(schemaCommand())
	cmd.AddCommand(companyCommand())
	return cmd
}

func schemaCommand() *cobra.Command {
	var databaseURL string

	c := &cobra.Command{
		Use:   "schema",
		Short: "Apply the embedded application DDL to the target database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			if err := persistence.Bootstrap(ctx, pool); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Schema bootstrap complete.")
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string")
	_ = c.MarkFlagRequired("database-url")

	return c
}

func companyCommand() *cobra.Command {
	var (
		databaseURL string
		companyName string
		adminUserID string
	)

	c := &cobra.Command{
		Use:   "company",
		Short: "Provision a company with its first admin member and default pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			adminID, err := uuid.Parse(adminUserID)
			if err != nil {
				return fmt.Errorf("invalid admin-user-id uuid: %w", err)
			}

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			companyStore, err := persistence.NewCompanyStore(pool)
			if err != nil {
				return fmt.Errorf("init company store: %w", err)
			}
			memberStore, err := persistence.NewTeamMemberStore(pool)
			if err != nil {
				return fmt.Errorf("init team member store: %w", err)
			}
			stageStore, err := persistence.NewStageStore(pool)
			if err != nil {
				return fmt.Errorf("init stage store: %w", err)
			}

			svc := companiesservice.New(companiesrepo.NewPostgresRepository(pool, companyStore, memberStore, stageStore))

			company, err := svc.Signup(ctx, companiesservice.SignupInput{
				CompanyName: companyName,
				AdminUserID: adminID,
			})
			if err != nil {
				return fmt.Errorf("provision company: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Company provisioned: %s (%s) | Admin: %s\n", company.Name, company.ID, adminID)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string")
	c.Flags().StringVar(&companyName, "name", "", "Company display name")
	c.Flags().StringVar(&adminUserID, "admin-user-id", "", "UUID of the identity-provider user who becomes the first admin")

	_ = c.MarkFlagRequired("database-url")
	_ = c.MarkFlagRequired("name")
	_ = c.MarkFlagRequired("admin-user-id")

	return c
}
