package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/quickcourt/quickcourt-api/cmd/quickcourt/ui"
	"github.com/quickcourt/quickcourt-api/internal/auth"
	"github.com/quickcourt/quickcourt-api/internal/config"
	"github.com/quickcourt/quickcourt-api/internal/database"
	"github.com/quickcourt/quickcourt-api/internal/logging"
	"github.com/quickcourt/quickcourt-api/internal/user"
	"github.com/quickcourt/quickcourt-api/internal/venue"
	"github.com/quickcourt/quickcourt-api/internal/verification"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "quickcourt",
		Short:         "QuickCourt operator tools",
		Long:          "Maintenance commands for the QuickCourt database: schema setup, OTP cleanup, admin accounts and venue review.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and indexes",
		RunE:  runMigrate,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep-otp",
		Short: "Delete expired verification codes and refresh tokens",
		RunE:  runSweepOTP,
	}

	adminCmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a verified ADMIN account",
		Long:  "Creates a verified ADMIN user with a password credential. Missing flags are prompted for.",
		RunE:  runCreateAdmin,
	}
	adminCmd.Flags().String("email", "", "Admin email")
	adminCmd.Flags().String("name", "", "Admin full name")
	adminCmd.Flags().String("password", "", "Admin password (prompted when omitted)")

	reviewCmd := &cobra.Command{
		Use:   "review-venue <venue-id>",
		Short: "Approve or reject a venue",
		Args:  cobra.ExactArgs(1),
		RunE:  runReviewVenue,
	}
	reviewCmd.Flags().String("status", "", "Decision (approved, rejected)")
	reviewCmd.Flags().String("comment", "", "Comment shown to the owner")

	rootCmd.AddCommand(migrateCmd, sweepCmd, adminCmd, reviewCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}

// openDB loads configuration and connects to the database
func openDB(ctx context.Context) (*bun.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return database.Open(ctx, cfg.Database)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Schema is up to date (%d tables)", len(database.Models())))
	return nil
}

func runSweepOTP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	deleted, err := verification.NewRepository(db).DeleteExpired(ctx, time.Now())
	if err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Removed %d expired verification record(s)", deleted))

	// Only the postgres refresh store keeps expired rows around
	if err := auth.NewRepository(db).CleanupExpiredTokens(ctx); err != nil {
		return err
	}
	ui.PrintSuccess("Removed expired refresh tokens")
	return nil
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var in ui.AdminInput
	in.Email, _ = cmd.Flags().GetString("email")
	in.Name, _ = cmd.Flags().GetString("name")
	in.Password, _ = cmd.Flags().GetString("password")

	if err := ui.RunAdminForm(&in); err != nil {
		return fmt.Errorf("form cancelled: %w", err)
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := in.Validate(); err != nil {
		return err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return err
	}

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	users := user.NewRepository(db)
	var created *user.User
	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		txUsers := users.WithTx(tx)
		u, err := txUsers.Create(ctx, user.NewUser{Email: in.Email, Name: in.Name, Role: user.RoleAdmin})
		if err != nil {
			return err
		}
		if err := txUsers.CreateCredential(ctx, u.ID, hash); err != nil {
			return err
		}
		created = u
		return nil
	})
	if errors.Is(err, user.ErrDuplicateEmail) {
		return fmt.Errorf("a user with email %s already exists", in.Email)
	}
	if err != nil {
		return err
	}

	ui.PrintTitle("Admin created")
	ui.PrintField("ID", created.ID)
	ui.PrintField("Email", created.Email)
	ui.PrintField("Name", created.Name)
	return nil
}

func runReviewVenue(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid venue id %q", args[0])
	}

	in := ui.ReviewInput{VenueID: id.String()}
	in.Status, _ = cmd.Flags().GetString("status")
	in.Comment, _ = cmd.Flags().GetString("comment")
	if err := ui.RunReviewForm(&in); err != nil {
		return fmt.Errorf("form cancelled: %w", err)
	}

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := venue.NewService(venue.NewRepository(db), logging.NewLogger(false), 0)
	if err := svc.Review(ctx, id, venue.Status(in.Status), in.Comment); err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Venue %s marked %s", id, in.Status))
	return nil
}
