// Command punchcard-admin performs maintenance tasks that have no HTTP
// surface: bootstrapping the first administrator account, resetting a
// forgotten password, and running or restoring backups out of band.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/punchcard/internal/backup"
	"github.com/dukerupert/punchcard/internal/config"
	"github.com/dukerupert/punchcard/internal/database"
	"github.com/dukerupert/punchcard/internal/logging"
	"github.com/dukerupert/punchcard/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("load config: %v", err)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	switch os.Args[1] {
	case "create-admin":
		createAdmin(cfg, os.Args[2:])
	case "reset-password":
		resetPassword(cfg, os.Args[2:])
	case "backup":
		runBackup(cfg, logger)
	case "restore":
		restore(cfg, logger, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: punchcard-admin <command> [flags]

commands:
  create-admin    create an administrator account
  reset-password  set a new password for an existing account
  backup          upload an encrypted database snapshot now
  restore         replace the database from a backup object`)
}

func createAdmin(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)
	email := fs.String("email", "", "account email (required)")
	password := fs.String("password", "", "account password (required, min 8 chars)")
	firstName := fs.String("first-name", "", "first name")
	lastName := fs.String("last-name", "", "last name")
	fs.Parse(args)

	*email = strings.ToLower(strings.TrimSpace(*email))
	if *email == "" || !strings.Contains(*email, "@") {
		fatal("a valid -email is required")
	}
	if len(*password) < 8 {
		fatal("-password must be at least 8 characters")
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		fatal("open database: %v", err)
	}
	defer db.Close()

	users := store.NewUserStore(db)
	existing, err := users.GetByEmail(*email)
	if err != nil {
		fatal("look up user: %v", err)
	}
	if existing != nil {
		fatal("an account with email %s already exists", *email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		fatal("hash password: %v", err)
	}

	user, err := users.Create(*email, string(hash), *firstName, *lastName, true)
	if err != nil {
		fatal("create user: %v", err)
	}
	fmt.Printf("created admin account %s (id %d)\n", user.Email, user.ID)
}

func resetPassword(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("reset-password", flag.ExitOnError)
	email := fs.String("email", "", "account email (required)")
	password := fs.String("password", "", "new password (required, min 8 chars)")
	fs.Parse(args)

	*email = strings.ToLower(strings.TrimSpace(*email))
	if *email == "" {
		fatal("-email is required")
	}
	if len(*password) < 8 {
		fatal("-password must be at least 8 characters")
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		fatal("open database: %v", err)
	}
	defer db.Close()

	users := store.NewUserStore(db)
	user, err := users.GetByEmail(*email)
	if err != nil {
		fatal("look up user: %v", err)
	}
	if user == nil {
		fatal("no account with email %s", *email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		fatal("hash password: %v", err)
	}
	if err := users.UpdatePassword(user.ID, string(hash)); err != nil {
		fatal("update password: %v", err)
	}
	fmt.Printf("password updated for %s\n", user.Email)
}

func runBackup(cfg *config.Config, logger *slog.Logger) {
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		fatal("open database: %v", err)
	}
	defer db.Close()

	mgr := backup.NewManager(cfg.Backup, cfg.DBPath, db, store.NewBackupStore(db), logger)
	if mgr == nil {
		fatal("backups are not configured: set PUNCHCARD_BACKUP_BUCKET")
	}

	key, err := mgr.RunNow(context.Background())
	if err != nil {
		fatal("backup failed: %v", err)
	}
	fmt.Printf("uploaded %s\n", key)
}

func restore(cfg *config.Config, logger *slog.Logger, args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	key := fs.String("key", "", "object key of the backup to restore (required)")
	fs.Parse(args)

	if *key == "" {
		fatal("-key is required")
	}

	// Open without migrating: the manager only needs the S3 client and the
	// target path, and the download must not race the running service.
	mgr := backup.NewManager(cfg.Backup, cfg.DBPath, nil, nil, logger)
	if mgr == nil {
		fatal("backups are not configured: set PUNCHCARD_BACKUP_BUCKET")
	}

	if err := mgr.Restore(context.Background(), *key); err != nil {
		fatal("restore failed: %v", err)
	}
	fmt.Printf("restored %s to %s; restart the service\n", *key, cfg.DBPath)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
