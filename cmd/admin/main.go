package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/busbooking/config"
	"github.com/Domenick1991/busbooking/internal/repository"
	"github.com/Domenick1991/busbooking/internal/service/accounts"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/pflag"
)

const usage = `usage: admin [--config path] <command> [flags]

commands:
  migrate                                      apply the database schema
  create-admin --name N --email E --password P create an administrator account
`

func main() {
	global := pflag.NewFlagSet("admin", pflag.ExitOnError)
	global.SetInterspersed(false)
	cfgPath := global.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = global.Parse(os.Args[1:])

	args := global.Args()
	if len(args) == 0 {
		global.Usage()
		os.Exit(2)
	}
	if *cfgPath == "" {
		*cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	switch args[0] {
	case "migrate":
		if err := repository.Migrate(ctx, pool); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		log.Printf("schema is up to date")
	case "create-admin":
		if err := createAdmin(ctx, pool, cfg, args[1:]); err != nil {
			log.Fatalf("create-admin: %v", err)
		}
	default:
		global.Usage()
		os.Exit(2)
	}
}

func createAdmin(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config, args []string) error {
	flags := pflag.NewFlagSet("create-admin", pflag.ContinueOnError)
	var input accounts.RegisterInput
	flags.StringVar(&input.Name, "name", "", "display name")
	flags.StringVar(&input.Email, "email", "", "login email")
	flags.StringVar(&input.Password, "password", os.Getenv("ADMIN_PASSWORD"), "password (or ADMIN_PASSWORD)")
	flags.StringVar(&input.Contact, "contact", "", "optional contact")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := repository.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	service := accounts.NewAccountService(repository.NewUserRepository(db), nil, time.Duration(cfg.Auth.ResetTokenTTLMinutes)*time.Minute)
	user, err := service.CreateAdmin(ctx, input)
	if err != nil {
		return err
	}
	log.Printf("created admin id=%d email=%s", user.ID, user.Email)
	return nil
}
