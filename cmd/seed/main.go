package main

import (
	"context"
	"flag"
	"log"
	"os"

	"curryhouse/internal/config"
	"curryhouse/internal/db"
	"curryhouse/internal/seed"
)

func main() {
	var admin seed.Admin
	flag.StringVar(&admin.Name, "admin-name", "Curry House Admin", "admin display name")
	flag.StringVar(&admin.Email, "admin-email", "admin@curryhouse.no", "admin login email")
	flag.StringVar(&admin.Phone, "admin-phone", "40000000", "admin phone")
	flag.StringVar(&admin.Password, "admin-password", "admin123", "admin password")
	flag.Parse()

	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	n, err := seed.Apply(ctx, pool, admin)
	if err != nil {
		logger.Fatalf("seed apply: %v", err)
	}

	logger.Printf("seed applied: %d menu items, admin %s", n, admin.Email)
}
