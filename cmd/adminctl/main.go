package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"github.com/joho/godotenv"

	"github.com/franpass87/fp-experiences/internal/config"
	"github.com/franpass87/fp-experiences/internal/database"
	"github.com/franpass87/fp-experiences/internal/model"
	"github.com/franpass87/fp-experiences/internal/repository"
	"github.com/franpass87/fp-experiences/internal/utils"
)

// adminctl provisions administrative accounts. There is no public
// registration endpoint; staff accounts are created from the shell.
func main() {
	email := flag.String("email", "", "account email (required)")
	password := flag.String("password", "", "account password (required)")
	flag.Parse()

	if *email == "" || *password == "" {
		flag.Usage()
		log.Fatal("both -email and -password are required")
	}

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	hash, err := utils.HashPassword(*password, cfg.BcryptCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	user := &model.User{
		Email:        strings.ToLower(strings.TrimSpace(*email)),
		PasswordHash: hash,
		Role:         "ADMIN",
		IsActive:     true,
	}
	if err := repository.NewUserRepo(db).Upsert(context.Background(), user); err != nil {
		log.Fatalf("upsert admin: %v", err)
	}
	log.Printf("admin account ready: %s", user.Email)
}
