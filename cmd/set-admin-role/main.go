package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/stemsi/admissions-backend/internal/config"
	"github.com/stemsi/admissions-backend/internal/database"
	"github.com/stemsi/admissions-backend/internal/logger"
	"github.com/stemsi/admissions-backend/internal/model"
	"github.com/stemsi/admissions-backend/internal/repository"
)

func main() {
	var email, roleFlag string
	flag.StringVar(&email, "email", "", "Email of the admin to update")
	flag.StringVar(&roleFlag, "role", string(model.AdminRoleSuperAdmin), "Role to assign")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if email == "" {
		fmt.Println("Usage: set-admin-role -email <email> [-role SUPER_ADMIN|REVIEWER]")
		os.Exit(2)
	}
	role := model.AdminRole(strings.ToUpper(roleFlag))
	perms, ok := model.RolePermissions[role]
	if !ok {
		fmt.Printf("Error: unknown role %q\n", roleFlag)
		os.Exit(2)
	}

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	adminRepo := repository.NewAdminRepository(pool)

	fmt.Println("=== Set Admin Role ===")

	updated, err := adminRepo.UpdateRole(ctx, email, role)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to update admin role")
	}
	if !updated {
		fmt.Printf("Error: no admin found with email %s\n", email)
		os.Exit(1)
	}

	fmt.Printf("\nSuccess! %s is now %s with %d permissions.\n", email, role, len(perms))
}
