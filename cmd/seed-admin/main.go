// seed-admin creates the bootstrap admin user so a fresh deployment can log
// in. Safe to rerun: when the email already exists the password is updated.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//	  ADMIN_EMAIL=... ADMIN_PASSWORD=... go run ./cmd/seed-admin
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bahariworks/procurement_backend/config"
	"github.com/bahariworks/procurement_backend/models"
	"github.com/bahariworks/procurement_backend/utils"
	"gorm.io/gorm"
)

func main() {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		fmt.Fprintln(os.Stderr, "ADMIN_EMAIL and ADMIN_PASSWORD are required")
		os.Exit(1)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "Seed")

	var existing models.User
	err := db.WithContext(ctx).Where("email = ?", email).Take(&existing).Error
	if err == nil {
		hashed, hashErr := utils.HashPassword(password)
		if hashErr != nil {
			fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", hashErr)
			os.Exit(1)
		}
		if err := db.WithContext(ctx).Model(&existing).
			Update("password", string(hashed)).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to update admin password: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("updated password for existing admin %s (id=%d)\n", email, existing.ID)
		return
	}
	if err != gorm.ErrRecordNotFound {
		fmt.Fprintf(os.Stderr, "failed to lookup admin user: %v\n", err)
		os.Exit(1)
	}

	user, err := models.CreateUser(ctx, &models.NewUser{
		Name:     "Administrator",
		Email:    email,
		Password: password,
		Role:     models.UserRoleAdmin,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("created admin %s (id=%d)\n", email, user.ID)
}
