package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/peddireddyrohith/ChatbotForEgovernence/internal/database"
	"github.com/peddireddyrohith/ChatbotForEgovernence/internal/models"
	"github.com/peddireddyrohith/ChatbotForEgovernence/internal/repository"
	"github.com/peddireddyrohith/ChatbotForEgovernence/pkg/utils"
)

// Provisions an admin account. Admins never come from the public register
// endpoint.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	dbUrl := os.Getenv("DB_URL")
	if dbUrl == "" {
		log.Fatal("DB_URL environment variable is required")
	}

	name := os.Getenv("ADMIN_NAME")
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if name == "" || email == "" || len(password) < 8 {
		log.Fatal("ADMIN_NAME, ADMIN_EMAIL and ADMIN_PASSWORD (min 8 chars) are required")
	}

	if err := database.ConnectDB(dbUrl); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB()

	hashed, err := utils.HashPassword(password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	userRepo := repository.NewUserRepository(database.DB)
	admin := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hashed,
		Role:         models.RoleAdmin,
	}
	if err := userRepo.CreateUser(context.Background(), admin); err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}

	log.Printf("Admin created with id %d", admin.ID)
}
