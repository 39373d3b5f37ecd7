package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/invigil/invigil-backend/internal/config"
	"github.com/invigil/invigil-backend/internal/model"
	"github.com/invigil/invigil-backend/internal/service"
)

// issue-token mints a JWT for local development and integration
// testing. Login lives in the external identity service; this tool
// signs with the same JWT_SECRET the server validates against.
func main() {
	var (
		email     string
		role      string
		studentID string
	)
	flag.StringVar(&email, "email", "", "Account email (required)")
	flag.StringVar(&role, "role", "student", "Role: student, teacher, examiner, proctor")
	flag.StringVar(&studentID, "student-id", "", "Student identifier (students only)")
	flag.Parse()

	if email == "" {
		log.Fatal("-email is required")
	}

	switch model.Role(role) {
	case model.RoleStudent, model.RoleTeacher, model.RoleExaminer, model.RoleProctor:
	default:
		log.Fatalf("unknown role %q", role)
	}
	if model.Role(role) == model.RoleStudent && studentID == "" {
		log.Fatal("-student-id is required for the student role")
	}

	cfg := config.Load()
	authService := service.NewAuthService(cfg)

	token, err := authService.GenerateToken(&model.User{
		Email:     email,
		Role:      model.Role(role),
		StudentID: studentID,
	})
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}

	fmt.Println(token)
}
