package main

import (
	"context"
	"flag"
	"fmt"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/invigil/invigil-backend/internal/config"
	"github.com/invigil/invigil-backend/internal/database"
	"github.com/invigil/invigil-backend/internal/logger"
	"github.com/invigil/invigil-backend/internal/model"
	"github.com/invigil/invigil-backend/internal/repository"
	"github.com/invigil/invigil-backend/internal/service"
)

// seed-users provisions a small set of accounts and one sample exam for
// local development.
func main() {
	passwordFlag := flag.String("password", "", "password for all seeded accounts (prompts if empty)")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	password := *passwordFlag
	if password == "" {
		fmt.Print("Enter seed password: ")
		bytePassword, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read password")
		}
		fmt.Println() // Newline after password input
		password = string(bytePassword)
	}
	if len(password) < 6 {
		log.Fatal().Msg("Password must be at least 6 characters")
	}

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	authService := service.NewAuthService(cfg)

	fmt.Println("=== Seeding users ===")

	seed := []struct {
		email     string
		name      string
		role      model.Role
		studentID string
	}{
		{"stu1@invigil.example", "Asha Verma", model.RoleStudent, "STU1"},
		{"stu2@invigil.example", "Rohan Iyer", model.RoleStudent, "STU2"},
		{"teacher@invigil.example", "Meera Joshi", model.RoleTeacher, ""},
		{"examiner@invigil.example", "Vikram Nair", model.RoleExaminer, ""},
		{"proctor@invigil.example", "Devi Menon", model.RoleProctor, ""},
	}

	for _, u := range seed {
		hash, err := authService.HashPassword(password)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to hash password")
		}
		user := &model.User{
			Email:        u.email,
			Name:         u.name,
			Role:         u.role,
			StudentID:    u.studentID,
			PasswordHash: hash,
		}
		if err := userRepo.Create(ctx, user); err != nil {
			log.Fatal().Err(err).Str("email", u.email).Msg("Failed to seed user")
		}
		fmt.Printf("Seeded %s (%s)\n", u.email, u.role)
	}

	fmt.Println("=== Seeding sample exam ===")

	correct := func(n int) *int { return &n }
	exam := &model.Exam{
		ID:              uuid.New(),
		Title:           "Data Structures Practice Exam",
		DurationMinutes: 45,
		ScheduledFor:    time.Now().Add(-time.Hour),
		Randomize:       false,
		Difficulty:      "medium",
		CreatedBy:       "teacher@invigil.example",
		Status:          model.ExamStatusScheduled,
		Questions: []model.Question{
			{
				Type:          model.QuestionTypeMCQ,
				Text:          "Which data structure gives O(1) amortized append?",
				Options:       []string{"Linked list", "Dynamic array", "Binary heap", "B-tree"},
				CorrectOption: correct(1),
			},
			{
				Type:          model.QuestionTypeMCQ,
				Text:          "What is the worst-case lookup in a balanced BST?",
				Options:       []string{"O(1)", "O(log n)", "O(n)", "O(n log n)"},
				CorrectOption: correct(1),
			},
			{
				Type: model.QuestionTypeSubjective,
				Text: "Explain when you would prefer a hash map over a tree map.",
			},
		},
	}
	if err := model.ValidateQuestions(exam.Questions); err != nil {
		log.Fatal().Err(err).Msg("Seed exam is invalid")
	}
	if err := examRepo.Create(ctx, exam); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed exam")
	}

	fmt.Printf("Seeded exam %s (%s)\n", exam.ID, exam.Title)
	fmt.Println("Done")
}
