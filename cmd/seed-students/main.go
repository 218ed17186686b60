package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/database"
	"github.com/stemsi/exstem-proctor/internal/logger"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	count := flag.Int("n", 50, "Number of students to seed")
	department := flag.String("department", "CSE", "Department for seeded students")
	semester := flag.Int("semester", 5, "Semester for seeded students")
	password := flag.String("password", "exstem123", "Password shared by every seeded student")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	students := repository.NewStudentRepository(pool)

	// One hash for the whole batch.
	hash, err := bcrypt.GenerateFromPassword([]byte(*password), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	fmt.Printf("=== Seeding %d Students ===\n", *count)

	created, skipped := 0, 0
	for i := 1; i <= *count; i++ {
		// Each seeded student is bound to a synthetic lab device.
		device := model.DeviceInfo{
			DeviceID:     fmt.Sprintf("lab-pc-%03d", i),
			OS:           "linux",
			OSVersion:    "6.1",
			ScreenWidth:  1920,
			ScreenHeight: 1080,
		}

		student := &model.Student{
			FullName:          fmt.Sprintf("Student %03d", i),
			RollNumber:        fmt.Sprintf("%s%d%04d", *department, *semester, i),
			Department:        *department,
			Semester:          *semester,
			PasswordHash:      string(hash),
			DeviceFingerprint: device.Fingerprint(),
			DeviceInfo:        device,
		}

		if err := students.Create(ctx, student); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				skipped++
				continue
			}
			fmt.Printf("Error creating student %s: %v\n", student.RollNumber, err)
			continue
		}
		created++
		if created%10 == 0 {
			fmt.Printf("Created %d students...\n", created)
		}
	}

	fmt.Printf("\nSeed completed! Created %d, skipped %d existing.\n", created, skipped)
}
