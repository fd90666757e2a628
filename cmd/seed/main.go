package main

import (
	"context"
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/hackgods/dental-clinic-booking/internal/apperr"
	"github.com/hackgods/dental-clinic-booking/internal/appointment"
	"github.com/hackgods/dental-clinic-booking/internal/calendar"
	"github.com/hackgods/dental-clinic-booking/internal/config"
	"github.com/hackgods/dental-clinic-booking/internal/db"
	"github.com/hackgods/dental-clinic-booking/internal/logging"
	"github.com/hackgods/dental-clinic-booking/internal/patient"
	redisclient "github.com/hackgods/dental-clinic-booking/internal/redis"
)

// seed fills a dev database with fake patients and bookings. It goes
// through the services so every row passes the same validation and unique
// indexes as API traffic.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	logger := logging.New(cfg.LogLevel)
	entry := logger.WithComponent("seed")

	patientCount := getInt("SEED_PATIENTS", 50)
	days := getInt("SEED_DAYS", 14)
	entry.WithField("patients", patientCount).WithField("days", days).Info("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		entry.WithError(err).Fatal("connect postgres")
	}
	defer pool.Close()

	// Service logs are noise here; only the seed's own summary matters.
	quiet := logging.New("warn")
	apptRepo := appointment.NewPgRepository(pool)
	patients := patient.NewService(patient.NewPgRepository(pool), apptRepo, quiet)
	appointments := appointment.NewService(apptRepo, redisclient.NopLocker(), patients, quiet, nil)

	faker := gofakeit.New(0)
	first := calendar.Day(time.Now()).AddDate(0, 0, 1)

	var created, booked, conflicts int
	for i := 0; i < patientCount; i++ {
		name := faker.Name()
		email := faker.Email()
		phone := "+1" + faker.Phone()

		if _, err := patients.FindOrCreate(ctx, name, email, phone); err != nil {
			entry.WithError(err).WithField("email", email).Warn("skip patient")
			continue
		}
		created++

		day := first.AddDate(0, 0, faker.Number(0, days-1))
		req := appointment.BookRequest{
			PatientName:  name,
			PatientEmail: email,
			PatientPhone: phone,
			Date:         calendar.Format(day),
			Time:         appointment.Slots[faker.Number(0, len(appointment.Slots)-1)],
			Service:      appointment.Services[faker.Number(0, len(appointment.Services)-1)],
		}

		_, err := appointments.Book(ctx, req)
		switch {
		case err == nil:
			booked++
		case errors.Is(err, apperr.ErrConflict):
			conflicts++
		default:
			entry.WithError(err).WithField("email", email).Warn("booking failed")
		}
	}

	entry.WithField("patients", created).
		WithField("appointments", booked).
		WithField("conflicts", conflicts).
		Info("seed complete")
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
