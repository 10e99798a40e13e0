package testutil

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/kbindza/kalenda/core"
	"github.com/kbindza/kalenda/core/user"
)

// NewConfig returns a minimal app config for tests.
func NewConfig() *core.Config {
	conf := &core.Config{
		TestMode:  true,
		AppName:   "Kalenda",
		SecretKey: "s3cr3t-test-key",

		EmailVerificationTimeout: 24 * time.Hour,
		AccessCodeTimeout:        15 * time.Minute,
	}
	conf.Server.JWTExpirationDelta = time.Hour
	return conf
}

// NewLogger returns a core.Logger writing to stderr.
func NewLogger() core.Logger {
	return &stdLogger{log: log.New(os.Stderr, "TEST : ", log.LstdFlags|log.Lshortfile)}
}

type stdLogger struct {
	log *log.Logger
}

func (l *stdLogger) Debug(msg string, args ...interface{}) { l.log.Println("DEBUG", msg) }
func (l *stdLogger) Info(msg string, args ...interface{})  { l.log.Println("INFO", msg) }
func (l *stdLogger) Warn(msg string, args ...interface{})  { l.log.Println("WARN", msg) }
func (l *stdLogger) Error(msg string, args ...interface{}) { l.log.Println("ERROR", msg, args) }
func (l *stdLogger) Fatal(msg string, args ...interface{}) { l.log.Fatalln("FATAL", msg, args) }

// CreateUser persists a verified account directly through the repository.
func CreateUser(t *testing.T, repo user.Repository, name, email, role string) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr, err := repo.CreateUser(context.Background(), user.User{
		Name:       name,
		Email:      email,
		Role:       role,
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}
