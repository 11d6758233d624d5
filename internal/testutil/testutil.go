// Package testutil holds fixtures shared by service and handler tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"reppyroute/internal/database"
	"reppyroute/internal/domain"
)

// NewDB returns a migrated in-memory sqlite database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Connect(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// CreateProfile inserts a profile of the given role and returns it.
func CreateProfile(t *testing.T, db *gorm.DB, name string, role domain.Role) *domain.Profile {
	t.Helper()
	p := &domain.Profile{
		Email:    strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		FullName: name,
		UserType: role,
	}
	if err := db.WithContext(context.Background()).Create(p).Error; err != nil {
		t.Fatalf("failed to create profile %s: %v", name, err)
	}
	return p
}
