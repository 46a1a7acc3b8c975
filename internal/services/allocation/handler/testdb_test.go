package handler

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stockroom-system/internal/database/models"
)

// newTestDB opens a per-test in-memory sqlite database. A single connection
// is enforced so the pool cannot hand out a second, empty :memory: database
// and so concurrent transactions serialize the way postgres row locks would.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrapping sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.User{}, &models.Stock{}, &models.Request{}); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string, admin bool) models.User {
	t.Helper()
	user := models.User{
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		Password:  "irrelevant",
		IsAdmin:   admin,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seeding user %s: %v", email, err)
	}
	return user
}

func seedStock(t *testing.T, db *gorm.DB, item string, avail, quota int32) models.Stock {
	t.Helper()
	stock := models.Stock{
		Item:   item,
		Avail:  avail,
		QtyReq: avail,
		Quota:  quota,
	}
	if err := db.Create(&stock).Error; err != nil {
		t.Fatalf("seeding stock %s: %v", item, err)
	}
	return stock
}

func reloadStock(t *testing.T, db *gorm.DB, id int64) models.Stock {
	t.Helper()
	var stock models.Stock
	if err := db.First(&stock, id).Error; err != nil {
		t.Fatalf("reloading stock %d: %v", id, err)
	}
	return stock
}

func reloadRequest(t *testing.T, db *gorm.DB, id int64) models.Request {
	t.Helper()
	var request models.Request
	if err := db.First(&request, id).Error; err != nil {
		t.Fatalf("reloading request %d: %v", id, err)
	}
	return request
}
