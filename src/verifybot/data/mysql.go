package data

import (
	"log"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func MustMySQL(dsn string) *gorm.DB {
	dsn = withParam(dsn, "parseTime", "true")
	dsn = withParam(dsn, "charset", "utf8mb4")

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.New(log.Default(), logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}

	return db
}

func withParam(dsn, key, val string) string {
	if strings.Contains(dsn, key+"=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + key + "=" + val
	}
	return dsn + "?" + key + "=" + val
}
