package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config holds the application's configuration values.
type Config struct {
	AppName        string `json:"appname"`
	AppEnv         string `json:"appenv"`
	AppPort        uint16 `json:"appport"`
	GinMode        string `json:"ginmode"`
	DBHost         string `json:"dbhost"`
	DBPort         uint16 `json:"dbport"`
	DBName         string `json:"dbname"`
	DBUser         string `json:"dbuser"`
	DBPass         string `json:"dbpass"`
	JWTSecret      string `json:"-"`
	AdminSecretKey string `json:"-"`
	GeoIPDBPath    string `json:"geoip_db_path"`
	RedisAddr      string `json:"redisaddr"`
	RedisPass      string `json:"-"`
	RedisDB        int    `json:"redisdb"`
}

var config *Config
var once sync.Once

// LoadConfig loads the environment variables from a .env file when
// present, and returns a singleton Config instance.
func LoadConfig() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Println("Warning: .env file not found, using system environment variables")
		}

		appPort, _ := strconv.ParseUint(os.Getenv("APPPORT"), 10, 16)
		dbPort, _ := strconv.ParseUint(os.Getenv("DBPORT"), 10, 16)
		redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))

		config = &Config{
			AppName:        os.Getenv("APPNAME"),
			AppEnv:         os.Getenv("APPENV"),
			AppPort:        uint16(appPort),
			GinMode:        os.Getenv("GINMODE"),
			DBHost:         os.Getenv("DBHOST"),
			DBPort:         uint16(dbPort),
			DBName:         os.Getenv("DBNAME"),
			DBUser:         os.Getenv("DBUSER"),
			DBPass:         os.Getenv("DBPASS"),
			JWTSecret:      os.Getenv("JWTSECRET"),
			AdminSecretKey: os.Getenv("ADMIN_SECRET_KEY"),
			GeoIPDBPath:    os.Getenv("GEOIP_DB_PATH"),
			RedisAddr:      os.Getenv("REDIS_ADDR"),
			RedisPass:      os.Getenv("REDIS_PASS"),
			RedisDB:        redisDB,
		}
	})
	return config
}

// ResetConfigForTesting clears the singleton so tests can reload env vars.
func ResetConfigForTesting() {
	config = nil
	once = sync.Once{}
}

// ConnectDB opens the database connection. Production builds a MySQL DSN
// from the DB* env vars; APPENV=test opens an in-memory SQLite database
// so the test suite needs no running server.
func ConnectDB() (*gorm.DB, error) {
	cfg := LoadConfig()

	if cfg.AppEnv == "test" || os.Getenv("APPENV") == "test" {
		return gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	return db, nil
}
