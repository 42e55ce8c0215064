package config

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

// Supported values for DB_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

type Config struct {
	DBDriver       string
	DatabaseURL    string
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	JWTSecret      string
	FrontendOrigin string
	Port           string
	GinMode        string
	BcryptCost     int
	OpenAIAPIKey   string
}

func Load() *Config {
	driver := getEnv("DB_DRIVER", DriverPostgres)
	return &Config{
		DBDriver:       driver,
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", defaultPort(driver)),
		DBUser:         getEnv("DB_USER", "taskuser"),
		DBPassword:     getEnv("DB_PASSWORD", "taskpassword"),
		DBName:         getEnv("DB_NAME", "task_tracker"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		FrontendOrigin: getEnv("FRONTEND_ORIGIN", "http://localhost:5173"),
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		BcryptCost:     getEnvInt("BCRYPT_COST", 12),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
	}
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	switch c.DBDriver {
	case DriverPostgres, DriverMySQL, DriverSQLite, DriverMongo:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}

// DSN returns DATABASE_URL when set, otherwise a connection string for the
// configured driver built from the DB_* settings.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}

	switch c.DBDriver {
	case DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
	case DriverSQLite:
		return c.DBName + ".db"
	case DriverMongo:
		return fmt.Sprintf("mongodb://%s:%s@%s:%s/?retryWrites=true&w=majority",
			c.DBUser, c.DBPassword, c.DBHost, c.DBPort)
	default:
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
	}
}

func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

func defaultPort(driver string) string {
	switch driver {
	case DriverMySQL:
		return "3306"
	case DriverMongo:
		return "27017"
	default:
		return "5432"
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
