package configuration

import (
	"fmt"
	"os"
	"strconv"

	"publisher/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Database    Database    `json:"database"`
	RedisClient RedisClient `json:"redisClient"`
	Queue       Queue       `json:"queue"`
	Publishing  Publishing  `json:"publishing"`
}

type App struct {
	Port      int    `json:"port"`
	SecretKey string `json:"secretKey"`
}

type Database struct {
	Psql Db `json:"psql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type Queue struct {
	Concurrency   int     `json:"concurrency"`   // concurrent job executions
	StartsPerSec  float64 `json:"startsPerSec"`  // global job-start ceiling
	RetryBaseMs   int     `json:"retryBaseMs"`   // backoff base for failed jobs
	RetryMaxMs    int     `json:"retryMaxMs"`    // backoff cap
	DeadLetterCap int     `json:"deadLetterCap"` // retained DLQ entries
}

type Publishing struct {
	RollbackWindowSec int `json:"rollbackWindowSec"`
	MaxScheduleDays   int `json:"maxScheduleDays"`
	BulkScheduleCap   int `json:"bulkScheduleCap"`
	UserJobLimit      int `json:"userJobLimit"`
}

var C Config

func init() {
	LoadConfig()
	initApp(&C)
	initDatabase(&C)
	initQueue(&C)
	initPublishing(&C)
}

func LoadConfig() {
	name := configName()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func configName() string {
	name := "config"
	if env := os.Getenv("ENV"); env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initApp(C *Config) {
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10002
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

func initDatabase(C *Config) {
	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = "localhost"
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = "5432"
	}
}

func initQueue(C *Config) {
	if C.Queue.Concurrency <= 0 {
		C.Queue.Concurrency = 10
	}
	if C.Queue.StartsPerSec <= 0 {
		C.Queue.StartsPerSec = 50
	}
	if C.Queue.RetryBaseMs <= 0 {
		C.Queue.RetryBaseMs = 1000
	}
	if C.Queue.RetryMaxMs <= 0 {
		C.Queue.RetryMaxMs = 60000
	}
	if C.Queue.DeadLetterCap <= 0 {
		C.Queue.DeadLetterCap = 1000
	}
}

func initPublishing(C *Config) {
	if C.Publishing.RollbackWindowSec <= 0 {
		C.Publishing.RollbackWindowSec = 300
	}
	if C.Publishing.MaxScheduleDays <= 0 {
		C.Publishing.MaxScheduleDays = 30
	}
	if C.Publishing.BulkScheduleCap <= 0 {
		C.Publishing.BulkScheduleCap = 20
	}
	if C.Publishing.UserJobLimit <= 0 {
		C.Publishing.UserJobLimit = 10
	}
}
