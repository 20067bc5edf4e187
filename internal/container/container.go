package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/maplify-tech/whiteboard/config"
	"github.com/maplify-tech/whiteboard/internal/domain/repository"
	"github.com/maplify-tech/whiteboard/pkg/helpers"
)

// Process-wide components built once in main and shared with the router.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	objectStore repository.ObjectStore

	jwtManager *helpers.JWTManager

	rabbitPub *helpers.RabbitPublisher
	esClient  *elasticsearch.Client
)

func SetConfig(c *config.Config)              { cfg = c }
func SetLogger(l *logrus.Logger)              { logger = l }
func SetPGPool(p *pgxpool.Pool)               { pgPool = p }
func GetPGPool() *pgxpool.Pool                { return pgPool }
func SetRedis(r *redis.Client)                { redisClient = r }
func GetRedis() *redis.Client                 { return redisClient }
func SetObjectStore(s repository.ObjectStore) { objectStore = s }
func GetObjectStore() repository.ObjectStore  { return objectStore }
func SetJWT(m *helpers.JWTManager)            { jwtManager = m }
func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }
func SetES(c *elasticsearch.Client)           { esClient = c }
func GetES() *elasticsearch.Client            { return esClient }

func GetConfig() *config.Config {
	if cfg == nil {
		cfg = config.Load()
	}
	return cfg
}

func GetLogger() *logrus.Logger {
	if logger == nil {
		logger = helpers.DiscardLogger()
	}
	return logger
}

func GetJWT() *helpers.JWTManager {
	if jwtManager != nil {
		return jwtManager
	}
	c := GetConfig()
	return helpers.NewJWTManager(c.JWTSecret, c.SessionTTL)
}
