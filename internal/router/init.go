package router

import (
	"github.com/maplify-tech/whiteboard/internal/application"
	"github.com/maplify-tech/whiteboard/internal/container"
	"github.com/maplify-tech/whiteboard/internal/domain/repository"
	pginfra "github.com/maplify-tech/whiteboard/internal/infrastructure/postgres"
	"github.com/maplify-tech/whiteboard/internal/infrastructure/redisstore"
	"github.com/maplify-tech/whiteboard/internal/infrastructure/search"
	handlers "github.com/maplify-tech/whiteboard/internal/interface/http"
	"github.com/maplify-tech/whiteboard/internal/router/modules"
)

// Deps are the services the HTTP modules are built from.
type Deps struct {
	Boards *application.BoardService
	Users  *application.UserService
	Health handlers.Checker
}

// BuildDeps wires repositories and services from the container.
func BuildDeps() Deps {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	pool := container.GetPGPool()

	var notifyPub application.JobPublisher
	if p := container.GetRabbitPub(); p != nil {
		notifyPub = p
	}
	notify := application.NewNotifier(notifyPub, cfg, logger)

	var index repository.BoardIndex
	if es := container.GetES(); es != nil && cfg.SearchEnabled {
		index = search.NewBoardIndex(es, cfg.ESBoardsIndex)
	}

	users := pginfra.NewUserRepository(pool)
	boardSvc := application.NewBoardService(
		pginfra.NewBoardRepository(pool),
		container.GetObjectStore(),
		index,
		users,
		notify,
		logger,
	)
	boardSvc.MaxFileBytes = cfg.MaxFileBytes

	userSvc := application.NewUserService(
		users,
		redisstore.NewSessionStore(container.GetRedis()),
		container.GetJWT(),
		notify,
		logger,
	)

	return Deps{Boards: boardSvc, Users: userSvc, Health: pginfra.NewChecker(pool)}
}

// InitModules registers every feature module. It is called once at startup.
func InitModules(r *Registry, d Deps) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	rdb := container.GetRedis()

	r.AddRoot(modules.NewHealthModule(handlers.NewHealthHandler(d.Health, logger)))
	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(d.Users, logger), d.Users, rdb, cfg, logger))
	r.Add(modules.NewBoardModule(handlers.NewBoardHandler(d.Boards, logger), d.Users, rdb, cfg, logger))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
