package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/maplify-tech/whiteboard/config"
	"github.com/maplify-tech/whiteboard/internal/application"
	"github.com/maplify-tech/whiteboard/internal/domain/entity"
	"github.com/maplify-tech/whiteboard/internal/domain/repository"
	pginfra "github.com/maplify-tech/whiteboard/internal/infrastructure/postgres"
	"github.com/maplify-tech/whiteboard/pkg/boarddoc"
	"github.com/maplify-tech/whiteboard/pkg/helpers"
	"github.com/maplify-tech/whiteboard/pkg/thumbnail"
)

const (
	demoEmail    = "demo@maplify.tech"
	demoPassword = "password123"
	demoName     = "Demo User"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), 2, 1, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	users := pginfra.NewUserRepository(pool)
	u, err := users.GetByEmail(ctx, demoEmail)
	if errors.Is(err, repository.ErrNotFound) {
		hash, herr := helpers.HashPassword(demoPassword)
		if herr != nil {
			log.Fatalf("failed to hash password: %v", herr)
		}
		u = &entity.User{Email: demoEmail, Name: demoName, PasswordHash: hash}
		err = users.Create(ctx, u)
	}
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("seeded user: id=%s email=%s password=%s\n", u.ID, u.Email, demoPassword)

	boards := application.NewBoardService(pginfra.NewBoardRepository(pool), nil, nil, users, nil, logger)
	existing, err := boards.List(ctx, u.ID, application.ListFilter{})
	if err != nil {
		log.Fatalf("failed to list boards: %v", err)
	}
	if len(existing) > 0 {
		fmt.Printf("demo user already has %d boards; skipping\n", len(existing))
		return
	}

	data := boarddoc.DefaultData()
	data.Elements = demoElements()
	in := application.CreateBoardInput{Name: "Welcome board", Data: &data, Tags: []string{"demo"}}
	gen := thumbnail.NewGenerator(thumbnail.SolidRenderer{}, logger)
	if thumb, ok := gen.Generate(ctx, data.Elements, data.AppState, data.Files); ok {
		in.Thumbnail = &thumb
	}

	b, err := boards.Create(ctx, u.ID, in)
	if err != nil {
		log.Fatalf("failed to seed board: %v", err)
	}
	fmt.Printf("seeded board: id=%s name=%q\n", b.ID, b.Name)
}

func demoElements() []json.RawMessage {
	shapes := []map[string]any{
		{"id": "welcome-title", "type": "text", "x": 40, "y": 30, "width": 320, "height": 40, "text": "Welcome to Maplify", "strokeColor": "#1e1e1e"},
		{"id": "idea-box", "type": "rectangle", "x": 40, "y": 110, "width": 180, "height": 100, "strokeColor": "#1971c2", "backgroundColor": "#a5d8ff"},
		{"id": "plan-box", "type": "ellipse", "x": 280, "y": 110, "width": 160, "height": 100, "strokeColor": "#2f9e44", "backgroundColor": "#b2f2bb"},
	}
	out := make([]json.RawMessage, 0, len(shapes))
	for _, s := range shapes {
		raw, err := json.Marshal(s)
		if err != nil {
			log.Fatalf("encode element: %v", err)
		}
		out = append(out, raw)
	}
	return out
}
