package server

import (
	"github.com/foxseedlab/shuchurin/internal/config"
	"github.com/foxseedlab/shuchurin/internal/repository"
	"github.com/foxseedlab/shuchurin/internal/stream"
	"github.com/foxseedlab/shuchurin/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		registry := do.MustInvoke[*stream.Registry](i)
		wh := do.MustInvoke[webhook.Sender](i)
		return NewServer(cfg, repo, registry, wh), nil
	})
}
