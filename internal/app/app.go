package app

import (
	"msgcrypt/internal/domain"
	"msgcrypt/internal/services/group"
	"msgcrypt/internal/services/identity"
	"msgcrypt/internal/services/message"
	"msgcrypt/internal/services/session"
	"msgcrypt/internal/store"
)

// App bundles the constructed engines.
type App struct {
	Registry *identity.Service
	Sessions *session.Service
	Messages *message.Engine
	Groups   *group.Service
	Store    domain.SessionStore
	Suite    domain.CipherSuite
}

// New wires the engines from cfg.
func New(cfg Config) (*App, error) {
	var st domain.SessionStore
	if cfg.Dir != "" {
		st = store.NewFileStore(cfg.Dir)
	}

	registry := identity.New(cfg.Rand)
	sessions := session.New(registry, cfg.Rand, cfg.metrics())
	messages, err := message.New(sessions, st, cfg.algorithm(), cfg.Rand, cfg.metrics())
	if err != nil {
		return nil, err
	}
	groups := group.New(st, cfg.Rand, cfg.metrics())

	return &App{
		Registry: registry,
		Sessions: sessions,
		Messages: messages,
		Groups:   groups,
		Store:    st,
		Suite:    cfg.suite(),
	}, nil
}
