package event

import (
	"github.com/campushq/pulse/internal/event/repository"
	eventservice "github.com/campushq/pulse/internal/event/service"
	"go.uber.org/fx"
)

var Module = fx.Module("event",
	fx.Provide(repository.Provide),
	fx.Provide(eventservice.NewService),
)
