package escrow

import (
	"github.com/campushq/pulse/internal/escrow/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("escrow",
	fx.Provide(repository.Provide),
)
