package membership

import (
	"github.com/campushq/pulse/internal/membership/repository"
	membershipservice "github.com/campushq/pulse/internal/membership/service"
	"go.uber.org/fx"
)

var Module = fx.Module("membership",
	fx.Provide(repository.Provide),
	fx.Provide(membershipservice.NewService),
)
