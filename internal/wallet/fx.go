package wallet

import (
	"github.com/campushq/pulse/internal/wallet/repository"
	walletservice "github.com/campushq/pulse/internal/wallet/service"
	"go.uber.org/fx"
)

var Module = fx.Module("wallet.service",
	fx.Provide(repository.Provide),
	fx.Provide(walletservice.NewService),
)
