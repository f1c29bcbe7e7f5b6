package likes

import "go.uber.org/fx"

// Module exposes the like ledger via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
	fx.Provide(func(s *Service) LikeManager { return s }),
)
