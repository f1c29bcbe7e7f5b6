package usage

import "go.uber.org/fx"

// Module exposes the usage ledger via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
	fx.Provide(func(s *Service) UsageManager { return s }),
	fx.Invoke(registerResetJob),
)
