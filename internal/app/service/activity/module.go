package activity

import "go.uber.org/fx"

// Module exposes the activity log via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
	fx.Provide(func(s *Service) ActivityManager { return s }),
)
