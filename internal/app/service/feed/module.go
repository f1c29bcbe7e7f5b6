package feed

import "go.uber.org/fx"

// Module exposes the community feed via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
	fx.Provide(func(s *Service) FeedManager { return s }),
)
