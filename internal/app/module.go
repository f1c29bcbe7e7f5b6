package app

import (
	"time"

	"github.com/fatflowers/insights/internal/app/api/server"
	"github.com/fatflowers/insights/internal/app/service/activity"
	"github.com/fatflowers/insights/internal/app/service/feed"
	"github.com/fatflowers/insights/internal/app/service/likes"
	"github.com/fatflowers/insights/internal/app/service/usage"
	"github.com/fatflowers/insights/internal/platform/cache"
	"github.com/fatflowers/insights/internal/platform/db"
	"github.com/fatflowers/insights/internal/platform/store"
	"github.com/fatflowers/insights/pkg/config"
	"github.com/fatflowers/insights/pkg/logger"

	"go.uber.org/fx"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	store.Module,
	cache.Module,
	server.Module,
	usage.Module,
	activity.Module,
	likes.Module,
	feed.Module,
)
