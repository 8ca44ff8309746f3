package activity

import (
	"github.com/smallbiznis/fieldops/internal/activity/repository"
	"github.com/smallbiznis/fieldops/internal/activity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("activity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
