package syncrun

import (
	"github.com/smallbiznis/fieldops/internal/syncrun/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("syncrun.repository",
	fx.Provide(repository.Provide),
)
