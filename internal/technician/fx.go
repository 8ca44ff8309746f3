package technician

import (
	"github.com/smallbiznis/fieldops/internal/technician/repository"
	"github.com/smallbiznis/fieldops/internal/technician/service"
	"go.uber.org/fx"
)

var Module = fx.Module("technician.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
