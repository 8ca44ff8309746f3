package fieldservice

import (
	"github.com/smallbiznis/fieldops/internal/fieldservice/client"
	"go.uber.org/fx"
)

var Module = fx.Module("fieldservice",
	fx.Provide(client.New),
)
