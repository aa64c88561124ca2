package main

import (
	"context"

	"advisor-backend/cmd/catalog-cli/commands"
	"advisor-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "catalog-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
