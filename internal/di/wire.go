//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/ezenity/ezenity-api/internal/app"
	"github.com/ezenity/ezenity-api/internal/config"
	"github.com/ezenity/ezenity-api/internal/service"
)

func InitializeApp(ctx context.Context, cfg *config.Config) (*app.App, func(), error) {
	wire.Build(HTTPSet)
	return nil, nil, nil
}

// InitializeAccountService builds the service without the HTTP stack, for
// maintenance commands.
func InitializeAccountService(ctx context.Context, cfg *config.Config) (*service.AccountService, func(), error) {
	wire.Build(CoreSet)
	return nil, nil, nil
}
