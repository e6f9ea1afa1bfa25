package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/mfleming/demoroster/internal/config"
	"github.com/mfleming/demoroster/pkg/core/services"
	"github.com/mfleming/demoroster/pkg/postgres"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg       *config.Config
	OAuthCfg  *config.OAuthClientConfig
	Store     *postgres.DB
	Submitter services.AssignmentSubmitter
	Logger    *zap.Logger
	Ctx       context.Context
}
