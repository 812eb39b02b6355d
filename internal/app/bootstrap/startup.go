// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"

	staffstore "github.com/dalemusser/buildbee/internal/app/store/staff"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It
// creates the initial admin staff account when one is configured, so a
// fresh deployment has a way to sign in.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.AdminEmail == "" {
		return nil
	}

	staff := staffstore.New(deps.MongoDatabase)
	created, err := staff.Create(ctx, appCfg.AdminName, appCfg.AdminEmail, appCfg.AdminPassword, "admin")
	if errors.Is(err, staffstore.ErrDuplicateStaffEmail) {
		logger.Info("admin staff account already exists",
			zap.String("email", appCfg.AdminEmail))
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("created initial admin staff account",
		zap.String("email", appCfg.AdminEmail),
		zap.String("staff_id", created.ID.Hex()))
	return nil
}
