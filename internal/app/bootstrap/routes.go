// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	groupsfeature "github.com/dalemusser/buildbee/internal/app/features/groups"
	healthfeature "github.com/dalemusser/buildbee/internal/app/features/health"
	loginfeature "github.com/dalemusser/buildbee/internal/app/features/login"
	programsfeature "github.com/dalemusser/buildbee/internal/app/features/programs"
	sessionsfeature "github.com/dalemusser/buildbee/internal/app/features/sessions"
	studentsfeature "github.com/dalemusser/buildbee/internal/app/features/students"
	groupstore "github.com/dalemusser/buildbee/internal/app/store/groups"
	programstore "github.com/dalemusser/buildbee/internal/app/store/programs"
	sessionstore "github.com/dalemusser/buildbee/internal/app/store/sessions"
	staffstore "github.com/dalemusser/buildbee/internal/app/store/staff"
	studentstore "github.com/dalemusser/buildbee/internal/app/store/students"
	"github.com/dalemusser/buildbee/internal/app/system/auth"
	"github.com/dalemusser/buildbee/internal/app/system/relation"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. The health and /auth endpoints are
// public; every entity resource sits behind the signed-in gate.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	secure := coreCfg.Env == "prod"
	if err := auth.InitSessionStore(appCfg.SessionKey, appCfg.SessionDomain, secure, logger); err != nil {
		logger.Error("session store init failed", zap.Error(err))
		return nil, err
	}

	db := deps.MongoDatabase
	relations := relation.New(db, logger)

	r := chi.NewRouter()

	// Loads the staff member into context when the session cookie is valid.
	r.Use(auth.LoadSessionStaff)

	healthHandler := healthfeature.NewHandler(deps.MongoClient, db, logger)
	healthfeature.MountRoutes(r, healthHandler)

	loginHandler := loginfeature.NewHandler(staffstore.New(db), logger)
	r.Mount("/auth", loginfeature.Routes(loginHandler))

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		studentsHandler := studentsfeature.NewHandler(studentstore.New(db), relations, logger)
		pr.Mount("/students", studentsfeature.Routes(studentsHandler))

		groupsHandler := groupsfeature.NewHandler(db, groupstore.New(db), relations, logger)
		pr.Mount("/groups", groupsfeature.Routes(groupsHandler))

		sessionsHandler := sessionsfeature.NewHandler(db, sessionstore.New(db), relations, logger)
		pr.Mount("/sessions", sessionsfeature.Routes(sessionsHandler))

		programsHandler := programsfeature.NewHandler(programstore.New(db), logger)
		pr.Mount("/programs", programsfeature.Routes(programsHandler))
	})

	return r, nil
}
