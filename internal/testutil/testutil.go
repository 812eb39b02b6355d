// Package testutil provides the shared plumbing for tests that need a real
// MongoDB: per-test throwaway databases, bounded contexts, chi route
// helpers, and entity fixtures.
package testutil

import (
	"context"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/buildbee/internal/app/system/indexes"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// envMongoURI names the environment variable that points tests at a Mongo
// instance. Defaults to a local server; tests skip when none is reachable.
const envMongoURI = "BUILDBEE_TEST_MONGO_URI"

// SetupTestDB connects to the test MongoDB and returns a uniquely named
// database with production indexes applied. The database is dropped and the
// client disconnected when the test finishes. Skips the test when no Mongo
// server is reachable.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv(envMongoURI)
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("mongo not available at %s: %v", uri, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		t.Skipf("mongo not available at %s: %v", uri, err)
	}

	name := "buildbee_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	db := client.Database(name)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Drop(ctx); err != nil {
			t.Logf("dropping test database %s failed: %v", name, err)
		}
		_ = client.Disconnect(ctx)
	})

	// Unique indexes must be in place so duplicate-key behavior matches
	// production.
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("ensuring indexes on test database failed: %v", err)
	}

	return db
}

// TestContext returns a context bounded well above any single store
// operation, so hung tests fail instead of stalling the run.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// WithChiURLParam attaches a chi URL parameter to the request context, for
// handler tests that bypass the router.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
