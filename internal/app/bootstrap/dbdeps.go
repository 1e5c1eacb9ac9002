// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/nats-io/nats.go"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// NATS is nil when nats_url is blank.
	NATS *nats.Conn

	// App is allocated by ConnectDB, filled in by Startup, and read by
	// BuildHandler and Shutdown.
	App *Services
}
