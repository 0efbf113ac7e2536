package db

import "context"

// DB is a store connection owned by main.
type DB interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
}
