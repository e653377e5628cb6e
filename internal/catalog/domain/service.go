package domain

import "context"

// Catalog exposes read access to the bookable catalog for the HTTP
// surface. Admin writes happen through out-of-band tooling and migrations.
type Catalog interface {
	ListRooms(ctx context.Context) ([]Room, error)
	ListPackages(ctx context.Context) ([]Package, error)
	ListServices(ctx context.Context) ([]Service, error)
}
