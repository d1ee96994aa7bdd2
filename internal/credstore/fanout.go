package credstore

import (
	"context"
	"time"
)

// fanout reads from the primary backing and applies every write to all
// backings, keeping the browser jar and the server-side mirror in step
type fanoutStore struct {
	primary Store
	all     []Store
}

// Fanout combines backings: reads hit primary, writes hit everything
func Fanout(primary Store, secondaries ...Store) Store {
	return &fanoutStore{
		primary: primary,
		all:     append([]Store{primary}, secondaries...),
	}
}

func (f *fanoutStore) Get(ctx context.Context, key string) (string, error) {
	return f.primary.Get(ctx, key)
}

func (f *fanoutStore) Set(ctx context.Context, key string, value string, expiry time.Time) error {
	for _, s := range f.all {
		if err := s.Set(ctx, key, value, expiry); err != nil {
			return err
		}
	}
	return nil
}

func (f *fanoutStore) Remove(ctx context.Context, key string) error {
	for _, s := range f.all {
		if err := s.Remove(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
