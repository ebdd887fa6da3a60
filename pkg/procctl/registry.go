package procctl

import (
	"context"
	"fmt"
	"path/filepath"

	cmap "github.com/orcaman/concurrent-map/v2"
)

type sharedRegion struct {
	region *Region
	refs   int
}

// regions holds the mappings handed out by Acquire, keyed by absolute path.
var regions = cmap.New[*sharedRegion]()

// Acquire returns a mapping of path shared by every caller in this process.
// Each successful Acquire must be paired with a Release; the mapping is closed
// by the last one. Acquiring a path already mapped with another layout fails
// with ErrSizeMismatch.
func Acquire(ctx context.Context, path string, opts ...Option) (*Region, error) {
	key, err := regionKey(path)
	if err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var acqErr error
	entry := regions.Upsert(key, nil, func(exist bool, cur *sharedRegion, _ *sharedRegion) *sharedRegion {
		if exist && cur != nil {
			if cur.region.layout != o.layout {
				acqErr = fmt.Errorf("%w: %s already mapped with layout %+v", ErrSizeMismatch, key, cur.region.layout)
				return cur
			}
			cur.refs++
			return cur
		}
		r, err := Open(ctx, key, opts...)
		if err != nil {
			acqErr = err
			return nil
		}
		return &sharedRegion{region: r, refs: 1}
	})
	if acqErr != nil {
		regions.RemoveCb(key, func(_ string, v *sharedRegion, exists bool) bool {
			return exists && v == nil
		})
		return nil, acqErr
	}
	return entry.region, nil
}

// Release drops one reference taken by Acquire.
func Release(r *Region) error {
	key, err := regionKey(r.Path())
	if err != nil {
		return err
	}
	var closeErr error
	found := false
	regions.RemoveCb(key, func(_ string, v *sharedRegion, exists bool) bool {
		if !exists || v == nil || v.region != r {
			return false
		}
		found = true
		v.refs--
		if v.refs > 0 {
			return false
		}
		closeErr = v.region.Close()
		return true
	})
	if !found {
		return fmt.Errorf("%w: %s was not acquired", ErrClosed, key)
	}
	return closeErr
}

func regionKey(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrIO, path, err)
	}
	return filepath.Clean(abs), nil
}
