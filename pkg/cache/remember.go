package cache

import (
	"context"
	"encoding/json"
	"errors"
)

// RememberForever returns the value cached under key in the namespace of ctx.
// On a miss compute is called and its result stored without expiry. When two
// callers race, both return the value that was stored first.
func RememberForever[T any](ctx context.Context, store Store, key string, compute func(ctx context.Context) (T, error)) (T, error) {
	return remember(ctx, store, Key(ctx, key), compute)
}

func remember[T any](ctx context.Context, store Store, fullKey string, compute func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if v, ok, err := load[T](ctx, store, fullKey); err != nil || ok {
		return v, err
	}

	v, err := compute(ctx)
	if err != nil {
		return zero, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return zero, errors.Join(ErrEncode, err)
	}

	stored, err := store.SetNX(ctx, fullKey, raw, 0)
	if err != nil {
		return zero, err
	}
	if stored {
		return v, nil
	}

	if winner, ok, err := load[T](ctx, store, fullKey); err != nil || ok {
		return winner, err
	}
	return v, nil
}

func load[T any](ctx context.Context, store Store, fullKey string) (T, bool, error) {
	var v T
	raw, ok, err := store.Get(ctx, fullKey)
	if err != nil || !ok {
		return v, false, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, errors.Join(ErrDecode, err)
	}
	return v, true, nil
}
