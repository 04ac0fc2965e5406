package nakama

import (
	"context"
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/a-singh09/uno-game-sub000/internal/store"
)

const sessionCollection = "session_state"

// NakamaStorageAdapter implements store.Backend on the Nakama storage
// engine: the shared durable key-value backend. Records are system-owned
// and never readable by clients.
type NakamaStorageAdapter struct {
	nk runtime.NakamaModule
}

// NewNakamaStorageAdapter creates a durable backend adapter.
func NewNakamaStorageAdapter(nk runtime.NakamaModule) *NakamaStorageAdapter {
	return &NakamaStorageAdapter{nk: nk}
}

// Get reads the session record. Absence returns nil bytes, never an error.
func (a *NakamaStorageAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	objects, err := a.nk.StorageRead(ctx, []*runtime.StorageRead{
		{Collection: sessionCollection, Key: key},
	})
	if err != nil {
		return nil, fmt.Errorf("storage read failed for %s: %w", key, err)
	}
	if len(objects) == 0 {
		return nil, nil
	}
	return []byte(objects[0].GetValue()), nil
}

// Set writes the session record, last-writer-wins.
func (a *NakamaStorageAdapter) Set(ctx context.Context, key string, value []byte) error {
	_, err := a.nk.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      sessionCollection,
			Key:             key,
			Value:           string(value),
			PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	})
	if err != nil {
		return fmt.Errorf("storage write failed for %s: %w", key, err)
	}
	return nil
}

// Delete removes the session record.
func (a *NakamaStorageAdapter) Delete(ctx context.Context, key string) error {
	err := a.nk.StorageDelete(ctx, []*runtime.StorageDelete{
		{Collection: sessionCollection, Key: key},
	})
	if err != nil {
		return fmt.Errorf("storage delete failed for %s: %w", key, err)
	}
	return nil
}

// Keys lists every stored session key, paging through the collection.
func (a *NakamaStorageAdapter) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	cursor := ""
	for {
		objects, next, err := a.nk.StorageList(ctx, "", "", sessionCollection, 100, cursor)
		if err != nil {
			return nil, fmt.Errorf("storage list failed: %w", err)
		}
		for _, obj := range objects {
			keys = append(keys, obj.GetKey())
		}
		if next == "" {
			break
		}
		cursor = next
	}
	return keys, nil
}

var _ store.Backend = (*NakamaStorageAdapter)(nil)
