package idempotency

import (
	"context"
	"fmt"
	"time"
)

type exampleStore struct {
	values []bool
	index  int
}

func (s *exampleStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (s *exampleStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	result := false
	if s.index < len(s.values) {
		result = s.values[s.index]
	}
	s.index++
	return result, nil
}

func (s *exampleStore) IdempotencyKey(scope, id string) string {
	return "sh:idempotency:" + scope + ":" + id
}

func (s *exampleStore) Del(context.Context, ...string) error {
	return nil
}

func ExampleManager_CheckAndMarkProcessed() {
	ctx := context.Background()
	store := &exampleStore{values: []bool{true, false}}
	manager, _ := NewManager(store, 7*24*time.Hour)

	handle := func(deliveryID string) string {
		alreadyProcessed, _ := manager.CheckAndMarkProcessed(ctx, "storefront-orders", deliveryID)
		if alreadyProcessed {
			return "already processed"
		}
		return "processing delivery"
	}

	fmt.Println(handle("b5c1e0f2"))
	fmt.Println(handle("b5c1e0f2"))
	// Output:
	// processing delivery
	// already processed
}
