package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestAcquireCreatesOnce(t *testing.T) {
	tr := newFakeTransport("discord")
	b := NewIdentityBroker("BabelRelay")

	first, err := b.Acquire(context.Background(), tr, "chan-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	second, err := b.Acquire(context.Background(), tr, "chan-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if first != second {
		t.Error("repeated acquire must return the cached identity")
	}
	if tr.created != 1 {
		t.Errorf("expected exactly 1 creation, got %d", tr.created)
	}
}

func TestAcquireReusesExistingIdentity(t *testing.T) {
	tr := newFakeTransport("discord")
	tr.existing = map[string][]PostedIdentity{
		"chan-1": {
			{ChannelID: "chan-1", ID: "other", Name: "SomeOtherBot"},
			{ChannelID: "chan-1", ID: "mine", Token: "tok", Name: "BabelRelay"},
		},
	}
	b := NewIdentityBroker("BabelRelay")

	id, err := b.Acquire(context.Background(), tr, "chan-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if id.ID != "mine" {
		t.Errorf("expected the existing matching identity, got %+v", id)
	}
	if tr.created != 0 {
		t.Errorf("no identity should be created when one already matches, got %d", tr.created)
	}
}

func TestAcquireConcurrentSingleCreation(t *testing.T) {
	tr := newFakeTransport("discord")
	b := NewIdentityBroker("")

	var wg sync.WaitGroup
	ids := make([]PostedIdentity, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := b.Acquire(context.Background(), tr, "chan-1")
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			ids[i] = id
		}(i)
	}
	wg.Wait()

	if tr.created != 1 {
		t.Errorf("concurrent first-callers must converge on 1 creation, got %d", tr.created)
	}
	for i, id := range ids {
		if id != ids[0] {
			t.Errorf("caller %d got a different identity: %+v vs %+v", i, id, ids[0])
		}
	}
}

func TestAcquireDistinctPerChannel(t *testing.T) {
	tr := newFakeTransport("discord")
	b := NewIdentityBroker("BabelRelay")

	a, err := b.Acquire(context.Background(), tr, "chan-a")
	if err != nil {
		t.Fatal(err)
	}
	c, err := b.Acquire(context.Background(), tr, "chan-b")
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == c.ID {
		t.Error("identities are channel-scoped and must differ per channel")
	}
	if tr.created != 2 {
		t.Errorf("expected 2 creations, got %d", tr.created)
	}
}

type failingListTransport struct {
	*fakeTransport
	listErr error
}

func (f *failingListTransport) ListIdentities(context.Context, string) ([]PostedIdentity, error) {
	return nil, f.listErr
}

func TestAcquireFailureNotCached(t *testing.T) {
	tr := newFakeTransport("discord")
	failing := &failingListTransport{fakeTransport: tr, listErr: errors.New("forbidden")}
	b := NewIdentityBroker("BabelRelay")

	if _, err := b.Acquire(context.Background(), failing, "chan-1"); err == nil {
		t.Fatal("expected error from failing transport")
	}

	// The same broker succeeds once the transport recovers.
	id, err := b.Acquire(context.Background(), tr, "chan-1")
	if err != nil {
		t.Fatalf("acquire after recovery: %v", err)
	}
	if id.ID == "" {
		t.Error("expected a real identity after recovery")
	}
}
