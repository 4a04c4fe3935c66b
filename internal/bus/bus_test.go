package bus

import (
	"reflect"
	"strconv"
	"testing"

	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/library"
	"github.com/mmcdole/crate/internal/testsupport"
)

func TestChannelFIFOWithReentrantPublish(t *testing.T) {
	c := NewChannel[int]("test", testsupport.NopLogger())
	var got []string
	c.Subscribe(func(n int) {
		got = append(got, "a"+strconv.Itoa(n))
		if n == 1 {
			c.Publish(2)
			c.Publish(3)
		}
	})
	c.Subscribe(func(n int) {
		got = append(got, "b"+strconv.Itoa(n))
	})

	c.Publish(1)
	want := []string{"a1", "b1", "a2", "b2", "a3", "b3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("delivery order = %v, want %v", got, want)
	}
}

func TestDisposeDuringDelivery(t *testing.T) {
	c := NewChannel[int]("test", testsupport.NopLogger())
	var got []string
	var disposeB func()
	c.Subscribe(func(n int) {
		got = append(got, "a"+strconv.Itoa(n))
		if n == 1 {
			disposeB()
		}
	})
	disposeB = c.Subscribe(func(n int) {
		got = append(got, "b"+strconv.Itoa(n))
	})

	c.Publish(1)
	c.Publish(2)
	want := []string{"a1", "a2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("delivery = %v, want %v", got, want)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}

func TestSelfDisposeDuringDelivery(t *testing.T) {
	c := NewChannel[int]("test", testsupport.NopLogger())
	calls := 0
	var dispose func()
	dispose = c.Subscribe(func(n int) {
		calls++
		dispose()
		dispose()
		c.Publish(n + 1)
	})
	c.Publish(1)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestSubscribeDuringDeliverySeesOnlyLaterEvents(t *testing.T) {
	c := NewChannel[int]("test", testsupport.NopLogger())
	var late []int
	c.Subscribe(func(n int) {
		if n == 1 {
			c.Subscribe(func(m int) { late = append(late, m) })
			c.Publish(2)
		}
	})
	c.Publish(1)
	if !reflect.DeepEqual(late, []int{2}) {
		t.Fatalf("late subscriber got %v, want [2]", late)
	}
}

func TestPanickingSubscriberDoesNotBlockOthers(t *testing.T) {
	capture, logger := testsupport.NewLogCapture()
	c := NewChannel[int]("test", logger)
	c.Subscribe(func(int) { panic("boom") })
	n := 0
	c.Subscribe(func(int) { n++ })

	c.Publish(1)
	c.Publish(2)
	if n != 2 {
		t.Fatalf("second subscriber calls = %d, want 2", n)
	}
	if len(capture.Records()) != 2 {
		t.Fatalf("expected panics to be logged, got %+v", capture.Records())
	}
}

func TestBusStoreSource(t *testing.T) {
	b := New(testsupport.NopLogger())
	store := library.NewStore(testsupport.NopLogger())
	detach := b.AttachStore(store)

	var got []domain.TrackID
	b.Subscribe(ListenerFuncs{Store: func(id domain.TrackID) { got = append(got, id) }})

	_ = store.Upsert(42, domain.RecordPatch{Quality: "flac"})
	_ = store.Remove(42)
	store.NotifyBulk()
	b.ChangedBulk()

	want := []domain.TrackID{42, 42, 0, 0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("store changes = %v, want %v", got, want)
	}

	detach()
	_ = store.Upsert(1, domain.RecordPatch{})
	if len(got) != 4 {
		t.Fatalf("detached store still publishing: %v", got)
	}
}

func TestBusSubscribeAllChannels(t *testing.T) {
	b := New(testsupport.NopLogger())
	var log []string
	dispose := b.Subscribe(ListenerFuncs{
		Worker: func(ev domain.WorkerEvent) { log = append(log, "worker:"+string(ev.Type)) },
		Store:  func(id domain.TrackID) { log = append(log, "store:"+strconv.Itoa(int(id))) },
		View:   func(r domain.Route) { log = append(log, "view:"+r.RouteName) },
	})

	b.PublishWorker(domain.WorkerEvent{Type: domain.DownloadFinished, TrackID: 1})
	b.Store.Publish(domain.StoreChange{TrackID: 1})
	b.Navigate(domain.Route{RouteName: "album", EntityType: "album", EntityID: "9"})

	want := []string{"worker:downloadFinished", "store:1", "view:album"}
	if !reflect.DeepEqual(log, want) {
		t.Fatalf("events = %v, want %v", log, want)
	}

	dispose()
	b.PublishWorker(domain.WorkerEvent{Type: domain.DownloadFinished})
	b.ChangedBulk()
	b.Navigate(domain.Route{RouteName: "home"})
	if len(log) != 3 {
		t.Fatalf("events after dispose: %v", log)
	}
}
