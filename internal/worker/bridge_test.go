package worker

import (
	"errors"
	"reflect"
	"testing"

	"github.com/mmcdole/crate/internal/bus"
	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/library"
	"github.com/mmcdole/crate/internal/scheduler"
	"github.com/mmcdole/crate/internal/testsupport"
)

type harness struct {
	store  *library.Store
	bus    *bus.Bus
	bridge *Bridge

	upserts int
	events  []domain.WorkerEvent
}

func newHarness(t *testing.T, policy CancelPolicy) *harness {
	t.Helper()
	h := &harness{
		store: library.NewStore(testsupport.NopLogger()),
		bus:   bus.New(testsupport.NopLogger()),
	}
	h.bus.AttachStore(h.store)
	h.store.OnChange(func(domain.TrackID) { h.upserts++ })
	h.bus.Worker.Subscribe(func(ev domain.WorkerEvent) { h.events = append(h.events, ev) })
	h.bridge = NewBridge(h.store, h.bus, policy, testsupport.NopLogger())
	return h
}

func TestRequestedThenFinished(t *testing.T) {
	h := newHarness(t, CancelRemove)

	mustHandle(t, h.bridge, Message{Type: domain.DownloadRequested, JobID: "playlist:7:track:42:flac"})
	rec, ok := h.store.Get(42)
	if !ok || !rec.IsInFlight() || rec.Origin != domain.PlaylistOrigin("7") {
		t.Fatalf("after request: %+v", rec)
	}

	mustHandle(t, h.bridge, Message{Type: domain.DownloadFinished, JobID: "track:42:flac", FileURI: "/x.flac"})
	rec, _ = h.store.Get(42)
	if rec.FileURI != "/x.flac" || rec.Status != domain.StatusComplete {
		t.Fatalf("after finish: %+v", rec)
	}
	if rec.Origin != domain.PlaylistOrigin("7") {
		t.Fatalf("unattributed finish demoted origin: %v", rec.Origin)
	}
	if len(h.events) != 2 || h.events[1].TrackID != 42 || h.events[1].FileURI != "/x.flac" {
		t.Fatalf("events = %+v", h.events)
	}
}

func TestFinishedBeforeRequested(t *testing.T) {
	h := newHarness(t, CancelRemove)
	mustHandle(t, h.bridge, Message{Type: domain.DownloadFinished, JobID: "album:9:track:3:mp3_320", FileURI: "/3.mp3"})
	mustHandle(t, h.bridge, Message{Type: domain.DownloadRequested, JobID: "album:9:track:3:mp3_320"})

	rec, _ := h.store.Get(3)
	if !rec.IsComplete() || rec.Status != domain.StatusComplete {
		t.Fatalf("late request regressed completion: %+v", rec)
	}
}

func TestStoreConsistentBeforeWorkerEventDelivered(t *testing.T) {
	h := newHarness(t, CancelRemove)
	var seen []domain.DownloadRecord
	h.bus.Worker.Subscribe(func(ev domain.WorkerEvent) {
		rec, _ := h.store.Get(ev.TrackID)
		seen = append(seen, rec)
	})

	mustHandle(t, h.bridge, Message{Type: domain.DownloadFinished, JobID: "track:5:flac", FileURI: "/5.flac"})
	if len(seen) != 1 || seen[0].FileURI != "/5.flac" {
		t.Fatalf("subscriber saw %+v", seen)
	}
}

func TestFailedWithoutRecordSchedulesTargetedRefresh(t *testing.T) {
	h := newHarness(t, CancelRemove)
	frames := testsupport.NewFrames()
	r := &countingRefresher{}
	s := scheduler.New(r, frames, testsupport.NopLogger())
	h.bus.Worker.Subscribe(func(ev domain.WorkerEvent) { s.Request(ev.TrackID) })

	mustHandle(t, h.bridge, Message{Type: domain.DownloadFailed, JobID: "dl:42:mp3_128", ErrorReason: "network"})

	if h.upserts != 0 {
		t.Fatalf("upsert called %d times", h.upserts)
	}
	if h.store.Len() != 0 {
		t.Fatalf("record created: %+v", h.store.GetAll())
	}
	frames.Tick()
	if !reflect.DeepEqual(r.targets, [][]domain.TrackID{{42}}) || r.all != 0 {
		t.Fatalf("targets = %v all = %d, want targeted refresh of 42", r.targets, r.all)
	}
}

func TestFailedLeavesCompletedRecord(t *testing.T) {
	h := newHarness(t, CancelRemove)
	mustHandle(t, h.bridge, Message{Type: domain.DownloadFinished, JobID: "track:8:flac", FileURI: "/8.flac"})
	mustHandle(t, h.bridge, Message{Type: domain.DownloadFailed, JobID: "track:8:flac", ErrorReason: "retry failed"})
	rec, _ := h.store.Get(8)
	if rec.Status != domain.StatusComplete || rec.FileURI != "/8.flac" {
		t.Fatalf("record = %+v", rec)
	}
	if len(h.events) != 2 {
		t.Fatalf("events = %+v", h.events)
	}
}

func TestFailedMarksExistingRecord(t *testing.T) {
	h := newHarness(t, CancelRemove)
	mustHandle(t, h.bridge, Message{Type: domain.DownloadRequested, JobID: "track:8:flac"})
	mustHandle(t, h.bridge, Message{Type: domain.DownloadFailed, JobID: "track:8:flac", ErrorReason: "disk full"})
	rec, _ := h.store.Get(8)
	if rec.Status != domain.StatusFailed || rec.IsInFlight() {
		t.Fatalf("record = %+v", rec)
	}
	if h.events[1].ErrorReason != "disk full" {
		t.Fatalf("error reason not carried: %+v", h.events[1])
	}
}

func TestCancelPolicies(t *testing.T) {
	t.Run("remove", func(t *testing.T) {
		h := newHarness(t, CancelRemove)
		mustHandle(t, h.bridge, Message{Type: domain.DownloadRequested, JobID: "track:1:flac"})
		mustHandle(t, h.bridge, Message{Type: domain.DownloadCancelled, JobID: "track:1:flac"})
		if _, ok := h.store.Get(1); ok {
			t.Fatal("cancelled in-flight record should be removed")
		}
	})
	t.Run("keep", func(t *testing.T) {
		h := newHarness(t, CancelKeep)
		mustHandle(t, h.bridge, Message{Type: domain.DownloadRequested, JobID: "track:1:flac"})
		mustHandle(t, h.bridge, Message{Type: domain.DownloadCancelled, JobID: "track:1:flac"})
		rec, ok := h.store.Get(1)
		if !ok || rec.Status != domain.StatusCancelled {
			t.Fatalf("record = %+v", rec)
		}
	})
	t.Run("completed untouched", func(t *testing.T) {
		h := newHarness(t, CancelRemove)
		mustHandle(t, h.bridge, Message{Type: domain.DownloadFinished, JobID: "track:1:flac", FileURI: "/1"})
		mustHandle(t, h.bridge, Message{Type: domain.DownloadCancelled, JobID: "track:1:flac"})
		rec, ok := h.store.Get(1)
		if !ok || !rec.IsComplete() {
			t.Fatalf("completed record changed by cancel: %+v", rec)
		}
	})
	t.Run("unknown", func(t *testing.T) {
		h := newHarness(t, CancelKeep)
		mustHandle(t, h.bridge, Message{Type: domain.DownloadCancelled, JobID: "track:1:flac"})
		if h.store.Len() != 0 {
			t.Fatal("cancel created a record")
		}
		if len(h.events) != 1 {
			t.Fatal("cancel event not published")
		}
	})
}

func TestUnattributableJobPublishesWithoutTouchingStore(t *testing.T) {
	h := newHarness(t, CancelRemove)
	mustHandle(t, h.bridge, Message{Type: domain.DownloadFinished, JobID: "garbage", FileURI: "/x"})
	if h.store.Len() != 0 || h.upserts != 0 {
		t.Fatal("unattributable job mutated the store")
	}
	if len(h.events) != 1 || h.events[0].TrackID.Valid() {
		t.Fatalf("events = %+v", h.events)
	}
}

func TestGroupProgress(t *testing.T) {
	h := newHarness(t, CancelRemove)
	origin := domain.AlbumOrigin("9")

	mustHandle(t, h.bridge, Message{Type: domain.DownloadGroupPlanned, JobID: "album:9:track:1:flac", GroupSize: 3})
	if h.store.Len() != 0 {
		t.Fatal("group plan must not create records")
	}
	mustHandle(t, h.bridge, Message{Type: domain.DownloadFinished, JobID: "album:9:track:1:flac", FileURI: "/1"})
	mustHandle(t, h.bridge, Message{Type: domain.DownloadFailed, JobID: "album:9:track:2:flac"})

	g, ok := h.bridge.Group(origin)
	if !ok || g.Planned != 3 || g.Finished != 1 || g.Failed != 1 || g.Remaining() != 1 || g.Done() {
		t.Fatalf("group = %+v", g)
	}
	mustHandle(t, h.bridge, Message{Type: domain.DownloadFinished, JobID: "album:9:track:3:flac", FileURI: "/3"})
	g, _ = h.bridge.Group(origin)
	if !g.Done() {
		t.Fatalf("group should be done: %+v", g)
	}

	if _, ok := h.bridge.Group(domain.PlaylistOrigin("9")); ok {
		t.Fatal("unexpected group for other origin")
	}
}

func TestGroupProgressCountsEachTrackOnce(t *testing.T) {
	h := newHarness(t, CancelRemove)
	origin := domain.PlaylistOrigin("7")

	mustHandle(t, h.bridge, Message{Type: domain.DownloadGroupPlanned, JobID: "playlist:7:track:1:flac", GroupSize: 3})
	for i := 0; i < 3; i++ {
		mustHandle(t, h.bridge, Message{Type: domain.DownloadFinished, JobID: "playlist:7:track:1:flac", FileURI: "/1"})
	}
	g, _ := h.bridge.Group(origin)
	if g.Finished != 1 || g.Failed != 0 || g.Done() {
		t.Fatalf("after repeated finish: %+v", g)
	}

	// a failure after success leaves the track finished
	mustHandle(t, h.bridge, Message{Type: domain.DownloadFailed, JobID: "playlist:7:track:1:flac"})
	// a retry that succeeds moves the track from failed to finished
	mustHandle(t, h.bridge, Message{Type: domain.DownloadFailed, JobID: "playlist:7:track:2:flac"})
	mustHandle(t, h.bridge, Message{Type: domain.DownloadCancelled, JobID: "playlist:7:track:2:flac"})
	g, _ = h.bridge.Group(origin)
	if g.Finished != 1 || g.Failed != 1 || g.Remaining() != 1 {
		t.Fatalf("after failures: %+v", g)
	}
	mustHandle(t, h.bridge, Message{Type: domain.DownloadFinished, JobID: "playlist:7:track:2:flac", FileURI: "/2"})
	g, _ = h.bridge.Group(origin)
	if g.Finished != 2 || g.Failed != 0 || g.Done() {
		t.Fatalf("after retry: %+v", g)
	}
}

func TestGroupPlanWithPlaceholderTrack(t *testing.T) {
	h := newHarness(t, CancelRemove)
	mustHandle(t, h.bridge, Message{Type: domain.DownloadGroupPlanned, JobID: "playlist:7:track:0:flac", GroupSize: 2})

	g, ok := h.bridge.Group(domain.PlaylistOrigin("7"))
	if !ok || g.Planned != 2 {
		t.Fatalf("group = %+v, ok = %v", g, ok)
	}
	if len(h.events) != 1 || h.events[0].Origin != domain.PlaylistOrigin("7") {
		t.Fatalf("events = %+v", h.events)
	}
	if h.store.Len() != 0 {
		t.Fatal("group plan created a record")
	}
}

func TestUnknownMessageType(t *testing.T) {
	h := newHarness(t, CancelRemove)
	err := h.bridge.Handle(Message{Type: "downloadPaused", JobID: "track:1:flac"})
	if !errors.Is(err, domain.ErrUnknownMessage) {
		t.Fatalf("error = %v", err)
	}
	if len(h.events) != 0 {
		t.Fatal("unknown message published")
	}
}

func TestParseCancelPolicy(t *testing.T) {
	if p, err := ParseCancelPolicy("keep"); err != nil || p != CancelKeep {
		t.Fatalf("ParseCancelPolicy(keep) = %q, %v", p, err)
	}
	if _, err := ParseCancelPolicy("maybe"); err == nil {
		t.Fatal("expected error for unsupported policy")
	}
}

func mustHandle(t *testing.T, br *Bridge, msg Message) {
	t.Helper()
	if err := br.Handle(msg); err != nil {
		t.Fatalf("Handle(%+v) failed: %v", msg, err)
	}
}

type countingRefresher struct {
	all     int
	targets [][]domain.TrackID
}

func (c *countingRefresher) Name() string { return "counting" }

func (c *countingRefresher) RefreshTargets(ids []domain.TrackID) error {
	c.targets = append(c.targets, ids)
	return nil
}

func (c *countingRefresher) RefreshAll() error {
	c.all++
	return nil
}
