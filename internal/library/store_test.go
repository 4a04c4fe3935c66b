package library

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/testsupport"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(testsupport.NopLogger())
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

func TestUpsertKeepsPlaylistOriginWhenCompletedUnattributed(t *testing.T) {
	s := newTestStore(t)

	if err := s.Upsert(42, domain.RecordPatch{Origin: domain.PlaylistOrigin("7")}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := s.Upsert(42, domain.RecordPatch{FileURI: "/x.flac", Origin: domain.NoOrigin()}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	rec, ok := s.Get(42)
	if !ok {
		t.Fatal("expected record for 42")
	}
	if rec.FileURI != "/x.flac" {
		t.Fatalf("FileURI = %q, want /x.flac", rec.FileURI)
	}
	if rec.Origin != domain.PlaylistOrigin("7") {
		t.Fatalf("Origin = %v, want playlist:7", rec.Origin)
	}
}

func TestOriginMonotonicity(t *testing.T) {
	s := newTestStore(t)
	patches := []domain.RecordPatch{
		{Quality: "mp3_128"},
		{Origin: domain.AlbumOrigin("9")},
		{Origin: domain.NoOrigin()},
		{Origin: domain.Origin{}},
		{FileURI: "/a.mp3"},
		{Origin: domain.Origin{Kind: domain.OriginPlaylist}}, // no id: unattributed
		{Status: domain.StatusDownloading},
	}
	for i, p := range patches {
		if err := s.Upsert(1, p); err != nil {
			t.Fatalf("Upsert %d failed: %v", i, err)
		}
		rec, _ := s.Get(1)
		if i >= 1 && rec.Origin != domain.AlbumOrigin("9") {
			t.Fatalf("after patch %d origin = %v, want album:9", i, rec.Origin)
		}
	}
}

func TestAttributedOriginCanBeReplacedByAnotherAttribution(t *testing.T) {
	s := newTestStore(t)
	_ = s.Upsert(1, domain.RecordPatch{Origin: domain.AlbumOrigin("9")})
	_ = s.Upsert(1, domain.RecordPatch{Origin: domain.PlaylistOrigin("3")})

	rec, _ := s.Get(1)
	if rec.Origin != domain.PlaylistOrigin("3") {
		t.Fatalf("Origin = %v, want most recent attribution", rec.Origin)
	}
}

func TestCompletionMonotonicity(t *testing.T) {
	s := newTestStore(t)
	_ = s.Upsert(5, domain.RecordPatch{FileURI: "/done.flac"})
	for _, p := range []domain.RecordPatch{
		{},
		{Quality: "flac"},
		{Status: domain.StatusDownloading},
		{Status: domain.StatusFailed},
		{Status: domain.StatusCancelled},
		{Metadata: domain.TrackMetadata{Title: "Song"}},
	} {
		_ = s.Upsert(5, p)
		rec, _ := s.Get(5)
		if rec.FileURI != "/done.flac" {
			t.Fatalf("FileURI cleared by %+v", p)
		}
	}
	rec, _ := s.Get(5)
	if rec.Status != domain.StatusComplete {
		t.Fatalf("completed record reports %q", rec.Status)
	}
}

func TestRedownloadOfCompletedTrackStaysComplete(t *testing.T) {
	s := newTestStore(t)
	_ = s.Upsert(5, domain.RecordPatch{FileURI: "/done.flac", Status: domain.StatusComplete})
	_ = s.Upsert(5, domain.RecordPatch{Quality: "mp3_320", Status: domain.StatusDownloading})

	rec, _ := s.Get(5)
	if rec.Status != domain.StatusComplete || rec.IsInFlight() {
		t.Fatalf("record = %+v", rec)
	}
	doc := s.Serialize()
	if doc["5"].Status != string(domain.StatusComplete) {
		t.Fatalf("persisted status = %q", doc["5"].Status)
	}

	_ = s.Upsert(5, domain.RecordPatch{FileURI: "/new.mp3", Status: domain.StatusComplete})
	rec, _ = s.Get(5)
	if rec.FileURI != "/new.mp3" || rec.Status != domain.StatusComplete {
		t.Fatalf("after new file: %+v", rec)
	}
}

func TestLoadNormalizesStatusOfDownloadedRecords(t *testing.T) {
	s := newTestStore(t)
	s.Load(domain.SnapshotDocument{"5": {FileURI: "/x.flac", Status: string(domain.StatusDownloading)}})
	rec, _ := s.Get(5)
	if rec.Status != domain.StatusComplete {
		t.Fatalf("status = %q", rec.Status)
	}
}

func TestUpsertNewFileURIReplacesOld(t *testing.T) {
	s := newTestStore(t)
	_ = s.Upsert(5, domain.RecordPatch{FileURI: "/old.mp3"})
	_ = s.Upsert(5, domain.RecordPatch{FileURI: "/new.flac"})
	rec, _ := s.Get(5)
	if rec.FileURI != "/new.flac" {
		t.Fatalf("FileURI = %q", rec.FileURI)
	}
}

func TestMetadataMergePrefersNonEmpty(t *testing.T) {
	s := newTestStore(t)
	_ = s.Upsert(3, domain.RecordPatch{Metadata: domain.TrackMetadata{Title: "One", Artist: "A", TrackNumber: 2}})
	_ = s.Upsert(3, domain.RecordPatch{Metadata: domain.TrackMetadata{Album: "LP", Title: ""}})
	_ = s.Upsert(3, domain.RecordPatch{Metadata: domain.TrackMetadata{Artist: "B"}})

	rec, _ := s.Get(3)
	want := domain.TrackMetadata{Title: "One", Artist: "B", Album: "LP", TrackNumber: 2}
	if rec.Metadata != want {
		t.Fatalf("Metadata = %+v, want %+v", rec.Metadata, want)
	}
}

func TestUpsertIdempotent(t *testing.T) {
	s := newTestStore(t)
	patch := domain.RecordPatch{
		Quality:  "flac",
		FileURI:  "/a.flac",
		Origin:   domain.AlbumOrigin("1"),
		Metadata: domain.TrackMetadata{Title: "T"},
	}
	_ = s.Upsert(9, patch)
	once := s.GetAll()
	_ = s.Upsert(9, patch)
	twice := s.GetAll()

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("snapshot changed on repeated upsert:\n%+v\n%+v", once, twice)
	}
}

func TestUpsertInvalidIdentifier(t *testing.T) {
	s := newTestStore(t)
	_ = s.Upsert(1, domain.RecordPatch{FileURI: "/keep"})
	notified := 0
	s.OnChange(func(domain.TrackID) { notified++ })

	for _, id := range []domain.TrackID{0, -1} {
		err := s.Upsert(id, domain.RecordPatch{FileURI: "/bad"})
		if !errors.Is(err, domain.ErrInvalidIdentifier) {
			t.Fatalf("Upsert(%d) error = %v, want ErrInvalidIdentifier", id, err)
		}
	}
	if notified != 0 {
		t.Fatalf("expected no notifications, got %d", notified)
	}
	if s.Len() != 1 {
		t.Fatalf("expected snapshot untouched, len = %d", s.Len())
	}
}

func TestUpsertNotifiesSynchronouslyOnce(t *testing.T) {
	s := newTestStore(t)
	var got []domain.TrackID
	s.OnChange(func(id domain.TrackID) {
		// the record must already be merged when the hook runs
		if _, ok := s.Get(id); !ok {
			t.Errorf("record %d not visible inside notification", id)
		}
		got = append(got, id)
	})

	_ = s.Upsert(4, domain.RecordPatch{Quality: "flac"})
	if !reflect.DeepEqual(got, []domain.TrackID{4}) {
		t.Fatalf("notifications = %v, want [4]", got)
	}
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	_ = s.Upsert(8, domain.RecordPatch{Quality: "flac"})
	var got []domain.TrackID
	s.OnChange(func(id domain.TrackID) { got = append(got, id) })

	if err := s.Remove(8); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok := s.Get(8); ok {
		t.Fatal("record still present after Remove")
	}
	if err := s.Remove(8); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("second Remove error = %v, want ErrRecordNotFound", err)
	}
	if !reflect.DeepEqual(got, []domain.TrackID{8}) {
		t.Fatalf("notifications = %v, want [8]", got)
	}
}

func TestDisposeStopsNotifications(t *testing.T) {
	s := newTestStore(t)
	n := 0
	dispose := s.OnChange(func(domain.TrackID) { n++ })
	_ = s.Upsert(1, domain.RecordPatch{})
	dispose()
	dispose()
	_ = s.Upsert(1, domain.RecordPatch{})
	if n != 1 {
		t.Fatalf("notifications = %d, want 1", n)
	}
}

func TestLoadAndSerialize(t *testing.T) {
	s := newTestStore(t)
	bulk := 0
	s.OnBulkChange(func() { bulk++ })

	doc := domain.SnapshotDocument{
		"42": {
			Quality:  "flac",
			FileURI:  "/x.flac",
			Origin:   &domain.Origin{Kind: domain.OriginPlaylist, ID: "7"},
			Metadata: &domain.TrackMetadata{Title: "Song"},
		},
		"7":   {},
		"0":   {FileURI: "/zero"},
		"abc": {FileURI: "/nan"},
		"-2":  {},
	}
	res := s.Load(doc)
	if res.Loaded != 2 || res.Skipped != 3 {
		t.Fatalf("LoadResult = %+v, want 2 loaded 3 skipped", res)
	}
	if bulk != 1 {
		t.Fatalf("bulk notifications = %d, want 1", bulk)
	}

	rec, ok := s.Get(42)
	if !ok || rec.Origin != domain.PlaylistOrigin("7") || rec.Status != domain.StatusComplete {
		t.Fatalf("unexpected record: %+v", rec)
	}
	empty, ok := s.Get(7)
	if !ok || empty.Origin != domain.NoOrigin() || empty.FileURI != "" {
		t.Fatalf("missing fields must decode as absent, got %+v", empty)
	}

	out := s.Serialize()
	if len(out) != 2 {
		t.Fatalf("Serialize len = %d", len(out))
	}
	if out["42"].Origin == nil || *out["42"].Origin != domain.PlaylistOrigin("7") {
		t.Fatalf("serialized origin = %+v", out["42"].Origin)
	}
	if out["7"].Origin != nil || out["7"].Metadata != nil {
		t.Fatalf("absent fields should be omitted, got %+v", out["7"])
	}

	again := NewStore(testsupport.NopLogger())
	again.Load(out)
	if !reflect.DeepEqual(again.Serialize(), out) {
		t.Fatal("Serialize -> Load -> Serialize is not stable")
	}
}

func TestLoadReplacesContent(t *testing.T) {
	s := newTestStore(t)
	_ = s.Upsert(1, domain.RecordPatch{})
	s.Load(domain.SnapshotDocument{"2": {}})
	if _, ok := s.Get(1); ok {
		t.Fatal("Load should replace existing content")
	}
}

func TestDownloadsAndInFlight(t *testing.T) {
	s := newTestStore(t)
	_ = s.Upsert(3, domain.RecordPatch{FileURI: "/3"})
	_ = s.Upsert(1, domain.RecordPatch{Status: domain.StatusDownloading})
	_ = s.Upsert(2, domain.RecordPatch{Status: domain.StatusFailed})

	if d := s.Downloads(); len(d) != 1 || d[0].TrackID != 3 {
		t.Fatalf("Downloads = %+v", d)
	}
	if f := s.InFlight(); len(f) != 1 || f[0].TrackID != 1 {
		t.Fatalf("InFlight = %+v", f)
	}
	if ids := s.IDs(); !reflect.DeepEqual(ids, []domain.TrackID{1, 2, 3}) {
		t.Fatalf("IDs = %v", ids)
	}
}

func TestGetAllIsCopy(t *testing.T) {
	s := newTestStore(t)
	_ = s.Upsert(1, domain.RecordPatch{Quality: "flac"})
	snap := s.GetAll()
	delete(snap, 1)
	if s.Len() != 1 {
		t.Fatal("mutating GetAll result changed the store")
	}
}
