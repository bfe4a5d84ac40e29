package album

import (
	"reflect"
	"testing"
	"time"
)

func TestCollectorGroupsByAlbum(t *testing.T) {
	flushed := make(chan Group, 4)
	c := New(Options{Debounce: 20 * time.Millisecond, OnFlush: func(g Group) { flushed <- g }})

	c.Add(Photo{ChatID: 1, UserID: 7, AlbumID: "a", FileID: "f1"})
	c.Add(Photo{ChatID: 1, UserID: 7, AlbumID: "a", FileID: "f2", Caption: "red cape"})
	c.Add(Photo{ChatID: 1, UserID: 7, AlbumID: "a", FileID: "f3"})
	c.Add(Photo{ChatID: 2, UserID: 8, AlbumID: "a", FileID: "g1"})

	got := map[int64]Group{}
	for i := 0; i < 2; i++ {
		select {
		case g := <-flushed:
			got[g.ChatID] = g
		case <-time.After(2 * time.Second):
			t.Fatal("album was not flushed")
		}
	}

	if ids := got[1].FileIDs; !reflect.DeepEqual(ids, []string{"f1", "f2", "f3"}) {
		t.Errorf("chat 1 files = %v", ids)
	}
	if got[1].Caption != "red cape" || got[1].UserID != 7 {
		t.Errorf("chat 1 group = %+v", got[1])
	}
	if ids := got[2].FileIDs; !reflect.DeepEqual(ids, []string{"g1"}) {
		t.Errorf("chat 2 files = %v", ids)
	}
	if n := c.Pending(); n != 0 {
		t.Errorf("pending = %d", n)
	}
}

func TestCollectorIgnoresSinglePhotos(t *testing.T) {
	c := New(Options{})
	if c.Add(Photo{ChatID: 1, FileID: "f1"}) {
		t.Error("photo without album id was buffered")
	}
	if c.Add(Photo{ChatID: 1, AlbumID: "a"}) {
		t.Error("photo without file id was buffered")
	}
}

func TestCollectorClose(t *testing.T) {
	flushed := make(chan Group, 1)
	c := New(Options{Debounce: 20 * time.Millisecond, OnFlush: func(g Group) { flushed <- g }})

	c.Add(Photo{ChatID: 1, AlbumID: "a", FileID: "f1"})
	c.Close()

	if c.Add(Photo{ChatID: 1, AlbumID: "b", FileID: "f2"}) {
		t.Error("Add after Close was accepted")
	}
	select {
	case g := <-flushed:
		t.Errorf("flushed after Close: %+v", g)
	case <-time.After(100 * time.Millisecond):
	}
}
