package photosync_test

import (
	"errors"
	"testing"

	"github.com/frameline/meetups-backend/internal/photosync"
)

func TestParseSyncMessage(t *testing.T) {
	raw := []byte(`{"type":"navigate_photo","photoId":"photo-3","photoIndex":3,"navigatorId":"user-b","timestamp":1693000000000}`)
	msg, err := photosync.ParseSyncMessage(raw)
	if err != nil {
		t.Fatalf("ParseSyncMessage: %v", err)
	}
	if msg.PhotoID != "photo-3" || msg.PhotoIndex != 3 || msg.NavigatorID != "user-b" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.Timestamp != 1693000000000 {
		t.Fatalf("timestamp = %d, want 1693000000000", msg.Timestamp)
	}
}

func TestParseSyncMessageRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `{"type":`},
		{"wrong type", `{"type":"chat","photoId":"p","photoIndex":1}`},
		{"missing photo id", `{"type":"navigate_photo","photoIndex":1}`},
		{"missing index", `{"type":"navigate_photo","photoId":"p"}`},
		{"fractional index", `{"type":"navigate_photo","photoId":"p","photoIndex":1.5}`},
		{"negative index", `{"type":"navigate_photo","photoId":"p","photoIndex":-1}`},
		{"string index", `{"type":"navigate_photo","photoId":"p","photoIndex":"2"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := photosync.ParseSyncMessage([]byte(tc.raw)); err == nil {
				t.Fatalf("ParseSyncMessage(%s) succeeded, want error", tc.raw)
			}
		})
	}
}

func TestParseSyncMessageMissingTimestampOK(t *testing.T) {
	msg, err := photosync.ParseSyncMessage([]byte(`{"type":"navigate_photo","photoId":"p","photoIndex":0}`))
	if err != nil {
		t.Fatalf("ParseSyncMessage: %v", err)
	}
	if msg.Timestamp != 0 {
		t.Fatalf("timestamp = %d, want 0", msg.Timestamp)
	}
}

func parseErr(raw string) error {
	_, err := photosync.ParseSyncMessage([]byte(raw))
	return err
}

func TestValidationErrorIsTyped(t *testing.T) {
	err := parseErr(`{"type":"navigate_photo","photoId":"p","photoIndex":-2}`)
	var verr *photosync.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("got %T, want *ValidationError", err)
	}
	if verr.Field != "photoIndex" {
		t.Fatalf("field = %q, want photoIndex", verr.Field)
	}
}
