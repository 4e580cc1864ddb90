package inventory

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/snowpull/snowpull/pkg/s3client"
)

// fakeLister is a fake s3client.Client serving canned listing pages.
type fakeLister struct {
	pages       map[string]*s3client.Page // keyed by cursor
	listErr     error
	errOnCursor string
	gotCursors  []string
}

func (f *fakeLister) ListPage(ctx context.Context, bucket, cursor string) (*s3client.Page, error) {
	f.gotCursors = append(f.gotCursors, cursor)
	if f.listErr != nil && cursor == f.errOnCursor {
		return nil, f.listErr
	}
	page, ok := f.pages[cursor]
	if !ok {
		return nil, fmt.Errorf("unexpected cursor %q", cursor)
	}
	return page, nil
}

func (f *fakeLister) DownloadFile(ctx context.Context, bucket, key, localPath string) error {
	return fmt.Errorf("DownloadFile not implemented")
}

func TestRemoteAcrossPages(t *testing.T) {
	client := &fakeLister{
		pages: map[string]*s3client.Page{
			"": {
				Objects:    []s3client.Object{{Key: "a.bin", Size: 100}, {Key: "b.bin", Size: 200}},
				NextCursor: "p1",
				Truncated:  true,
			},
			"p1": {
				Objects:    []s3client.Object{{Key: "c.bin", Size: 50}},
				NextCursor: "p2",
				Truncated:  true,
			},
			"p2": {
				Objects: []s3client.Object{{Key: "d.bin", Size: 7}},
			},
		},
	}

	files, total, err := Remote(context.Background(), client, "bucket")
	if err != nil {
		t.Fatalf("Remote() error = %v", err)
	}

	want := Set{"a.bin": 100, "b.bin": 200, "c.bin": 50, "d.bin": 7}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("Remote() = %v, want %v", files, want)
	}
	if total != 357 {
		t.Errorf("Remote() total = %d, want 357", total)
	}
	if !reflect.DeepEqual(client.gotCursors, []string{"", "p1", "p2"}) {
		t.Errorf("cursor sequence = %v, want [\"\" p1 p2]", client.gotCursors)
	}
}

func TestRemoteEmptyBucket(t *testing.T) {
	client := &fakeLister{
		pages: map[string]*s3client.Page{"": {}},
	}

	files, total, err := Remote(context.Background(), client, "bucket")
	if err != nil {
		t.Fatalf("Remote() error = %v", err)
	}
	if len(files) != 0 || total != 0 {
		t.Errorf("Remote() = %v (%d bytes), want empty", files, total)
	}
}

func TestRemotePageFailurePropagates(t *testing.T) {
	listErr := errors.New("connection reset")
	client := &fakeLister{
		pages: map[string]*s3client.Page{
			"": {
				Objects:    []s3client.Object{{Key: "a.bin", Size: 100}},
				NextCursor: "p1",
				Truncated:  true,
			},
		},
		listErr:     listErr,
		errOnCursor: "p1",
	}

	_, _, err := Remote(context.Background(), client, "bucket")
	if !errors.Is(err, listErr) {
		t.Fatalf("Remote() error = %v, want wrapped %v", err, listErr)
	}
}

func TestRemoteStuckCursor(t *testing.T) {
	// A remote that reports truncation without advancing the cursor must be
	// detected instead of looping.
	client := &fakeLister{
		pages: map[string]*s3client.Page{
			"": {
				Objects:    []s3client.Object{{Key: "a.bin", Size: 100}},
				NextCursor: "p1",
				Truncated:  true,
			},
			"p1": {
				Objects:    []s3client.Object{{Key: "b.bin", Size: 200}},
				NextCursor: "p1",
				Truncated:  true,
			},
		},
	}

	_, _, err := Remote(context.Background(), client, "bucket")
	if err == nil {
		t.Fatal("Remote() expected error for non-advancing cursor, got nil")
	}
}

func TestRemoteEmptyNextCursor(t *testing.T) {
	client := &fakeLister{
		pages: map[string]*s3client.Page{
			"": {
				Objects:   []s3client.Object{{Key: "a.bin", Size: 100}},
				Truncated: true,
			},
		},
	}

	_, _, err := Remote(context.Background(), client, "bucket")
	if err == nil {
		t.Fatal("Remote() expected error for truncated page without cursor, got nil")
	}
}
