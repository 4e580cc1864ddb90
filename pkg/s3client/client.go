package s3client

import (
	"context"
)

// Object is a single remote entry: key plus size in bytes.
type Object struct {
	Key  string
	Size int64
}

// Page is one page of a bucket listing. When Truncated is true, NextCursor
// carries the continuation cursor for the following page.
type Page struct {
	Objects    []Object
	NextCursor string
	Truncated  bool
}

// Client is the remote directory service exposed by the appliance. Exactly
// two operations: a paginated listing and a blocking download to a local
// path. Implementations must be safe for concurrent use by multiple workers.
type Client interface {
	ListPage(ctx context.Context, bucket, cursor string) (*Page, error)
	DownloadFile(ctx context.Context, bucket, key, localPath string) error
}
