package inventory

import (
	"context"
	"fmt"

	"github.com/snowpull/snowpull/pkg/s3client"
)

// maxPages bounds the listing loop so a remote that keeps reporting
// truncation without advancing cannot spin forever.
const maxPages = 1_000_000

// Remote enumerates the entire bucket, one page at a time, and returns every
// key with its size plus the running byte total. A failed page fails the
// whole enumeration; entries are never silently dropped on a page boundary.
func Remote(ctx context.Context, client s3client.Client, bucket string) (Set, int64, error) {
	files := Set{}
	var total int64
	var cursor string

	for page := 0; ; page++ {
		if page >= maxPages {
			return nil, 0, fmt.Errorf("bucket %s: listing exceeded %d pages", bucket, maxPages)
		}

		p, err := client.ListPage(ctx, bucket, cursor)
		if err != nil {
			return nil, 0, fmt.Errorf("list bucket %s: %w", bucket, err)
		}

		for _, obj := range p.Objects {
			files[obj.Key] = obj.Size
			total += obj.Size
		}

		if !p.Truncated {
			break
		}
		if p.NextCursor == "" || p.NextCursor == cursor {
			return nil, 0, fmt.Errorf("bucket %s: listing cursor did not advance after page %d", bucket, page)
		}
		cursor = p.NextCursor
	}

	return files, total, nil
}
