package library

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
)

// Downloader streams book PDFs over HTTP.
type Downloader struct {
	client *resty.Client
}

func NewDownloader(timeout time.Duration) *Downloader {
	c := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Accept", "application/pdf")
	return &Downloader{client: c}
}

// Fetch copies the body at url into w and reports the bytes written.
func (d *Downloader) Fetch(ctx context.Context, url string, w io.Writer) (int64, error) {
	resp, err := d.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", url, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return 0, fmt.Errorf("download %s: unexpected status %s", url, resp.Status())
	}
	n, err := io.Copy(w, body)
	if err != nil {
		return n, fmt.Errorf("download %s: %w", url, err)
	}
	return n, nil
}
