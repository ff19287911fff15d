package adapter

import "context"

// ObjectStorage fetches binary card sources (PDFs, audio) by object key.
// Upload URLs are issued by the web layer, never here.
type ObjectStorage interface {
	// PresignDownload returns a short-lived signed GET URL for the object.
	PresignDownload(ctx context.Context, objectKey string) (string, error)
	// FetchToFile downloads the object into destPath.
	FetchToFile(ctx context.Context, objectKey, destPath string) error
}
