package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeObjects struct {
	put     []*s3.PutObjectInput
	deleted []string
	err     error
}

func (f *fakeObjects) PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.put = append(f.put, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestSourceKey(t *testing.T) {
	at := time.Date(2024, 3, 5, 23, 0, 0, 0, time.FixedZone("PHT", 8*3600))
	got := SourceKey("philgeps_awards", "Awards 2024.XLSX", "abc123", at)
	if got != "sources/philgeps_awards/2024-03-05/abc123.xlsx" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestPutFile(t *testing.T) {
	t.Setenv("AWS_BUCKET", "test-bucket")
	objects := &fakeObjects{}

	key, err := PutFile(context.Background(), objects, "sources/saln/2024-01-01/x.csv", strings.NewReader("a,b\n"))
	if err != nil {
		t.Fatalf("PutFile: %v", err)
	}
	if key != "sources/saln/2024-01-01/x.csv" || len(objects.put) != 1 {
		t.Fatalf("unexpected upload %q %d", key, len(objects.put))
	}
	in := objects.put[0]
	if aws.ToString(in.Bucket) != "test-bucket" {
		t.Fatalf("unexpected bucket %q", aws.ToString(in.Bucket))
	}
	if ct := aws.ToString(in.ContentType); ct == "" {
		t.Fatalf("unexpected content type %q", ct)
	}

	objects.err = errors.New("denied")
	if _, err := PutFile(context.Background(), objects, "k.bin", strings.NewReader("")); err == nil {
		t.Fatalf("expected upload error")
	}
}
