package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
)

type objectAPIFake struct {
	existsErrs  []error
	existsCalls int
	madeBuckets []string
	puts        map[string]string
}

func (f *objectAPIFake) BucketExists(_ context.Context, _ string) (bool, error) {
	f.existsCalls++
	if len(f.existsErrs) > 0 {
		err := f.existsErrs[0]
		f.existsErrs = f.existsErrs[1:]
		if err != nil {
			return false, err
		}
	}
	return false, nil
}

func (f *objectAPIFake) MakeBucket(_ context.Context, bucketName string, _ minio.MakeBucketOptions) error {
	f.madeBuckets = append(f.madeBuckets, bucketName)
	return nil
}

func (f *objectAPIFake) PutObject(_ context.Context, _, objectName string, reader io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	raw, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	if f.puts == nil {
		f.puts = map[string]string{}
	}
	f.puts[objectName] = string(raw)
	return minio.UploadInfo{Key: objectName}, nil
}

func (f *objectAPIFake) GetObject(context.Context, string, string, minio.GetObjectOptions) (*minio.Object, error) {
	return nil, errors.New("not implemented")
}

func TestNewValidatesRequiredSettings(t *testing.T) {
	cases := []Config{
		{AccessKey: "a", SecretKey: "b", Bucket: "exports"},
		{Endpoint: "localhost:9000", Bucket: "exports"},
		{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"},
	}
	for i, cfg := range cases {
		if _, err := New(cfg); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestObjectNameAppliesPrefix(t *testing.T) {
	store, err := New(Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "exports", Prefix: "/tables/"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := store.objectName("/scan.xlsx"); got != "tables/scan.xlsx" {
		t.Fatalf("expected prefixed object name, got %q", got)
	}
	if store.region != "us-east-1" {
		t.Fatalf("expected default region, got %q", store.region)
	}
}

func TestSaveRetriesBucketCheckAfterFailure(t *testing.T) {
	fake := &objectAPIFake{existsErrs: []error{context.Canceled}}
	store := &Store{client: fake, bucket: "exports", region: "us-east-1", prefix: "tables"}

	if err := store.Save(context.Background(), "a.xlsx", strings.NewReader("one")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected first save to fail with the bucket check error, got %v", err)
	}
	if err := store.Save(context.Background(), "a.xlsx", strings.NewReader("two")); err != nil {
		t.Fatalf("expected second save to succeed, got %v", err)
	}
	if err := store.Save(context.Background(), "b.xlsx", strings.NewReader("three")); err != nil {
		t.Fatalf("expected third save to succeed, got %v", err)
	}

	if fake.existsCalls != 2 {
		t.Fatalf("expected bucket check to stop after success, got %d calls", fake.existsCalls)
	}
	if len(fake.madeBuckets) != 1 || fake.madeBuckets[0] != "exports" {
		t.Fatalf("expected bucket to be created once, got %v", fake.madeBuckets)
	}
	if fake.puts["tables/a.xlsx"] != "two" || fake.puts["tables/b.xlsx"] != "three" {
		t.Fatalf("unexpected stored objects: %v", fake.puts)
	}
}
