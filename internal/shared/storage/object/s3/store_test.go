package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"advisor-backend/internal/shared/storage/object"
)

// fakeS3 keeps objects in memory and records the last upload.
type fakeS3 struct {
	objects map[string][]byte
	lastPut *s3.PutObjectInput
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	f.lastPut = in
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestObjectKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix, key, want string
		wantErr           bool
	}{
		{prefix: "", key: "user/file.pdf", want: "user/file.pdf"},
		{prefix: "root/", key: "user/file.pdf", want: "root/user/file.pdf"},
		{prefix: " /root/sub/ ", key: "/user/file.pdf", want: "root/sub/user/file.pdf"},
		{prefix: "advisor", key: "reports/rec-1.json", want: "advisor/reports/rec-1.json"},
		{prefix: "advisor", key: "../other/key", wantErr: true},
		{prefix: "advisor", key: "", wantErr: true},
	}
	for _, tt := range tests {
		s := newStore(nil, "b", tt.prefix, "")
		got, err := s.objectKey(tt.key)
		if tt.wantErr {
			if !errors.Is(err, object.ErrInvalidKey) {
				t.Errorf("objectKey(%q) expected ErrInvalidKey, got %v", tt.key, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("objectKey(%q, %q) = %q, %v; want %q", tt.prefix, tt.key, got, err, tt.want)
		}
	}
}

func TestSaveAndOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := newFakeS3()
	s := newStore(fake, "bucket", "advisor", "")

	key, n, mime, err := s.Save(ctx, "guest:g1", "brief.txt", strings.NewReader("clinic booking portal"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n != int64(len("clinic booking portal")) || !strings.HasPrefix(mime, "text/plain") {
		t.Fatalf("unexpected size/mime: %d %s", n, mime)
	}
	if !strings.HasSuffix(key, "_brief.txt") || strings.HasPrefix(key, "advisor/") {
		t.Fatalf("storage key should exclude the bucket prefix: %s", key)
	}
	if got := aws.ToString(fake.lastPut.Key); got != "advisor/"+key {
		t.Fatalf("unexpected object key: %s", got)
	}
	if fake.lastPut.ServerSideEncryption != s3types.ServerSideEncryptionAes256 {
		t.Fatalf("expected SSE-S3, got %v", fake.lastPut.ServerSideEncryption)
	}

	rc, err := s.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "clinic booking portal" {
		t.Fatalf("unexpected content: %q", data)
	}

	if _, err := s.Open(ctx, "reports/missing.json"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveWithKeyUsesKMS(t *testing.T) {
	t.Parallel()
	fake := newFakeS3()
	s := newStore(fake, "bucket", "", "key-1")

	if _, err := s.SaveWithKey(context.Background(), "reports/r.json", "", strings.NewReader("{}")); err != nil {
		t.Fatalf("SaveWithKey: %v", err)
	}
	in := fake.lastPut
	if in.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms || aws.ToString(in.SSEKMSKeyId) != "key-1" {
		t.Fatalf("expected KMS encryption, got %v", in.ServerSideEncryption)
	}
	if aws.ToString(in.ContentType) != "application/octet-stream" {
		t.Fatalf("unexpected default content type: %s", aws.ToString(in.ContentType))
	}
}
