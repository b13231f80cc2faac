package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

type apiError struct {
	code string
}

func (e *apiError) Error() string                 { return e.code }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.code }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

// mockS3 is an in-memory S3 backend.
type mockS3 struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
	putErr       error
}

func newMockS3() *mockS3 {
	return &mockS3{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (m *mockS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*in.Key]
	if !ok {
		return nil, &apiError{code: "NoSuchKey"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*in.Key] = data
	if in.ContentType != nil {
		m.contentTypes[*in.Key] = *in.ContentType
	}
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[*in.Key]; !ok {
		return nil, &apiError{code: "NotFound"}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestS3Put(t *testing.T) {
	ctx := context.Background()
	mock := newMockS3()
	s := NewS3(mock, "audio", "jobs/42")

	if err := WriteFile(ctx, s, "song/stem-1.wav", []byte("accompaniment")); err != nil {
		t.Fatal(err)
	}
	const key = "jobs/42/song/stem-1.wav"
	if string(mock.objects[key]) != "accompaniment" {
		t.Errorf("object = %q", mock.objects[key])
	}
	if mock.contentTypes[key] != "audio/wav" {
		t.Errorf("content type = %q", mock.contentTypes[key])
	}
	if got := s.Location("song/stem-1.wav"); got != "s3://audio/"+key {
		t.Errorf("Location = %q", got)
	}

	ok, err := s.Exists(ctx, "song/stem-1.wav")
	if err != nil || !ok {
		t.Errorf("Exists = %v, %v", ok, err)
	}
	got, err := ReadFile(ctx, s, "song/stem-1.wav")
	if err != nil || string(got) != "accompaniment" {
		t.Errorf("ReadFile = %q, %v", got, err)
	}
}

func TestS3StreamingWrite(t *testing.T) {
	ctx := context.Background()
	mock := newMockS3()
	s := NewS3(mock, "audio", "")

	w, err := s.Write(ctx, "out.wav")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte("RIFF"))
	w.Write([]byte("...."))
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if string(mock.objects["out.wav"]) != "RIFF...." {
		t.Errorf("object = %q", mock.objects["out.wav"])
	}
}

func TestS3NotFound(t *testing.T) {
	ctx := context.Background()
	s := NewS3(newMockS3(), "audio", "")

	if _, err := s.Read(ctx, "missing.wav"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Read: err = %v, want ErrNotExist", err)
	}
	ok, err := s.Exists(ctx, "missing.wav")
	if err != nil || ok {
		t.Errorf("Exists = %v, %v", ok, err)
	}
	if err := s.Delete(ctx, "missing.wav"); err != nil {
		t.Errorf("Delete: %v", err)
	}
}

func TestS3PutError(t *testing.T) {
	mock := newMockS3()
	mock.putErr = &apiError{code: "AccessDenied"}
	s := NewS3(mock, "audio", "")

	err := WriteFile(context.Background(), s, "x.wav", []byte("x"))
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) || apiErr.ErrorCode() != "AccessDenied" {
		t.Errorf("err = %v, want AccessDenied", err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	fs, err := Open(ctx, "s3://bucket/some/prefix/", S3Options{
		Region:          "us-west-2",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatal(err)
	}
	s3s, ok := fs.(*S3Store)
	if !ok {
		t.Fatalf("Open returned %T, want *S3Store", fs)
	}
	if s3s.bucket != "bucket" || s3s.prefix != "some/prefix" {
		t.Errorf("bucket/prefix = %q/%q", s3s.bucket, s3s.prefix)
	}

	dir := t.TempDir()
	fs, err = Open(ctx, dir, S3Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := fs.(*Local); !ok {
		t.Errorf("Open(%q) returned %T, want *Local", dir, fs)
	}

	if _, err := Open(ctx, "s3:///nobucket", S3Options{}); err == nil {
		t.Error("expected error for missing bucket")
	}
}

func TestNewS3ClientCredentials(t *testing.T) {
	c := NewS3Client(S3Options{AccessKeyID: "AKID", SecretAccessKey: "SECRET", Region: "eu-west-1"})
	o := c.Options()
	if o.Region != "eu-west-1" {
		t.Errorf("Region = %q", o.Region)
	}
	creds, err := o.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if creds.AccessKeyID != "AKID" || creds.SecretAccessKey != "SECRET" {
		t.Errorf("creds = %+v", creds)
	}
}
