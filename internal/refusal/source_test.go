package refusal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func TestHTTPSourceRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, "foi:\n  questions:\n    - id: remote\n")
	}))
	defer srv.Close()

	src := NewHTTPSource([]string{srv.URL + "/foi.yml"})
	src.backoff = 0

	s, err := Load(context.Background(), src)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := s.Questions("foi"); len(got) != 1 || got[0].ID != "remote" {
		t.Errorf("unexpected questions %v", got)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Errorf("expected 2 requests, got %d", n)
	}
}

func TestHTTPSourceNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	src := NewHTTPSource([]string{srv.URL + "/missing.yml"})
	src.backoff = 0
	if _, err := src.Documents(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeS3 struct {
	objects map[string]string
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
		}
	}
	return out, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("no such key")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte(body)))}, nil
}

func TestS3SourceReadsYAMLInKeyOrder(t *testing.T) {
	t.Parallel()

	client := &fakeS3{objects: map[string]string{
		"advice/b.yml":      "foi:\n  questions:\n    - id: second\n",
		"advice/a.yaml":     "foi:\n  questions:\n    - id: first\n",
		"advice/README":     "not advice",
		"other/ignored.yml": "foi:\n  questions:\n    - id: ignored\n",
	}}

	s, err := Load(context.Background(), NewS3SourceWithClient(client, "bucket", "advice/"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := s.Questions("foi")
	if len(got) != 2 || got[0].ID != "first" || got[1].ID != "second" {
		t.Errorf("unexpected questions %v", got)
	}
}

func TestHolderReloadKeepsPreviousOnError(t *testing.T) {
	t.Parallel()

	h := NewHolder()
	good, err := h.Reload(context.Background(), FileSource{Patterns: fixturePaths(t)})
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if h.Current() != good {
		t.Fatal("expected reloaded store to be published")
	}

	bad := sourceFunc(func(context.Context) ([]Document, error) {
		return []Document{{Name: "bad.yml", Data: []byte("foi: [")}}, nil
	})
	if _, err := h.Reload(context.Background(), bad); err == nil {
		t.Fatal("expected error")
	}
	if h.Current() != good {
		t.Error("failed reload must not replace the published store")
	}
}

type sourceFunc func(context.Context) ([]Document, error)

func (f sourceFunc) Documents(ctx context.Context) ([]Document, error) {
	return f(ctx)
}
