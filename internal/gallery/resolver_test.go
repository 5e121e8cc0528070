package gallery

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeStore struct {
	pages    map[string][]string // continuation token -> keys
	order    []string            // token sequence: "" first
	listErr  error
	signErrs map[string]error
	listed   []string
	signed   []string
}

func (f *fakeStore) ListPage(ctx context.Context, prefix, token string) ([]string, string, error) {
	if f.listErr != nil {
		return nil, "", f.listErr
	}
	f.listed = append(f.listed, token)
	keys := f.pages[token]
	for i, t := range f.order {
		if t == token && i+1 < len(f.order) {
			return keys, f.order[i+1], nil
		}
	}
	return keys, "", nil
}

func (f *fakeStore) SignGetURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	f.signed = append(f.signed, key)
	if err, ok := f.signErrs[key]; ok {
		return "", err
	}
	return "https://signed.example/" + key, nil
}

func (f *fakeStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	return nil
}

func TestResolveFollowsPagination(t *testing.T) {
	store := &fakeStore{
		pages: map[string][]string{
			"":     {"skin/eczema/a.png", "skin/eczema/b.png"},
			"tok1": {"skin/eczema/c.png"},
		},
		order: []string{"", "tok1"},
	}
	resolver := NewResolver(store, "skin", zap.NewNop())

	images := resolver.Resolve(context.Background(), "eczema")
	if len(images) != 3 {
		t.Fatalf("expected 3 images, got %d", len(images))
	}
	if len(store.listed) != 2 {
		t.Fatalf("expected 2 list pages, got %d", len(store.listed))
	}
	if images[0].URL != "https://signed.example/skin/eczema/a.png" {
		t.Fatalf("unexpected first url: %s", images[0].URL)
	}
	if images[0].AltText != "eczema reference image 1" {
		t.Fatalf("unexpected alt text: %s", images[0].AltText)
	}
}

func TestResolveSkipsDirectoryMarkers(t *testing.T) {
	store := &fakeStore{
		pages: map[string][]string{
			"": {"skin/eczema/", "skin/eczema/a.png"},
		},
	}
	resolver := NewResolver(store, "skin", zap.NewNop())

	images := resolver.Resolve(context.Background(), "eczema")
	if len(images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(images))
	}
	if len(store.signed) != 1 {
		t.Fatalf("directory marker should not be signed, signed %v", store.signed)
	}
}

func TestResolveListingFailureReturnsEmpty(t *testing.T) {
	store := &fakeStore{listErr: errors.New("store unreachable")}
	resolver := NewResolver(store, "skin", zap.NewNop())

	images := resolver.Resolve(context.Background(), "eczema")
	if images == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(images) != 0 {
		t.Fatalf("expected empty gallery, got %d images", len(images))
	}
}

func TestResolveDropsOnlyFailedKeys(t *testing.T) {
	store := &fakeStore{
		pages: map[string][]string{
			"": {"skin/eczema/a.png", "skin/eczema/b.png", "skin/eczema/c.png"},
		},
		signErrs: map[string]error{"skin/eczema/b.png": errors.New("sign failed")},
	}
	resolver := NewResolver(store, "skin", zap.NewNop())

	images := resolver.Resolve(context.Background(), "eczema")
	if len(images) != 2 {
		t.Fatalf("expected 2 images after one signing failure, got %d", len(images))
	}
	if images[0].URL != "https://signed.example/skin/eczema/a.png" ||
		images[1].URL != "https://signed.example/skin/eczema/c.png" {
		t.Fatalf("unexpected surviving urls: %+v", images)
	}
}
