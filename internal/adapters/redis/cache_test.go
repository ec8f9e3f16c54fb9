package redisad_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	redisad "lodge_catalog/internal/adapters/redis"
	"lodge_catalog/internal/domain"
	"lodge_catalog/internal/render"
)

func newCache(t *testing.T) *redisad.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	return redisad.New(mr.Addr(), "", 0)
}

func TestCache_RoundTrip(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	in := render.Page{Header: "2 lodgings found", Count: 2}
	if err := c.Set(ctx, "results:abc", in, 60); err != nil {
		t.Fatalf("set: %v", err)
	}

	var out render.Page
	ok, err := c.Get(ctx, "results:abc", &out)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if out.Header != in.Header || out.Count != in.Count {
		t.Fatalf("roundtrip = %+v, want %+v", out, in)
	}
}

func TestCache_MissAndDel(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	var out render.Page
	ok, err := c.Get(ctx, "results:nope", &out)
	if err != nil || ok {
		t.Fatalf("miss: ok=%v err=%v", ok, err)
	}

	if err := c.Set(ctx, "results:x", render.Page{Count: 1}, 60); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Del(ctx, "results:x"); err != nil {
		t.Fatalf("del: %v", err)
	}
	ok, _ = c.Get(ctx, "results:x", &out)
	if ok {
		t.Fatalf("key survived delete")
	}
}

func TestResultKey_NormalizesEquivalentConfigs(t *testing.T) {
	a := domain.FilterConfig{SearchText: "  Andes ", MaxPrice: 300, RequiredAmenities: []string{"wifi", "spa"}}
	b := domain.FilterConfig{SearchText: "andes", MaxPrice: 300, RequiredAmenities: []string{"spa", "wifi"}}
	if redisad.ResultKey(a) != redisad.ResultKey(b) {
		t.Fatalf("equivalent configs must share a key")
	}
	c := b
	c.MaxPrice = 400
	if redisad.ResultKey(b) == redisad.ResultKey(c) {
		t.Fatalf("different configs must not collide")
	}
}
