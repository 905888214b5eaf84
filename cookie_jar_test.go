package goGuard

import "testing"

func TestJarSetReplacesByName(t *testing.T) {
	jar := NewMemoryCookieJar()

	_ = jar.Set(Cookie{Name: "theme", Value: "light", Category: CategoryFunctional})
	_ = jar.Set(Cookie{Name: "theme", Value: "dark", Category: CategoryFunctional})

	c, ok := jar.Get("theme")
	if !ok || c.Value != "dark" {
		t.Fatalf("expected replaced cookie, got %+v %v", c, ok)
	}
	if len(jar.All()) != 1 {
		t.Fatalf("expected one cookie, got %d", len(jar.All()))
	}
}

func TestJarDeletePathSemantics(t *testing.T) {
	jar := NewMemoryCookieJar()
	_ = jar.Set(Cookie{Name: "theme", Value: "dark", Path: "/app"})

	jar.Delete("theme", "/other")
	if _, ok := jar.Get("theme"); !ok {
		t.Fatal("mismatched path must not delete")
	}

	jar.Delete("theme", "/app")
	if _, ok := jar.Get("theme"); ok {
		t.Fatal("exact path match must delete")
	}

	_ = jar.Set(Cookie{Name: "theme", Value: "dark", Path: "/app"})
	jar.Delete("theme", "")
	if _, ok := jar.Get("theme"); ok {
		t.Fatal("empty path deletes regardless of stored path")
	}
}

func TestJarDeleteMissingIsNoOp(t *testing.T) {
	jar := NewMemoryCookieJar()
	jar.Delete("ghost", "/")
}
