package tokens

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/google/go-cmp/cmp"
)

// testRegistry runs the behavior every Registry must have.
func testRegistry(t *testing.T, r Registry) {
	t.Helper()
	ctx := context.Background()
	at := time.Date(2025, 8, 14, 9, 30, 0, 0, time.UTC)

	list, err := r.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("List() = %v, want empty", list)
	}

	a := Token{Token: "ExponentPushToken[aaa]", Platform: IOS, RegisteredAt: at}
	b := Token{Token: "ExponentPushToken[bbb]", Platform: Android, RegisteredAt: at.Add(time.Minute)}
	c := Token{Token: "ExponentPushToken[ccc]", Platform: Unknown, RegisteredAt: at.Add(time.Hour)}
	for _, tok := range []Token{c, a, b} {
		if err := r.Add(ctx, tok); err != nil {
			t.Fatalf("Add(%s) error = %v", tok.Token, err)
		}
	}
	// adding again replaces
	a.Platform = Android
	if err := r.Add(ctx, a); err != nil {
		t.Fatalf("Add(%s) error = %v", a.Token, err)
	}

	list, err = r.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if diff := cmp.Diff([]Token{a, b, c}, list); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
	if n, err := r.Count(ctx); err != nil || n != 3 {
		t.Errorf("Count() = %d, %v, want 3", n, err)
	}

	if err := r.Delete(ctx, b.Token); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := r.Delete(ctx, "ExponentPushToken[unknown]"); err != nil {
		t.Fatalf("Delete(unknown) error = %v", err)
	}
	if n, err := r.Count(ctx); err != nil || n != 2 {
		t.Errorf("Count() after Delete = %d, %v, want 2", n, err)
	}

	if err := r.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}
	if n, err := r.Count(ctx); err != nil || n != 0 {
		t.Errorf("Count() after DeleteAll = %d, %v, want 0", n, err)
	}
	if err := r.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll(empty) error = %v", err)
	}
}

func TestMemory(t *testing.T) {
	testRegistry(t, NewMemory())
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	r := NewRedis(client, "timberline")
	if err := r.Add(context.Background(), Token{Token: "ExponentPushToken[x]", Platform: IOS, RegisteredAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("timberline:pushToken:ExponentPushToken[x]") {
		t.Errorf("token hash not found, have keys %v", mr.Keys())
	}
	if ok, _ := mr.SIsMember("timberline:pushTokens", "ExponentPushToken[x]"); !ok {
		t.Errorf("token not in set timberline:pushTokens")
	}
	if err := r.DeleteAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	testRegistry(t, r)
}

func TestSQLite(t *testing.T) {
	r, err := NewSQLite(filepath.Join(t.TempDir(), "db", "tokens.db"))
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	defer r.Close()
	testRegistry(t, r)
}

func TestSQLite_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.db")
	r, err := NewSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Add(context.Background(), Token{Token: "ExponentPushToken[x]", Platform: IOS}); err != nil {
		t.Fatal(err)
	}
	r.Close()

	r, err = NewSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if n, err := r.Count(context.Background()); err != nil || n != 1 {
		t.Errorf("Count() after reopen = %d, %v, want 1", n, err)
	}
}

func TestValid(t *testing.T) {
	tests := map[string]bool{
		"ExponentPushToken[abc]": true,
		"ExponentPushToken[":     true,
		"exponentpushtoken[abc]": false,
		"abc":                    false,
		"":                       false,
	}
	for token, want := range tests {
		if got := Valid(token); got != want {
			t.Errorf("Valid(%q) = %v, want %v", token, got, want)
		}
	}
}

func TestParsePlatform(t *testing.T) {
	tests := map[string]Platform{"ios": IOS, "android": Android, "": Unknown, "windows": Unknown, "IOS": Unknown}
	for in, want := range tests {
		if got := ParsePlatform(in); got != want {
			t.Errorf("ParsePlatform(%q) = %q, want %q", in, got, want)
		}
	}
}
