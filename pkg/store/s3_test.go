package store

import "testing"

func TestKeyFromLink(t *testing.T) {
	host := "bucket.us-southeast-1.linodeobjects.com"

	key, err := KeyFromLink("https://"+host+"/acct-1/coll-2/abc.txt", host)
	if err != nil {
		t.Fatalf("KeyFromLink returned error: %v", err)
	}
	if key != "acct-1/coll-2/abc.txt" {
		t.Errorf("key = %q", key)
	}

	if _, err := KeyFromLink("https://other.example.com/acct/coll/abc.txt", host); err == nil {
		t.Error("expected error for foreign link")
	}
	if _, err := KeyFromLink("https://"+host+"/", host); err == nil {
		t.Error("expected error for empty key")
	}
}
