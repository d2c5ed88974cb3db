package uploads

import (
	"strings"
	"testing"
)

func TestBuildStorageKey(t *testing.T) {
	key := BuildStorageKey("attempt-1", DocTypeFoto, "perfil.JPG")

	if !strings.HasPrefix(key, "pending/attempt-1/foto/") {
		t.Fatalf("unexpected prefix: %s", key)
	}
	if !strings.HasSuffix(key, ".jpg") {
		t.Fatalf("extension not preserved lowercase: %s", key)
	}
}

func TestBuildStorageKeyIsCollisionResistant(t *testing.T) {
	a := BuildStorageKey("attempt-1", DocTypeExame, "exame.pdf")
	b := BuildStorageKey("attempt-1", DocTypeExame, "exame.pdf")
	if a == b {
		t.Fatal("two keys for the same file must differ")
	}
}

func TestBuildStorageKeyDropsSuspiciousExtension(t *testing.T) {
	key := BuildStorageKey("attempt-1", DocTypeFoto, "weird.name with/slash")
	if strings.Contains(strings.TrimPrefix(key, "pending/attempt-1/foto/"), "/") {
		t.Fatalf("extension leaked path separator: %s", key)
	}
}

func TestValidDocType(t *testing.T) {
	if !ValidDocType("foto") || !ValidDocType("exame") {
		t.Error("foto and exame must be valid")
	}
	for _, bad := range []string{"", "video", "FOTO", "documento"} {
		if ValidDocType(bad) {
			t.Errorf("%q should be invalid", bad)
		}
	}
}
