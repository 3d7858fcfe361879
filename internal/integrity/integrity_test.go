package integrity

import "testing"

func TestSealedImageVerifies(t *testing.T) {
	img := Seal([]byte("monitor code image"))
	r, err := Verify(img)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !r.OK() {
		t.Fatalf("sealed image failed: expected %08x computed %08x", r.Expected, r.Computed)
	}
	if r.Length != uint32(len(img)-SealSize) {
		t.Fatalf("length = %d, want %d", r.Length, len(img)-SealSize)
	}
}

func TestFlippedByteFailsButReportsBoth(t *testing.T) {
	img := Seal([]byte("monitor code image"))
	img[3] ^= 0x10
	r, err := Verify(img)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if r.OK() {
		t.Fatalf("corrupted image passed")
	}
	if r.Expected == r.Computed {
		t.Fatalf("result carries no distinguishing values")
	}
}

func TestVerifyRejectsTinyImage(t *testing.T) {
	if _, err := Verify([]byte{1, 2, 3, 4}); err == nil {
		t.Fatalf("expected error for image with no body")
	}
}
