package utils

import (
	"strings"
	"testing"
)

func TestGenerateAffiliateCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateAffiliateCode()
		if err != nil {
			t.Fatalf("GenerateAffiliateCode: %v", err)
		}
		if !strings.HasPrefix(code, "AFF-") {
			t.Fatalf("code = %q, want AFF- prefix", code)
		}
		if len(code) != len("AFF-")+6 {
			t.Fatalf("code = %q, want 6 random characters", code)
		}
		seen[code] = true
	}
	// 100 draws from a 32^6 space colliding down to a handful would mean
	// the generator is broken.
	if len(seen) < 90 {
		t.Errorf("only %d distinct codes out of 100", len(seen))
	}
}

func TestGenerateQRCodeBase64(t *testing.T) {
	qr, err := GenerateQRCodeBase64("https://shop.test?ref=AFF-K3X9QZ")
	if err != nil {
		t.Fatalf("GenerateQRCodeBase64: %v", err)
	}
	if !strings.HasPrefix(qr, "data:image/png;base64,") {
		t.Errorf("qr = %.40q..., want png data URI", qr)
	}
}
