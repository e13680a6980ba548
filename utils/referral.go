package utils

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

const affiliateCodePrefix = "AFF"

// GenerateAffiliateCode generates a tracking code for a new affiliate.
// Format: AFF-{RANDOM} where RANDOM is 6 base32 characters, e.g. AFF-K3X9QZ.
// Global uniqueness is guaranteed by the unique index on affiliateCode, not
// by this function.
func GenerateAffiliateCode() (string, error) {
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}

	randomStr := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randomBytes)
	randomStr = strings.ToUpper(randomStr)
	if len(randomStr) > 6 {
		randomStr = randomStr[:6]
	}
	if len(randomStr) < 6 {
		randomStr = randomStr + strings.Repeat("0", 6-len(randomStr))
	}

	return affiliateCodePrefix + "-" + randomStr, nil
}
