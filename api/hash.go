package api

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
)

// VendorKey is the HMAC key the REST family firmware expects for login
// payloads. It is baked into every device's web UI and identical across
// installations, so it is a protocol constant and not a secret.
const VendorKey = "0123456789"

// HexHMACMD5 returns the lowercase hex HMAC-MD5 of data under key.
func HexHMACMD5(key, data string) string {
	mac := hmac.New(md5.New, []byte(key))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
