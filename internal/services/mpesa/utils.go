package mpesa

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"
)

// timestamp formats t the way the gateway expects (yyyyMMddHHmmss).
func timestamp(t time.Time) string {
	return t.Format("20060102150405")
}

// password derives the STK push password for a request timestamp.
func password(shortCode, passkey, ts string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + ts))
}

// NormalizePhone converts local Kenyan formats (07.., +254..) to the
// 2547XXXXXXXX form the gateway requires.
func NormalizePhone(phone string) string {
	p := strings.TrimSpace(phone)
	p = strings.ReplaceAll(p, " ", "")
	p = strings.TrimPrefix(p, "+")

	switch {
	case strings.HasPrefix(p, "254"):
		return p
	case strings.HasPrefix(p, "0"):
		return fmt.Sprintf("254%s", p[1:])
	default:
		return p
	}
}

func newBodyReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}
