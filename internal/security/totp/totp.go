package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base32"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"
)

const (
	period = 30 // segundos por paso
	digits = 6
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecret retorna 20 bytes base32 sin padding (RFC 3548).
func GenerateSecret() (raw []byte, enc string, err error) {
	raw = make([]byte, 20)
	if _, err = rand.Read(raw); err != nil {
		return nil, "", err
	}
	return raw, b32.EncodeToString(raw), nil
}

// DecodeSecret acepta el secreto base32 con o sin padding, en cualquier case.
func DecodeSecret(s string) ([]byte, error) {
	s = strings.ToUpper(strings.TrimRight(strings.ReplaceAll(strings.TrimSpace(s), " ", ""), "="))
	raw, err := b32.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("totp: secreto base32 inválido: %w", err)
	}
	return raw, nil
}

// OTPAuthURL construye otpauth:// para QR.
func OTPAuthURL(issuer, accountName, secretB32 string) string {
	// otpauth://totp/{issuer}:{account}?secret=...&issuer=...&algorithm=SHA1&digits=6&period=30
	label := url.PathEscape(fmt.Sprintf("%s:%s", issuer, accountName))
	q := url.Values{}
	q.Set("secret", secretB32)
	q.Set("issuer", issuer)
	q.Set("algorithm", "SHA1")
	q.Set("digits", fmt.Sprint(digits))
	q.Set("period", fmt.Sprint(period))
	return fmt.Sprintf("otpauth://totp/%s?%s", label, q.Encode())
}

// Code calcula el código vigente para t. Lo usan el CLI y los tests.
func Code(secretRaw []byte, t time.Time) string {
	return gen(secretRaw, t.Unix()/period)
}

// Verify TOTP en ventana +/- windowSteps. Devuelve el contador que matcheó
// para que el llamador pueda aplicar anti-replay.
func Verify(secretRaw []byte, code string, t time.Time, windowSteps int) (ok bool, counter int64) {
	code = strings.TrimSpace(code)
	if len(code) != digits {
		return false, 0
	}
	now := t.Unix() / period
	for c := now - int64(windowSteps); c <= now+int64(windowSteps); c++ {
		if hmac.Equal([]byte(gen(secretRaw, c)), []byte(code)) {
			return true, c
		}
	}
	return false, 0
}

func gen(secretRaw []byte, counter int64) string {
	// HOTP(K, C) con HMAC-SHA1 (RFC 4226 / 6238)
	var msg [8]byte
	for i := 7; i >= 0; i-- {
		msg[i] = byte(counter & 0xff)
		counter >>= 8
	}
	m := hmac.New(sha1.New, secretRaw)
	_, _ = m.Write(msg[:])
	sum := m.Sum(nil)
	offset := int(sum[len(sum)-1] & 0x0f)
	bin := (int(sum[offset])&0x7f)<<24 | int(sum[offset+1])<<16 | int(sum[offset+2])<<8 | int(sum[offset+3])
	otp := bin % int(math.Pow10(digits))
	return fmt.Sprintf("%0*d", digits, otp)
}
