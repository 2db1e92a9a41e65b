package totp

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dropDatabas3/passgrant/internal/cache"
	"github.com/dropDatabas3/passgrant/internal/security/secretbox"
	tokens "github.com/dropDatabas3/passgrant/internal/security/token"
)

// Validator verifica códigos contra un secreto TOTP cifrado con secretbox.
// Si Replay no es nil, un contador aceptado no puede volver a usarse
// mientras siga dentro de la ventana.
type Validator struct {
	Box    *secretbox.Box
	Replay cache.Client
	Window int // pasos de tolerancia a cada lado (default 1)

	now func() time.Time
}

func NewValidator(box *secretbox.Box, replay cache.Client) *Validator {
	return &Validator{Box: box, Replay: replay, Window: 1, now: time.Now}
}

// Verify devuelve false (sin error) para códigos incorrectos o reusados.
// Un error indica un secreto ilegible o un fallo del cache.
func (v *Validator) Verify(ctx context.Context, encryptedSecret, code string) (bool, error) {
	plain, err := v.Box.Open(encryptedSecret)
	if err != nil {
		return false, fmt.Errorf("totp: open secret: %w", err)
	}
	raw, err := DecodeSecret(plain)
	if err != nil {
		return false, err
	}

	nowFn := v.now
	if nowFn == nil {
		nowFn = time.Now
	}
	ok, counter := Verify(raw, code, nowFn(), v.Window)
	if !ok {
		return false, nil
	}
	if v.Replay == nil {
		return true, nil
	}

	key := "totp:" + tokens.SHA256Base64URL(plain) + ":" + strconv.FormatInt(counter, 10)
	ttl := time.Duration(2*v.Window+1) * period * time.Second
	fresh, err := v.Replay.SetNX(ctx, key, "1", ttl)
	if err != nil {
		return false, fmt.Errorf("totp: replay guard: %w", err)
	}
	return fresh, nil
}
