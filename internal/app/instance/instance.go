// Package instance mantiene la información de la instancia en ejecución
// (nombre, versión, schema, fingerprint de config). Se carga lazy y se
// invalida sola cuando cambia la versión o el fingerprint de la config.
package instance

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Info es lo que reporta /readyz.
type Info struct {
	Name              string    `json:"name"`
	Version           string    `json:"version"`
	Hostname          string    `json:"hostname,omitempty"`
	StorageDriver     string    `json:"storage_driver"`
	SchemaVersion     int64     `json:"schema_version"`
	ConfigFingerprint string    `json:"config_fingerprint"`
	StartedAt         time.Time `json:"started_at"`
	LoadedAt          time.Time `json:"loaded_at"`
}

// Key identifica la generación de Info: si cambia, se recarga.
type Key struct {
	Version     string
	Fingerprint string
}

// Loader arma Info para la key dada.
type Loader func(ctx context.Context, key Key) (Info, error)

// Holder no es global: se crea en main y se pasa a quien lo necesite.
type Holder struct {
	key  func() Key
	load Loader

	mu     sync.RWMutex
	cur    *Info
	curKey Key
	sf     singleflight.Group
}

func NewHolder(key func() Key, load Loader) *Holder {
	return &Holder{key: key, load: load}
}

// Get devuelve la Info vigente; la carga si no hay o si la key cambió.
// Cargas concurrentes se colapsan en una sola.
func (h *Holder) Get(ctx context.Context) (Info, error) {
	k := h.key()

	h.mu.RLock()
	if h.cur != nil && h.curKey == k {
		info := *h.cur
		h.mu.RUnlock()
		return info, nil
	}
	h.mu.RUnlock()

	v, err, _ := h.sf.Do(k.Version+"|"+k.Fingerprint, func() (any, error) {
		info, err := h.load(ctx, k)
		if err != nil {
			return nil, err
		}
		h.mu.Lock()
		h.cur, h.curKey = &info, k
		h.mu.Unlock()
		return info, nil
	})
	if err != nil {
		return Info{}, err
	}
	return v.(Info), nil
}

// Invalidate descarta la Info cargada; el próximo Get recarga.
func (h *Holder) Invalidate() {
	h.mu.Lock()
	h.cur = nil
	h.mu.Unlock()
}
