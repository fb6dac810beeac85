package upstream

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstream agrupa fallos de transporte y respuestas no-2xx de un servicio remoto.
	ErrUpstream = errors.New("upstream error")
	// ErrUnparseableResponse indica un 2xx sin los campos esperados.
	ErrUnparseableResponse = errors.New("unparseable upstream response")
	// ErrCapabilityUnavailable indica que el servicio remoto no soporta la operacion pedida.
	ErrCapabilityUnavailable = errors.New("capability unavailable")
)

// Error describe una llamada fallida a un servicio remoto.
// StatusCode es 0 cuando la falla ocurrio antes de recibir respuesta (red, timeout).
type Error struct {
	Service    string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s request failed: %v", e.Service, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s request failed (%d): %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s API error (%d): %s", e.Service, e.StatusCode, e.Body)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrUpstream
}

// StatusCode devuelve el status HTTP de un *Error dentro de err, o 0.
func StatusCode(err error) int {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.StatusCode
	}
	return 0
}

// Unparseable envuelve ErrUnparseableResponse con el detalle del proveedor.
func Unparseable(service, detail string) error {
	return fmt.Errorf("%w: %s: %s", ErrUnparseableResponse, service, detail)
}

// MaskKey oculta una API key para logs.
func MaskKey(key string) string {
	switch {
	case key == "":
		return "NOT_SET"
	case len(key) <= 8:
		return "***"
	default:
		return key[:4] + "..." + key[len(key)-4:]
	}
}
