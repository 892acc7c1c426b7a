package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio por tipo. Se comparan con errors.Is contra un *Error.
var (
	ErrValidation        = errors.New("entrada inválida")
	ErrState             = errors.New("operación inválida para el estado actual")
	ErrAuthorization     = errors.New("rol no autorizado para esta transición")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrTransient         = errors.New("conflicto transitorio, reintente")
	ErrInternal          = errors.New("error interno")
)

// Kind identifica la clase de error expuesta al llamador.
type Kind string

const (
	KindValidation        Kind = "VALIDATION"
	KindState             Kind = "STATE"
	KindAuthorization     Kind = "FORBIDDEN"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindNotFound          Kind = "NOT_FOUND"
	KindTransient         Kind = "TRANSIENT"
	KindInternal          Kind = "INTERNAL"
)

var kindSentinels = map[Kind]error{
	KindValidation:        ErrValidation,
	KindState:             ErrState,
	KindAuthorization:     ErrAuthorization,
	KindInsufficientStock: ErrInsufficientStock,
	KindNotFound:          ErrNotFound,
	KindTransient:         ErrTransient,
	KindInternal:          ErrInternal,
}

// Shortfall detalle por ítem cuando la cantidad pedida supera la disponible.
type Shortfall struct {
	ItemID    string          `json:"item_id"`
	Requested decimal.Decimal `json:"requested"`
	Available decimal.Decimal `json:"available"`
}

// Error es el error estructurado que cruza la frontera de los workflows.
type Error struct {
	Kind       Kind
	Message    string
	Shortfalls []Shortfall
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap expone la causa original (si existe).
func (e *Error) Unwrap() error { return e.Err }

// Is permite errors.Is(err, domain.ErrState) etc.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Code devuelve el código legible por máquina.
func (e *Error) Code() string { return string(e.Kind) }

// Validation crea un error de validación.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// State crea un error de estado.
func State(format string, args ...any) *Error {
	return &Error{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

// Authorization crea un error de autorización.
func Authorization(format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

// NotFound crea un error de recurso inexistente.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStock crea el error con la lista detallada de faltantes.
func InsufficientStock(shortfalls []Shortfall) *Error {
	return &Error{
		Kind:       KindInsufficientStock,
		Message:    fmt.Sprintf("stock insuficiente en %d ítem(s)", len(shortfalls)),
		Shortfalls: shortfalls,
	}
}

// Transient envuelve un conflicto de concurrencia que agotó los reintentos.
func Transient(err error) *Error {
	return &Error{Kind: KindTransient, Message: "conflicto de concurrencia, intente de nuevo", Err: err}
}

// Internal envuelve un error de infraestructura no clasificado.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "error interno", Err: err}
}

// AsError clasifica cualquier error: los *Error pasan intactos, el resto se vuelve Internal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return Internal(err)
}
