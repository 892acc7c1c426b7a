package dto

import "github.com/jhoicas/Movimientos-api/internal/domain/entity"

// PageRequest paginación para listados.
type PageRequest struct {
	Limit  int `query:"limit" validate:"min=1,max=100"`
	Offset int `query:"offset" validate:"min=0"`
}

// DefaultPage aplica valores por defecto y límites.
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// PageResponse metadatos de página en respuestas.
type PageResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// Envelope respuesta uniforme {success, message, data|errors} de toda la API.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// OK construye un sobre exitoso.
func OK(message string, data any) Envelope {
	return Envelope{Success: true, Message: message, Data: data}
}

// Fail construye un sobre de error con código de máquina.
func Fail(code, message string, errs any) Envelope {
	return Envelope{Success: false, Code: code, Message: message, Errors: errs}
}

// StatusResponse resultado de una transición: {id, status}.
type StatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// NotesRequest body común de verify/approve/complete/return de traslado.
type NotesRequest struct {
	Notes string `json:"notes"`
}

// ReasonRequest body de cancel/reject.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// ChainStepDTO paso rol+acción de la cadena de aprobación.
type ChainStepDTO struct {
	Role   string `json:"role"`
	Action string `json:"action"`
}

// ApprovalStepDTO registro de la bitácora de aprobación.
type ApprovalStepDTO struct {
	Role      string `json:"role"`
	Action    string `json:"action"`
	ActorID   string `json:"actor_id"`
	Notes     string `json:"notes,omitempty"`
	Automatic bool   `json:"automatic,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toChainDTO(chain []entity.ChainStep) []ChainStepDTO {
	out := make([]ChainStepDTO, 0, len(chain))
	for _, s := range chain {
		out = append(out, ChainStepDTO{Role: string(s.Role), Action: string(s.Action)})
	}
	return out
}

func toNextDTO(next *entity.ChainStep) *ChainStepDTO {
	if next == nil {
		return nil
	}
	return &ChainStepDTO{Role: string(next.Role), Action: string(next.Action)}
}

func toStepsDTO(steps []entity.ApprovalStep) []ApprovalStepDTO {
	out := make([]ApprovalStepDTO, 0, len(steps))
	for _, s := range steps {
		out = append(out, ApprovalStepDTO{
			Role:      string(s.Role),
			Action:    string(s.Action),
			ActorID:   s.ActorID,
			Notes:     s.Notes,
			Automatic: s.Automatic,
			CreatedAt: s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return out
}
