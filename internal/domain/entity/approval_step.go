package entity

import "time"

// Action paso o acción de un workflow.
type Action string

const (
	ActionCreate   Action = "create"
	ActionVerify   Action = "verify"
	ActionApprove  Action = "approve"
	ActionRelease  Action = "release"
	ActionComplete Action = "complete"
	ActionReturn   Action = "return"
	ActionCancel   Action = "cancel"
	ActionReject   Action = "reject"
)

// Workflow identifica la máquina de estados a la que pertenece una solicitud.
type Workflow string

const (
	WorkflowWithdrawal Workflow = "withdrawal"
	WorkflowTransfer   Workflow = "transfer"
)

// ChainStep par rol+acción requerido por la cadena de aprobación.
type ChainStep struct {
	Role   Role   `json:"role"`
	Action Action `json:"action"`
}

// ApprovalStep registro inmutable de auditoría (append-only) de cada transición.
type ApprovalStep struct {
	ID        string
	Role      Role
	Action    Action
	ActorID   string
	Notes     string
	Automatic bool // paso implícito por la autoridad del originador
	CreatedAt time.Time
}
