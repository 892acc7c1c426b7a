// Package approval resuelve la cadena de aprobación MVA de cada solicitud.
// Todo es función pura sobre el estado de la solicitud y tablas estáticas.
package approval

import (
	"github.com/jhoicas/Movimientos-api/internal/domain"
	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
)

// Subject vista mínima de una solicitud que el resolver necesita.
type Subject interface {
	WorkflowKind() entity.Workflow
	Originator() (actorID string, role entity.Role)
	ApprovalChain() []entity.ChainStep
	PendingAction() (entity.Action, bool)
}

// capabilities tabla rol × workflow × acción. admin queda fuera: puede todo.
var capabilities = map[entity.Workflow]map[entity.Action][]entity.Role{
	entity.WorkflowWithdrawal: {
		entity.ActionCreate:  {entity.RoleMaker, entity.RoleVerifier, entity.RoleApprover, entity.RoleReleaser},
		entity.ActionVerify:  {entity.RoleVerifier},
		entity.ActionApprove: {entity.RoleApprover},
		entity.ActionRelease: {entity.RoleReleaser},
		entity.ActionReturn:  {entity.RoleReleaser},
		entity.ActionCancel:  {entity.RoleMaker, entity.RoleVerifier, entity.RoleApprover, entity.RoleReleaser},
		entity.ActionReject:  {entity.RoleVerifier, entity.RoleApprover, entity.RoleReleaser},
	},
	entity.WorkflowTransfer: {
		entity.ActionCreate:   {entity.RoleMaker, entity.RoleVerifier, entity.RoleApprover, entity.RoleReleaser},
		entity.ActionApprove:  {entity.RoleApprover},
		entity.ActionComplete: {entity.RoleReleaser},
		entity.ActionReturn:   {entity.RoleReleaser},
		entity.ActionCancel:   {entity.RoleMaker, entity.RoleVerifier, entity.RoleApprover, entity.RoleReleaser},
		entity.ActionReject:   {entity.RoleApprover},
	},
}

// fullChains cadena completa por workflow (la de un originador de menor autoridad).
var fullChains = map[entity.Workflow][]entity.ChainStep{
	entity.WorkflowWithdrawal: {
		{Role: entity.RoleVerifier, Action: entity.ActionVerify},
		{Role: entity.RoleApprover, Action: entity.ActionApprove},
		{Role: entity.RoleReleaser, Action: entity.ActionRelease},
	},
	entity.WorkflowTransfer: {
		{Role: entity.RoleApprover, Action: entity.ActionApprove},
		{Role: entity.RoleReleaser, Action: entity.ActionComplete},
	},
}

// impliedByOriginator pasos que la autoridad del originador ya cubre.
var impliedByOriginator = map[entity.Workflow]map[entity.Role][]entity.Action{
	entity.WorkflowWithdrawal: {
		entity.RoleVerifier: {entity.ActionVerify},
		entity.RoleReleaser: {entity.ActionVerify},
		entity.RoleApprover: {entity.ActionVerify, entity.ActionApprove},
		entity.RoleAdmin:    {entity.ActionVerify, entity.ActionApprove},
	},
	entity.WorkflowTransfer: {
		entity.RoleApprover: {entity.ActionApprove},
		entity.RoleAdmin:    {entity.ActionApprove},
	},
}

// Allowed consulta la tabla de capacidades.
func Allowed(role entity.Role, wf entity.Workflow, action entity.Action) bool {
	if role == entity.RoleAdmin {
		return true
	}
	for _, r := range capabilities[wf][action] {
		if r == role {
			return true
		}
	}
	return false
}

// BuildChain calcula la cadena explícita que se adjunta a la solicitud al crearla.
func BuildChain(wf entity.Workflow, originator entity.Role) []entity.ChainStep {
	implied := impliedByOriginator[wf][originator]
	chain := make([]entity.ChainStep, 0, len(fullChains[wf]))
	for _, step := range fullChains[wf] {
		if !containsAction(implied, step.Action) {
			chain = append(chain, step)
		}
	}
	return chain
}

// ImpliedSteps pasos de la cadena completa omitidos por la autoridad del originador, en orden.
func ImpliedSteps(wf entity.Workflow, originator entity.Role) []entity.ChainStep {
	implied := impliedByOriginator[wf][originator]
	var out []entity.ChainStep
	for _, step := range fullChains[wf] {
		if containsAction(implied, step.Action) {
			out = append(out, step)
		}
	}
	return out
}

// NextApprover devuelve el siguiente rol+acción requerido, o false si no queda ninguno.
func NextApprover(s Subject) (entity.ChainStep, bool) {
	action, ok := s.PendingAction()
	if !ok {
		return entity.ChainStep{}, false
	}
	for _, step := range s.ApprovalChain() {
		if step.Action == action {
			return step, true
		}
	}
	return entity.ChainStep{}, false
}

// CanTransition indica si un rol puede ejecutar la acción sobre la solicitud en su estado actual.
func CanTransition(role entity.Role, s Subject, action entity.Action) bool {
	if !role.Valid() || !Allowed(role, s.WorkflowKind(), action) {
		return false
	}
	switch action {
	case entity.ActionVerify, entity.ActionApprove, entity.ActionRelease, entity.ActionComplete:
		pending, ok := s.PendingAction()
		if !ok || pending != action {
			return false
		}
		step, ok := NextApprover(s)
		return ok && (role == entity.RoleAdmin || role == step.Role)
	case entity.ActionReject:
		step, ok := NextApprover(s)
		return ok && (role == entity.RoleAdmin || role == step.Role)
	default:
		return true
	}
}

// Authorize aplica CanTransition más separación de funciones sobre un actor concreto.
func Authorize(actor entity.Actor, s Subject, action entity.Action) error {
	if !CanTransition(actor.Role, s, action) {
		return domain.Authorization("el rol %q no puede ejecutar %q en un %s", actor.Role, action, s.WorkflowKind())
	}
	if actor.Role == entity.RoleAdmin {
		return nil
	}
	originatorID, _ := s.Originator()
	switch action {
	case entity.ActionVerify, entity.ActionApprove:
		if actor.ID == originatorID {
			return domain.Authorization("no puede ejecutar %q sobre una solicitud propia", action)
		}
	case entity.ActionCancel:
		if actor.Role == entity.RoleMaker && actor.ID != originatorID {
			return domain.Authorization("solo el originador puede cancelar su solicitud")
		}
	}
	return nil
}

func containsAction(list []entity.Action, a entity.Action) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}
