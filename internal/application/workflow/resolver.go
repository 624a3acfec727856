package workflow

import (
	"context"
	"fmt"

	"github.com/sefapa/sgpd/internal/application/port"
	"github.com/sefapa/sgpd/internal/domain/entity"
	domainwf "github.com/sefapa/sgpd/internal/domain/workflow"
)

// ApproverRequirement is who may act on a request at a given stage.
// An empty Department accepts any department.
type ApproverRequirement struct {
	Role       string
	Department string
}

// ApproverResolver decides who must act at an approval stage
type ApproverResolver interface {
	ResolveNextApprover(ctx context.Context, req *entity.TravelRequest, stage domainwf.State) (ApproverRequirement, error)
}

var stageRoles = map[domainwf.State]string{
	domainwf.StateAwaitingDeptHead:        entity.RoleChefia,
	domainwf.StateAwaitingDeputySecretary: entity.RoleSubsecretario,
	domainwf.StateAwaitingAudit:           entity.RoleDAD,
}

// StageRole returns the role that acts at an approval stage, or "" for other states
func StageRole(stage domainwf.State) string {
	return stageRoles[stage]
}

// FlatChainResolver maps each stage to a role with no department routing
type FlatChainResolver struct{}

// NewFlatChainResolver creates the default resolver
func NewFlatChainResolver() *FlatChainResolver {
	return &FlatChainResolver{}
}

func (r *FlatChainResolver) ResolveNextApprover(ctx context.Context, req *entity.TravelRequest, stage domainwf.State) (ApproverRequirement, error) {
	role, ok := stageRoles[stage]
	if !ok {
		return ApproverRequirement{}, fmt.Errorf("%w: %s is not an approval stage", domainwf.ErrInvalidTransition, stage)
	}
	return ApproverRequirement{Role: role}, nil
}

// DepartmentResolver routes the department-head stage to the requester's own department.
// The later stages are organisation wide.
type DepartmentResolver struct {
	FlatChainResolver
	profiles port.ProfileRepository
}

// NewDepartmentResolver creates a resolver that looks up the requester's department
func NewDepartmentResolver(profiles port.ProfileRepository) *DepartmentResolver {
	return &DepartmentResolver{profiles: profiles}
}

func (r *DepartmentResolver) ResolveNextApprover(ctx context.Context, req *entity.TravelRequest, stage domainwf.State) (ApproverRequirement, error) {
	requirement, err := r.FlatChainResolver.ResolveNextApprover(ctx, req, stage)
	if err != nil || stage != domainwf.StateAwaitingDeptHead {
		return requirement, err
	}

	requester, err := r.profiles.GetByID(ctx, req.RequesterID)
	if err != nil {
		return ApproverRequirement{}, fmt.Errorf("failed to load requester profile: %w", err)
	}
	if requester != nil {
		requirement.Department = requester.Department
	}

	return requirement, nil
}
