package core

import (
	"fmt"

	"docvault/internal/model"
)

// Resource is the authorization view of a document or folder: identity,
// ownership, and the folder chain grants can be inherited from (nearest
// ancestor first).
type Resource struct {
	ID        string
	Kind      model.ResourceKind
	OwnerID   string
	Ancestors []*model.Folder
}

// Authorize decides whether principal may exercise capability on res,
// given every grant attached to res or its ancestors. It is a pure
// decision: no I/O, no side effects, callers log and audit.
//
// Resolution order:
//  1. Grants on the exact resource. Highest specificity wins: grants
//     addressed to the principal beat grants addressed to its roles.
//     Within one specificity class the capability sets are unioned
//     (most-permissive-wins across roles). An explicit deny, meaning a
//     grant with an empty capability set, on the exact resource beats
//     any grant at any specificity.
//  2. Grants inherited from the nearest ancestor folder that has any
//     applicable grant, resolved the same way.
//  3. Resource ownership implies the full capability set.
//  4. Default deny.
func Authorize(principal model.Principal, res Resource, capability model.Capability, grants []*model.Grant) error {
	applicable := filterApplicable(principal, grants)

	// Exact resource first: explicit deny here beats everything.
	exact := applicable[res.ID]
	if denied(exact) {
		return E(KindUnauthorized, "authorize", res.ID,
			fmt.Sprintf("explicit deny for %s", principal.ID))
	}
	if decision, ok := resolveLevel(principal, exact); ok {
		return allowOrDeny(decision, res.ID, principal.ID, capability)
	}

	// Nearest ancestor folder with an applicable grant.
	for _, anc := range res.Ancestors {
		if decision, ok := resolveLevel(principal, applicable[anc.ID]); ok {
			return allowOrDeny(decision, res.ID, principal.ID, capability)
		}
	}

	// Ownership.
	if principal.ID == res.OwnerID {
		return nil
	}

	return E(KindUnauthorized, "authorize", res.ID,
		fmt.Sprintf("%s has no %s grant", principal.ID, capability))
}

// EffectiveCapabilities reports the full capability set a principal holds
// on res, for shares listings. Ownership short-circuits to everything
// unless an explicit deny exists on the exact resource.
func EffectiveCapabilities(principal model.Principal, res Resource, grants []*model.Grant) model.CapabilitySet {
	applicable := filterApplicable(principal, grants)

	if denied(applicable[res.ID]) {
		return 0
	}
	if caps, ok := resolveLevel(principal, applicable[res.ID]); ok {
		return caps
	}
	for _, anc := range res.Ancestors {
		if caps, ok := resolveLevel(principal, applicable[anc.ID]); ok {
			return caps
		}
	}
	if principal.ID == res.OwnerID {
		return model.AllCapabilities
	}
	return 0
}

// filterApplicable keeps grants whose subject matches the principal or one
// of its roles, grouped by resource id.
func filterApplicable(principal model.Principal, grants []*model.Grant) map[string][]*model.Grant {
	roles := make(map[string]bool, len(principal.Roles))
	for _, r := range principal.Roles {
		roles[r] = true
	}

	byResource := make(map[string][]*model.Grant)
	for _, g := range grants {
		switch g.SubjectKind {
		case model.SubjectPrincipal:
			if g.SubjectID != principal.ID {
				continue
			}
		case model.SubjectRole:
			if !roles[g.SubjectID] {
				continue
			}
		default:
			continue
		}
		byResource[g.ResourceID] = append(byResource[g.ResourceID], g)
	}
	return byResource
}

// resolveLevel resolves the grants of one resource level. Returns the
// effective capability set and whether any applicable grant existed.
func resolveLevel(principal model.Principal, grants []*model.Grant) (model.CapabilitySet, bool) {
	if len(grants) == 0 {
		return 0, false
	}

	var principalCaps, roleCaps model.CapabilitySet
	var havePrincipal bool
	for _, g := range grants {
		if g.SubjectKind == model.SubjectPrincipal {
			havePrincipal = true
			principalCaps = principalCaps.Union(g.Capabilities)
		} else {
			roleCaps = roleCaps.Union(g.Capabilities)
		}
	}
	if havePrincipal {
		return principalCaps, true
	}
	return roleCaps, true
}

// denied reports whether any grant in the slice is an explicit deny.
func denied(grants []*model.Grant) bool {
	for _, g := range grants {
		if g.Capabilities.IsEmpty() {
			return true
		}
	}
	return false
}

func allowOrDeny(caps model.CapabilitySet, resourceID, principalID string, capability model.Capability) error {
	if caps.Has(capability) {
		return nil
	}
	return E(KindUnauthorized, "authorize", resourceID,
		fmt.Sprintf("%s not granted %s", principalID, capability))
}
