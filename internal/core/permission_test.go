package core_test

import (
	"testing"
	"time"

	"docvault/internal/core"
	"docvault/internal/model"
)

func grant(subjectID string, subjectKind model.SubjectKind, resourceID string, caps model.CapabilitySet) *model.Grant {
	return &model.Grant{
		ID:           "g-" + subjectID + "-" + resourceID,
		SubjectID:    subjectID,
		SubjectKind:  subjectKind,
		ResourceID:   resourceID,
		ResourceKind: model.ResourceDocument,
		Capabilities: caps,
		GrantedBy:    "owner",
		GrantedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func folder(id string) *model.Folder {
	return &model.Folder{ID: id, OwnerID: "owner", Name: id}
}

func TestAuthorize(t *testing.T) {
	doc := core.Resource{
		ID:      "doc-1",
		Kind:    model.ResourceDocument,
		OwnerID: "owner",
		Ancestors: []*model.Folder{
			folder("folder-near"),
			folder("folder-far"),
		},
	}

	tests := []struct {
		name       string
		principal  model.Principal
		capability model.Capability
		grants     []*model.Grant
		wantAllow  bool
	}{
		{
			name:       "owner has full access with no grants",
			principal:  model.Principal{ID: "owner"},
			capability: model.CapDelete,
			wantAllow:  true,
		},
		{
			name:       "stranger denied by default",
			principal:  model.Principal{ID: "mallory"},
			capability: model.CapRead,
			wantAllow:  false,
		},
		{
			name:       "read grant allows read",
			principal:  model.Principal{ID: "bob"},
			capability: model.CapRead,
			grants: []*model.Grant{
				grant("bob", model.SubjectPrincipal, "doc-1", model.Caps(model.CapRead)),
			},
			wantAllow: true,
		},
		{
			name:       "read grant does not allow write",
			principal:  model.Principal{ID: "bob"},
			capability: model.CapWrite,
			grants: []*model.Grant{
				grant("bob", model.SubjectPrincipal, "doc-1", model.Caps(model.CapRead)),
			},
			wantAllow: false,
		},
		{
			name:       "role grant applies through membership",
			principal:  model.Principal{ID: "bob", Roles: []string{"staff"}},
			capability: model.CapRead,
			grants: []*model.Grant{
				grant("staff", model.SubjectRole, "doc-1", model.Caps(model.CapRead)),
			},
			wantAllow: true,
		},
		{
			name:       "principal grant beats broader role grant",
			principal:  model.Principal{ID: "bob", Roles: []string{"staff"}},
			capability: model.CapWrite,
			grants: []*model.Grant{
				grant("staff", model.SubjectRole, "doc-1", model.Caps(model.CapRead, model.CapWrite)),
				grant("bob", model.SubjectPrincipal, "doc-1", model.Caps(model.CapRead)),
			},
			wantAllow: false,
		},
		{
			name:       "role grants union within one level",
			principal:  model.Principal{ID: "bob", Roles: []string{"staff", "editors"}},
			capability: model.CapWrite,
			grants: []*model.Grant{
				grant("staff", model.SubjectRole, "doc-1", model.Caps(model.CapRead)),
				grant("editors", model.SubjectRole, "doc-1", model.Caps(model.CapWrite)),
			},
			wantAllow: true,
		},
		{
			name:       "folder grant inherits to document",
			principal:  model.Principal{ID: "bob"},
			capability: model.CapRead,
			grants: []*model.Grant{
				grant("bob", model.SubjectPrincipal, "folder-far", model.Caps(model.CapRead)),
			},
			wantAllow: true,
		},
		{
			name:       "nearest ancestor with grants decides",
			principal:  model.Principal{ID: "bob"},
			capability: model.CapWrite,
			grants: []*model.Grant{
				grant("bob", model.SubjectPrincipal, "folder-near", model.Caps(model.CapRead)),
				grant("bob", model.SubjectPrincipal, "folder-far", model.Caps(model.CapRead, model.CapWrite)),
			},
			wantAllow: false,
		},
		{
			name:       "exact resource grant beats ancestor grant",
			principal:  model.Principal{ID: "bob"},
			capability: model.CapWrite,
			grants: []*model.Grant{
				grant("bob", model.SubjectPrincipal, "doc-1", model.Caps(model.CapRead)),
				grant("bob", model.SubjectPrincipal, "folder-near", model.Caps(model.CapRead, model.CapWrite)),
			},
			wantAllow: false,
		},
		{
			name:       "explicit deny beats folder grant",
			principal:  model.Principal{ID: "bob"},
			capability: model.CapRead,
			grants: []*model.Grant{
				grant("bob", model.SubjectPrincipal, "doc-1", 0),
				grant("bob", model.SubjectPrincipal, "folder-near", model.AllCapabilities),
			},
			wantAllow: false,
		},
		{
			name:       "explicit deny beats ownership",
			principal:  model.Principal{ID: "owner"},
			capability: model.CapRead,
			grants: []*model.Grant{
				grant("owner", model.SubjectPrincipal, "doc-1", 0),
			},
			wantAllow: false,
		},
		{
			name:       "role deny overridden by principal grant on same level",
			principal:  model.Principal{ID: "bob", Roles: []string{"staff"}},
			capability: model.CapRead,
			grants: []*model.Grant{
				grant("staff", model.SubjectRole, "folder-near", 0),
				grant("bob", model.SubjectPrincipal, "folder-near", model.Caps(model.CapRead)),
			},
			wantAllow: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := core.Authorize(tt.principal, doc, tt.capability, tt.grants)
			if tt.wantAllow && err != nil {
				t.Errorf("Authorize() unexpected deny: %v", err)
			}
			if !tt.wantAllow {
				if err == nil {
					t.Fatal("Authorize() expected deny, got allow")
				}
				if !core.IsUnauthorized(err) {
					t.Errorf("Authorize() error kind = %v, want Unauthorized", core.KindOf(err))
				}
			}
		})
	}
}

func TestEffectiveCapabilities(t *testing.T) {
	res := core.Resource{ID: "doc-1", Kind: model.ResourceDocument, OwnerID: "owner"}

	if got := core.EffectiveCapabilities(model.Principal{ID: "owner"}, res, nil); got != model.AllCapabilities {
		t.Errorf("owner capabilities = %v, want all", got)
	}
	if got := core.EffectiveCapabilities(model.Principal{ID: "bob"}, res, nil); got != 0 {
		t.Errorf("stranger capabilities = %v, want none", got)
	}

	grants := []*model.Grant{
		grant("bob", model.SubjectPrincipal, "doc-1", model.Caps(model.CapRead, model.CapShare)),
	}
	got := core.EffectiveCapabilities(model.Principal{ID: "bob"}, res, grants)
	if !got.Has(model.CapRead) || !got.Has(model.CapShare) || got.Has(model.CapWrite) {
		t.Errorf("granted capabilities = %v, want read+share", got)
	}
}
