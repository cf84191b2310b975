package reports

import (
	"fmt"
	"sync"

	"ResumeSection-backend/internal/platform/apierr"
	"ResumeSection-backend/internal/platform/auth"
	"ResumeSection-backend/internal/platform/config"
)

// Scope は呼び出し元が見られる・変更できる報告の範囲。
type Scope struct {
	Role         auth.Role
	SectionID    int64
	Unrestricted bool
	ReadOnly     bool
}

// Allows は sectionID の報告が範囲内かどうか。
func (s Scope) Allows(sectionID int64) bool {
	return s.Unrestricted || (s.SectionID > 0 && s.SectionID == sectionID)
}

func (s Scope) filter(in []ActivityReport) []ActivityReport {
	if s.Unrestricted {
		return in
	}
	out := make([]ActivityReport, 0, len(in))
	for _, r := range in {
		if s.Allows(r.SectionID) {
			out = append(out, r)
		}
	}
	return out
}

type ScopeFunc func(id auth.Identity) (Scope, error)

// ScopeResolver はロールごとの Scope 決定規則を持つ。
type ScopeResolver struct {
	mu    sync.RWMutex
	rules map[auth.Role]ScopeFunc
}

// NewScopeResolver は admin と section の規則を登録し、viewer は viewerAccess に従う。
func NewScopeResolver(viewerAccess string) *ScopeResolver {
	r := &ScopeResolver{rules: make(map[auth.Role]ScopeFunc)}
	r.Register(auth.RoleAdmin, func(id auth.Identity) (Scope, error) {
		return Scope{Role: id.Role, Unrestricted: true}, nil
	})
	r.Register(auth.RoleSection, func(id auth.Identity) (Scope, error) {
		if id.UserID <= 0 {
			return Scope{}, apierr.ErrForbidden("section identity without a section id")
		}
		return Scope{Role: id.Role, SectionID: id.UserID}, nil
	})
	if viewerAccess != config.ViewerNone {
		r.Register(auth.RoleViewer, func(id auth.Identity) (Scope, error) {
			return Scope{Role: id.Role, Unrestricted: true, ReadOnly: true}, nil
		})
	}
	return r
}

func (r *ScopeResolver) Register(role auth.Role, fn ScopeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[role] = fn
}

func (r *ScopeResolver) Resolve(id auth.Identity) (Scope, error) {
	r.mu.RLock()
	fn, ok := r.rules[id.Role]
	r.mu.RUnlock()
	if !ok {
		return Scope{}, apierr.ErrForbidden(fmt.Sprintf("role %q has no access to reports", id.Role))
	}
	return fn(id)
}
