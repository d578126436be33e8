package usecase

import (
	"sort"
	"strings"

	"github.com/quaydocs/corpus-assistant/internal/core/domain"
)

// TenantDirectory is the externally supplied fixed set of recognized tenant
// names. Identifiers are opaque and matched by exact equality; front ends
// consult the directory before any request reaches the core pipeline.
type TenantDirectory struct {
	names map[string]struct{}
}

func NewTenantDirectory(names []string) *TenantDirectory {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name != "" {
			set[name] = struct{}{}
		}
	}
	return &TenantDirectory{names: set}
}

func (d *TenantDirectory) Valid(tenant string) bool {
	_, ok := d.names[tenant]
	return ok
}

// Require returns ErrInvalidTenant for names outside the directory.
func (d *TenantDirectory) Require(tenant string) error {
	if d.Valid(tenant) {
		return nil
	}
	return domain.WrapError(domain.ErrInvalidTenant, "validate tenant", errUnknownTenant(tenant))
}

func (d *TenantDirectory) Names() []string {
	out := make([]string, 0, len(d.names))
	for name := range d.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

type errUnknownTenant string

func (e errUnknownTenant) Error() string {
	return "unknown tenant: " + string(e)
}
