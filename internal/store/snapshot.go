package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"voip-routing/internal/models"
)

// ErrInvalidDataset is returned by Build when the records break an
// uniqueness or ownership invariant.
var ErrInvalidDataset = errors.New("invalid dataset")

// DirectoryStore is the read-only view the routing engine resolves against.
// Slices returned by its methods are shared and must not be modified.
type DirectoryStore interface {
	Generation() uint64
	Tenants() []models.Tenant
	TenantByID(id string) (models.Tenant, bool)
	TenantByDomain(domain string) (models.Tenant, bool)
	Extension(tenantID, id string) (models.Extension, bool)
	ExtensionsByID(id string) []models.Extension
	DialplanRules(tenantID string) []models.DialplanRule
	InboundRoutes(tenantID string) []models.InboundRoute
	InboundRoutesByDID(did string) []models.InboundRoute
	OutboundRoutes(tenantID string) []models.OutboundRoute
	Gateway(id string) (models.Gateway, bool)
	IvrMenu(tenantID, id string) (models.IvrMenu, bool)
	CallerIDs(tenantID string) []models.CallerID
}

// Dataset is the raw record set produced by a Loader, in deployment order.
type Dataset struct {
	Tenants        []models.Tenant        `yaml:"tenants"`
	Extensions     []models.Extension     `yaml:"extensions"`
	DialplanRules  []models.DialplanRule  `yaml:"dialplan_rules"`
	InboundRoutes  []models.InboundRoute  `yaml:"inbound_routes"`
	OutboundRoutes []models.OutboundRoute `yaml:"outbound_routes"`
	Gateways       []models.Gateway       `yaml:"gateways"`
	IvrMenus       []models.IvrMenu       `yaml:"ivr_menus"`
	CallerIDs      []models.CallerID      `yaml:"caller_ids"`
}

type extKey struct {
	tenantID string
	id       string
}

// Snapshot is an immutable, indexed copy of a Dataset. It is never
// modified after Build returns.
type Snapshot struct {
	generation uint64

	tenants        []models.Tenant
	tenantByID     map[string]int
	tenantByDomain map[string]int

	extensions     map[extKey]models.Extension
	extensionsByID map[string][]models.Extension

	rules        map[string][]models.DialplanRule
	inbound      map[string][]models.InboundRoute
	inboundByDID map[string][]models.InboundRoute
	outbound     map[string][]models.OutboundRoute
	gateways     map[string]models.Gateway
	menus        map[extKey]models.IvrMenu
	callerIDs    map[string][]models.CallerID
}

// Build validates ds and indexes it into a Snapshot. ds is copied; the
// caller may reuse it afterwards.
func Build(ds *Dataset) (*Snapshot, error) {
	if ds == nil {
		ds = &Dataset{}
	}

	s := &Snapshot{
		tenants:        append([]models.Tenant(nil), ds.Tenants...),
		tenantByID:     make(map[string]int, len(ds.Tenants)),
		tenantByDomain: make(map[string]int, len(ds.Tenants)),
		extensions:     make(map[extKey]models.Extension, len(ds.Extensions)),
		extensionsByID: make(map[string][]models.Extension),
		rules:          make(map[string][]models.DialplanRule),
		inbound:        make(map[string][]models.InboundRoute),
		inboundByDID:   make(map[string][]models.InboundRoute),
		outbound:       make(map[string][]models.OutboundRoute),
		gateways:       make(map[string]models.Gateway, len(ds.Gateways)),
		menus:          make(map[extKey]models.IvrMenu, len(ds.IvrMenus)),
		callerIDs:      make(map[string][]models.CallerID),
	}

	for i, t := range s.tenants {
		if t.ID == "" {
			return nil, fmt.Errorf("%w: tenant at index %d has no id", ErrInvalidDataset, i)
		}
		if _, dup := s.tenantByID[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate tenant id %q", ErrInvalidDataset, t.ID)
		}
		s.tenantByID[t.ID] = i

		domain := normalizeDomain(t.Domain)
		if domain == "" {
			return nil, fmt.Errorf("%w: tenant %q has no domain", ErrInvalidDataset, t.ID)
		}
		if _, dup := s.tenantByDomain[domain]; dup {
			return nil, fmt.Errorf("%w: duplicate tenant domain %q", ErrInvalidDataset, t.Domain)
		}
		s.tenantByDomain[domain] = i
	}

	for _, e := range ds.Extensions {
		if err := s.requireTenant("extension", e.ID, e.TenantID); err != nil {
			return nil, err
		}
		k := extKey{e.TenantID, e.ID}
		if _, dup := s.extensions[k]; dup {
			return nil, fmt.Errorf("%w: duplicate extension %q in tenant %q", ErrInvalidDataset, e.ID, e.TenantID)
		}
		s.extensions[k] = e
		s.extensionsByID[e.ID] = append(s.extensionsByID[e.ID], e)
	}
	// Cross-tenant lookups follow tenant deployment order.
	for id, exts := range s.extensionsByID {
		sort.SliceStable(exts, func(i, j int) bool {
			return s.tenantByID[exts[i].TenantID] < s.tenantByID[exts[j].TenantID]
		})
		s.extensionsByID[id] = exts
	}

	for _, r := range ds.DialplanRules {
		if err := s.requireTenant("dialplan rule", r.ID, r.TenantID); err != nil {
			return nil, err
		}
		r.Actions = append([]models.DialplanAction(nil), r.Actions...)
		sort.SliceStable(r.Actions, func(i, j int) bool { return r.Actions[i].Position < r.Actions[j].Position })
		s.rules[r.TenantID] = append(s.rules[r.TenantID], r)
	}
	for tenantID, rules := range s.rules {
		sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority < rules[j].Priority })
		s.rules[tenantID] = rules
	}

	for _, r := range ds.InboundRoutes {
		if err := s.requireTenant("inbound route", r.ID, r.TenantID); err != nil {
			return nil, err
		}
		s.inbound[r.TenantID] = append(s.inbound[r.TenantID], r)
		s.inboundByDID[r.DIDNumber] = append(s.inboundByDID[r.DIDNumber], r)
	}

	for _, r := range ds.OutboundRoutes {
		if err := s.requireTenant("outbound route", r.ID, r.TenantID); err != nil {
			return nil, err
		}
		if r.StripDigits < 0 {
			return nil, fmt.Errorf("%w: outbound route %q has negative strip_digits", ErrInvalidDataset, r.ID)
		}
		s.outbound[r.TenantID] = append(s.outbound[r.TenantID], r)
	}

	for _, g := range ds.Gateways {
		if g.TenantID != "" {
			if err := s.requireTenant("gateway", g.ID, g.TenantID); err != nil {
				return nil, err
			}
		}
		if _, dup := s.gateways[g.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate gateway id %q", ErrInvalidDataset, g.ID)
		}
		s.gateways[g.ID] = g
	}

	for _, m := range ds.IvrMenus {
		if err := s.requireTenant("ivr menu", m.ID, m.TenantID); err != nil {
			return nil, err
		}
		m.Options = append([]models.IvrMenuOption(nil), m.Options...)
		seen := make(map[string]bool, len(m.Options))
		for _, o := range m.Options {
			if seen[o.Digit] {
				return nil, fmt.Errorf("%w: ivr menu %q has duplicate digit %q", ErrInvalidDataset, m.ID, o.Digit)
			}
			seen[o.Digit] = true
		}
		sort.SliceStable(m.Options, func(i, j int) bool { return m.Options[i].Position < m.Options[j].Position })
		s.menus[extKey{m.TenantID, m.ID}] = m
	}

	for _, c := range ds.CallerIDs {
		if err := s.requireTenant("caller id", c.ID, c.TenantID); err != nil {
			return nil, err
		}
		s.callerIDs[c.TenantID] = append(s.callerIDs[c.TenantID], c)
	}

	return s, nil
}

func (s *Snapshot) requireTenant(kind, id, tenantID string) error {
	if _, ok := s.tenantByID[tenantID]; !ok {
		return fmt.Errorf("%w: %s %q references unknown tenant %q", ErrInvalidDataset, kind, id, tenantID)
	}
	return nil
}

func normalizeDomain(d string) string {
	return strings.ToLower(strings.TrimSpace(d))
}

func (s *Snapshot) Generation() uint64 { return s.generation }

func (s *Snapshot) Tenants() []models.Tenant { return s.tenants }

func (s *Snapshot) TenantByID(id string) (models.Tenant, bool) {
	i, ok := s.tenantByID[id]
	if !ok {
		return models.Tenant{}, false
	}
	return s.tenants[i], true
}

// TenantByDomain matches the SIP domain case-insensitively.
func (s *Snapshot) TenantByDomain(domain string) (models.Tenant, bool) {
	i, ok := s.tenantByDomain[normalizeDomain(domain)]
	if !ok {
		return models.Tenant{}, false
	}
	return s.tenants[i], true
}

func (s *Snapshot) Extension(tenantID, id string) (models.Extension, bool) {
	e, ok := s.extensions[extKey{tenantID, id}]
	return e, ok
}

// ExtensionsByID returns every extension with the given id across all
// tenants, in tenant deployment order.
func (s *Snapshot) ExtensionsByID(id string) []models.Extension { return s.extensionsByID[id] }

// DialplanRules returns the tenant's rules sorted by ascending priority.
func (s *Snapshot) DialplanRules(tenantID string) []models.DialplanRule { return s.rules[tenantID] }

func (s *Snapshot) InboundRoutes(tenantID string) []models.InboundRoute { return s.inbound[tenantID] }

func (s *Snapshot) InboundRoutesByDID(did string) []models.InboundRoute { return s.inboundByDID[did] }

func (s *Snapshot) OutboundRoutes(tenantID string) []models.OutboundRoute { return s.outbound[tenantID] }

func (s *Snapshot) Gateway(id string) (models.Gateway, bool) {
	g, ok := s.gateways[id]
	return g, ok
}

func (s *Snapshot) IvrMenu(tenantID, id string) (models.IvrMenu, bool) {
	m, ok := s.menus[extKey{tenantID, id}]
	return m, ok
}

func (s *Snapshot) CallerIDs(tenantID string) []models.CallerID { return s.callerIDs[tenantID] }
