package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"voip-routing/internal/models"
)

// Querier is the subset of pgxpool.Pool used by PGLoader.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGLoader reads the CRUD layer's voip schema. Every table is read in full;
// the engine never queries the database on the resolution path.
type PGLoader struct {
	DB Querier
}

func (l PGLoader) Load(ctx context.Context) (*Dataset, error) {
	var (
		ds  Dataset
		err error
	)

	ds.Tenants, err = query(ctx, l.DB, "tenants", `
        SELECT id, name, domain,
               COALESCE(internal_prefix, ''), COALESCE(voicemail_prefix, ''),
               COALESCE(pstn_gateway, ''), COALESCE(e164_enabled::text, ''),
               COALESCE(routing_hook, ''), COALESCE(max_extensions, 0)
        FROM voip.tenants
        WHERE is_active = TRUE
        ORDER BY position, id
    `, scanTenant)
	if err != nil {
		return nil, err
	}

	ds.Extensions, err = query(ctx, l.DB, "extensions", `
        SELECT id, tenant_id, sip_password, COALESCE(display_name, '')
        FROM voip.extensions
        WHERE is_active = TRUE
        ORDER BY tenant_id, id
    `, func(row pgx.CollectableRow) (models.Extension, error) {
		var e models.Extension
		err := row.Scan(&e.ID, &e.TenantID, &e.Password, &e.DisplayName)
		return e, err
	})
	if err != nil {
		return nil, err
	}

	ds.Gateways, err = query(ctx, l.DB, "gateways", `
        SELECT id, COALESCE(tenant_id, ''), name, COALESCE(profile, 'external'),
               COALESCE(proxy, ''), COALESCE(username, ''), COALESCE(password, ''),
               COALESCE(caller_id_number, ''), COALESCE(caller_id_name, ''),
               enabled, register
        FROM voip.gateways
        ORDER BY id
    `, func(row pgx.CollectableRow) (models.Gateway, error) {
		var g models.Gateway
		err := row.Scan(&g.ID, &g.TenantID, &g.Name, &g.Profile, &g.Proxy, &g.Username, &g.Password,
			&g.CallerIDNumber, &g.CallerIDName, &g.Enabled, &g.Register)
		return g, err
	})
	if err != nil {
		return nil, err
	}

	ds.DialplanRules, err = query(ctx, l.DB, "dialplan rules", `
        SELECT id, tenant_id, COALESCE(name, ''), match_type::text, pattern,
               priority, enabled, stop_on_match, inherit_default, record
        FROM voip.dialplan_rules
        ORDER BY tenant_id, priority, id
    `, func(row pgx.CollectableRow) (models.DialplanRule, error) {
		var (
			r         models.DialplanRule
			matchType string
		)
		err := row.Scan(&r.ID, &r.TenantID, &r.Name, &matchType, &r.Pattern,
			&r.Priority, &r.Enabled, &r.StopOnMatch, &r.InheritDefault, &r.Record)
		r.MatchType = models.MatchType(matchType)
		return r, err
	})
	if err != nil {
		return nil, err
	}

	type ruleAction struct {
		ruleID string
		action models.DialplanAction
	}
	actions, err := query(ctx, l.DB, "dialplan actions", `
        SELECT rule_id, position, application, COALESCE(data, '')
        FROM voip.dialplan_actions
        ORDER BY rule_id, position
    `, func(row pgx.CollectableRow) (ruleAction, error) {
		var a ruleAction
		err := row.Scan(&a.ruleID, &a.action.Position, &a.action.Application, &a.action.Data)
		return a, err
	})
	if err != nil {
		return nil, err
	}
	ruleIdx := make(map[string]int, len(ds.DialplanRules))
	for i, r := range ds.DialplanRules {
		ruleIdx[r.ID] = i
	}
	for _, a := range actions {
		if i, ok := ruleIdx[a.ruleID]; ok {
			ds.DialplanRules[i].Actions = append(ds.DialplanRules[i].Actions, a.action)
		}
	}

	ds.InboundRoutes, err = query(ctx, l.DB, "inbound routes", `
        SELECT id, tenant_id, did_number, destination_type::text, destination_value,
               priority, enabled
        FROM voip.inbound_routes
        ORDER BY tenant_id, priority, id
    `, func(row pgx.CollectableRow) (models.InboundRoute, error) {
		var (
			r        models.InboundRoute
			destType string
		)
		err := row.Scan(&r.ID, &r.TenantID, &r.DIDNumber, &destType, &r.DestinationValue, &r.Priority, &r.Enabled)
		r.DestinationType = models.DestinationType(destType)
		return r, err
	})
	if err != nil {
		return nil, err
	}

	ds.OutboundRoutes, err = query(ctx, l.DB, "outbound routes", `
        SELECT id, tenant_id, COALESCE(match_prefix, ''), COALESCE(gateway_id, ''),
               priority, strip_digits, COALESCE(prepend, ''), enabled
        FROM voip.outbound_routes
        ORDER BY tenant_id, priority, id
    `, func(row pgx.CollectableRow) (models.OutboundRoute, error) {
		var r models.OutboundRoute
		err := row.Scan(&r.ID, &r.TenantID, &r.MatchPrefix, &r.GatewayID, &r.Priority, &r.StripDigits, &r.Prepend, &r.Enabled)
		return r, err
	})
	if err != nil {
		return nil, err
	}

	ds.IvrMenus, err = query(ctx, l.DB, "ivr menus", `
        SELECT id, tenant_id, name, COALESCE(greeting, '')
        FROM voip.ivr_menus
        ORDER BY tenant_id, id
    `, func(row pgx.CollectableRow) (models.IvrMenu, error) {
		var m models.IvrMenu
		err := row.Scan(&m.ID, &m.TenantID, &m.Name, &m.Greeting)
		return m, err
	})
	if err != nil {
		return nil, err
	}

	options, err := query(ctx, l.DB, "ivr menu options", `
        SELECT menu_id, digit, action_type::text, COALESCE(action_value, ''), position
        FROM voip.ivr_menu_options
        ORDER BY menu_id, position
    `, func(row pgx.CollectableRow) (models.IvrMenuOption, error) {
		var (
			o          models.IvrMenuOption
			actionType string
		)
		err := row.Scan(&o.MenuID, &o.Digit, &actionType, &o.ActionValue, &o.Position)
		o.ActionType = models.DestinationType(actionType)
		return o, err
	})
	if err != nil {
		return nil, err
	}
	menuIdx := make(map[string]int, len(ds.IvrMenus))
	for i, m := range ds.IvrMenus {
		menuIdx[m.ID] = i
	}
	for _, o := range options {
		if i, ok := menuIdx[o.MenuID]; ok {
			ds.IvrMenus[i].Options = append(ds.IvrMenus[i].Options, o)
		}
	}

	ds.CallerIDs, err = query(ctx, l.DB, "caller ids", `
        SELECT id, tenant_id, COALESCE(gateway_id, ''), number, COALESCE(name, ''),
               weight, active
        FROM voip.outbound_caller_ids
        ORDER BY tenant_id, id
    `, func(row pgx.CollectableRow) (models.CallerID, error) {
		var c models.CallerID
		err := row.Scan(&c.ID, &c.TenantID, &c.GatewayID, &c.Number, &c.Name, &c.Weight, &c.Active)
		return c, err
	})
	if err != nil {
		return nil, err
	}

	return &ds, nil
}

func scanTenant(row pgx.CollectableRow) (models.Tenant, error) {
	var (
		t    models.Tenant
		e164 string
	)
	err := row.Scan(&t.ID, &t.Name, &t.Domain,
		&t.Routing.InternalPrefix, &t.Routing.VoicemailPrefix,
		&t.Routing.PSTNGateway, &e164, &t.Routing.Hook, &t.MaxExtensions)
	if err != nil {
		return t, err
	}
	if e164 != "" {
		v, perr := strconv.ParseBool(e164)
		if perr != nil {
			return t, fmt.Errorf("tenant %s: e164_enabled %q: %w", t.ID, e164, perr)
		}
		t.Routing.E164Enabled = &v
	}
	return t, nil
}

func query[T any](ctx context.Context, db Querier, what, sql string, fn pgx.RowToFunc[T]) ([]T, error) {
	rows, err := db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", what, err)
	}
	out, err := pgx.CollectRows(rows, fn)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", what, err)
	}
	return out, nil
}
