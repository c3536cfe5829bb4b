// Package grafana is a thin basic-auth client for the Grafana HTTP API.
//
// # Overview
//
// The client covers the calls the sync needs: org, user and datasource listing, user
// and org updates, org membership and datasource creation.
//
// # Active Org
//
// Grafana scopes datasource endpoints to the caller's active org. SwitchActiveOrg
// returns an ActiveOrg which ListDatasources and CreateDatasource require, so a
// datasource call cannot be made without first selecting its org:
//
//	active, err := client.SwitchActiveOrg(ctx, org.ID)
//	existing, err := client.ListDatasources(ctx, active)
//	_, err = client.CreateDatasource(ctx, active, req)
//
// Datasource calls also send X-Grafana-Org-Id so the scope is explicit on the wire.
package grafana
