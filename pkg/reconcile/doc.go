// Package reconcile keeps Grafana users, orgs and datasources in line with Auth0.
//
// # Overview
//
// A Driver runs cycles until its context is cancelled. Each cycle runs two passes in
// order:
//
//  1. UserReconciler repairs Grafana users whose email is missing, not email shaped,
//     or equal to their login, using the first matching Auth0 user record.
//  2. DatasourceProvisioner enrolls the service account as Admin in every org and
//     creates each templated datasource that the org does not have yet.
//
// When Auth0 rejects the held token during the user pass the driver re-authenticates
// and starts the next cycle straight away, skipping the datasource pass.
//
// # Usage
//
//	users := reconcile.NewUserReconciler(grafanaClient, reconcile.UserReconcilerConfig{
//		RateLimitBackoff: time.Second,
//		RateLimitRetries: 5,
//	}, logger, metrics)
//	datasources := reconcile.NewDatasourceProvisioner(grafanaClient, reconcile.DefaultTemplates(),
//		signer, reconcile.NewAdminCache(0), grafanaClient.Username(), logger, metrics)
//	driver := reconcile.NewDriver(authenticator, users, datasources, reconcile.DriverConfig{
//		Interval: 10 * time.Second,
//	}, logger, metrics)
//	err := driver.Run(ctx)
//
// Run only returns a non-nil error for failures that should stop the process.
package reconcile
