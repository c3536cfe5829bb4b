package reconcile

import (
	"context"
	"net/http"

	"github.com/platinummonkey/grafana-sync/pkg/grafana"
	"github.com/platinummonkey/grafana-sync/pkg/httputil"
	"github.com/sirupsen/logrus"
)

// Admin enrollment results
const (
	EnrollmentAdded    = "added"
	EnrollmentConflict = "conflict"
	EnrollmentFailed   = "failed"
)

// ProvisionResult summarizes one datasource pass
type ProvisionResult struct {
	Orgs     int
	Created  int
	Existing int
	Failed   int
}

// DatasourceProvisioner makes sure every org carries the templated datasources
type DatasourceProvisioner struct {
	dashboard OrgProvisioner
	templates []DatasourceTemplate
	signer    TokenSigner
	admins    *AdminCache
	account   string
	logger    logrus.FieldLogger
	recorder  Recorder
}

// NewDatasourceProvisioner creates a provisioner. account is the login the Grafana
// client authenticates with, enrolled as Admin in every org.
func NewDatasourceProvisioner(dashboard OrgProvisioner, templates []DatasourceTemplate, signer TokenSigner, admins *AdminCache, account string, logger logrus.FieldLogger, recorder Recorder) *DatasourceProvisioner {
	if admins == nil {
		admins = NewAdminCache(0)
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &DatasourceProvisioner{
		dashboard: dashboard,
		templates: templates,
		signer:    signer,
		admins:    admins,
		account:   account,
		logger:    logger,
		recorder:  recorder,
	}
}

// Provision runs one datasource pass. Failures are logged per org or datasource
// and never stop the pass.
func (p *DatasourceProvisioner) Provision(ctx context.Context) ProvisionResult {
	var result ProvisionResult

	orgs, err := p.dashboard.ListOrgs(ctx)
	if err != nil {
		p.logger.WithError(err).Error("Failed to list grafana orgs")
		return result
	}

	for _, org := range orgs {
		if ctx.Err() != nil {
			return result
		}
		result.Orgs++
		p.provisionOrg(ctx, org, &result)
	}
	return result
}

func (p *DatasourceProvisioner) provisionOrg(ctx context.Context, org grafana.Org, result *ProvisionResult) {
	log := p.logger.WithFields(logrus.Fields{
		"org_id":   org.ID,
		"org_name": org.Name,
	})

	p.ensureAdmin(ctx, log, org)

	active, err := p.dashboard.SwitchActiveOrg(ctx, org.ID)
	if err != nil {
		log.WithError(err).Warn("Failed to switch active org")
		p.admins.Forget(org.ID)
		result.Failed += len(p.templates)
		return
	}

	existing, err := p.dashboard.ListDatasources(ctx, active)
	if err != nil {
		log.WithError(err).Warn("Failed to list datasources")
		result.Failed += len(p.templates)
		return
	}

	names := make(map[string]struct{}, len(existing))
	for _, ds := range existing {
		names[ds.Name] = struct{}{}
	}

	for _, tmpl := range p.templates {
		if _, ok := names[tmpl.Name]; ok {
			result.Existing++
			continue
		}

		dsLog := log.WithField("datasource", tmpl.Name)
		token, err := p.signer.SignStatsToken(org.Name)
		if err != nil {
			dsLog.WithError(err).Error("Failed to sign datasource password")
			p.recorder.DatasourceFailed()
			result.Failed++
			continue
		}

		resp, err := p.dashboard.CreateDatasource(ctx, active, tmpl.Request(org, token))
		if err != nil {
			dsLog.WithError(err).Error("Failed to create datasource")
			p.recorder.DatasourceFailed()
			result.Failed++
			continue
		}

		dsLog.WithField("datasource_id", resp.ID).Info("Created datasource")
		p.recorder.DatasourceCreated()
		result.Created++
	}
}

// ensureAdmin enrolls the service account as Admin unless the cache already knows
// it is. Failures are expected when the account is already a member.
func (p *DatasourceProvisioner) ensureAdmin(ctx context.Context, log logrus.FieldLogger, org grafana.Org) {
	if p.admins.IsAdmin(org.ID) {
		return
	}

	err := p.dashboard.AddOrgUser(ctx, org.ID, p.account, grafana.RoleAdmin)
	if err == nil {
		p.admins.MarkAdmin(org.ID)
		p.recorder.AdminEnrollment(EnrollmentAdded)
		log.Info("Enrolled service account as org admin")
		return
	}

	if httpErr, ok := httputil.AsError(err); ok && httpErr.StatusCode == http.StatusConflict {
		p.recorder.AdminEnrollment(EnrollmentConflict)
		log.Debug("Service account already a member of org")
		return
	}

	p.recorder.AdminEnrollment(EnrollmentFailed)
	log.WithError(err).Debug("Failed to enroll service account as org admin")
}
