package reconcile

import (
	"encoding/json"
	"strings"

	"github.com/platinummonkey/grafana-sync/pkg/grafana"
)

// DatasourceTemplate describes a datasource every org should have
type DatasourceTemplate struct {
	Name      string
	Type      string
	URL       string
	Access    string
	ReadOnly  bool
	IsDefault bool
	JSONData  json.RawMessage
}

// DefaultTemplates returns the ScreepsPlus Graphite datasource
func DefaultTemplates() []DatasourceTemplate {
	return []DatasourceTemplate{
		{
			Name:      "ScreepsPlus-Graphite",
			Type:      "graphite",
			URL:       "https://carbon.ags131.com/",
			Access:    "direct",
			ReadOnly:  true,
			IsDefault: true,
			JSONData:  json.RawMessage(`{"graphiteVersion":"1.1"}`),
		},
	}
}

// Request builds the creation payload for org. The datasource authenticates to the
// backend as the lowercased org name with password.
func (t DatasourceTemplate) Request(org grafana.Org, password string) grafana.CreateDatasourceRequest {
	jsonData := make(json.RawMessage, len(t.JSONData))
	copy(jsonData, t.JSONData)

	return grafana.CreateDatasourceRequest{
		Name:              t.Name,
		Type:              t.Type,
		URL:               t.URL,
		Access:            t.Access,
		ReadOnly:          t.ReadOnly,
		IsDefault:         t.IsDefault,
		JSONData:          jsonData,
		BasicAuth:         true,
		BasicAuthUser:     strings.ToLower(org.Name),
		BasicAuthPassword: password,
		SecureJSONData: map[string]string{
			"basicAuthPassword": password,
		},
	}
}
