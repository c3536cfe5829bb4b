package grafana

import "encoding/json"

// Org is a Grafana organization
type Org struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// User is an entry of the server-admin user listing
type User struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Login   string `json:"login"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

// Datasource is an entry of the datasource listing
type Datasource struct {
	ID    int64  `json:"id"`
	UID   string `json:"uid,omitempty"`
	OrgID int64  `json:"orgId"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	URL   string `json:"url"`
}

// CreateDatasourceRequest is the body of POST /api/datasources
type CreateDatasourceRequest struct {
	Name              string            `json:"name"`
	Type              string            `json:"type"`
	URL               string            `json:"url"`
	Access            string            `json:"access"`
	ReadOnly          bool              `json:"readOnly"`
	IsDefault         bool              `json:"isDefault"`
	JSONData          json.RawMessage   `json:"jsonData,omitempty"`
	BasicAuth         bool              `json:"basicAuth"`
	BasicAuthUser     string            `json:"basicAuthUser,omitempty"`
	BasicAuthPassword string            `json:"basicAuthPassword,omitempty"`
	SecureJSONData    map[string]string `json:"secureJsonData,omitempty"`
}

// CreateDatasourceResponse is returned by POST /api/datasources
type CreateDatasourceResponse struct {
	ID         int64      `json:"id"`
	Message    string     `json:"message"`
	Name       string     `json:"name"`
	Datasource Datasource `json:"datasource"`
}

// UserUpdate is the body of PUT /api/users/{id}
type UserUpdate struct {
	Name  string `json:"name"`
	Login string `json:"login"`
	Email string `json:"email"`
}

// OrgUpdate is the body of PUT /api/orgs/{id}
type OrgUpdate struct {
	Name string `json:"name"`
}

// AddOrgUserRequest is the body of POST /api/orgs/{id}/users
type AddOrgUserRequest struct {
	LoginOrEmail string `json:"loginOrEmail"`
	Role         string `json:"role"`
}

// Org roles
const (
	RoleAdmin  = "Admin"
	RoleEditor = "Editor"
	RoleViewer = "Viewer"
)

// ActiveOrg proves the caller's active org was switched to ID
type ActiveOrg struct {
	id int64
}

// ID returns the active org id
func (a ActiveOrg) ID() int64 {
	return a.id
}
