package auth

import (
	"errors"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/util"
	sqlxadapter "github.com/memwey/casbin-sqlx-adapter"
)

// ErrNoIDToken is returned when the token response carries no ID token.
var ErrNoIDToken = errors.New("auth: no id_token in token response")

// Model is the RBAC model of the admin shell. Paths are matched with
// keyMatch2 and an action of "*" allows every method.
const Model = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

// LoadModel reads the model at modelPath, or Model when modelPath is empty.
func LoadModel(modelPath string) (model.Model, error) {
	if modelPath == "" {
		return model.NewModelFromString(Model)
	}
	return model.NewModelFromFile(modelPath)
}

// NewEnforcer creates and configures a new Casbin enforcer.
// Policies are stored in the casbin_rule table of the database behind dsn.
func NewEnforcer(driverName, dsn, modelPath string) (*casbin.Enforcer, error) {
	opts := &sqlxadapter.AdapterOptions{
		DriverName:     driverName,
		DataSourceName: dsn,
		TableName:      "casbin_rule",
	}
	adapter := sqlxadapter.NewAdapterFromOptions(opts)

	m, err := LoadModel(modelPath)
	if err != nil {
		return nil, err
	}

	enforcer, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}

	// keyMatch2 lets "/admin/*" match every admin path.
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)

	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}

	return enforcer, nil
}
