package auth

import (
	"fmt"
	"nomad-cms/internal/logger"

	"github.com/casbin/casbin/v2"
)

// DefaultPolicies are the baseline rules of the admin shell. The editor role
// inherits everything anonymous users may do.
var DefaultPolicies = [][]string{
	{"anonymous", "/", "GET"},
	{"anonymous", "/auth/login", "GET"},
	{"anonymous", "/auth/callback", "GET"},
	{"anonymous", "/auth/logout", "GET"},

	{"editor", "/admin/*", "*"},
}

// SeedDefaultPolicies ensures that the application has a baseline set of authorization rules.
// It checks if each default policy exists before adding it, making the operation idempotent
// and safe to run on every application start. Every subject in admins is
// granted the editor role.
func SeedDefaultPolicies(e casbin.IEnforcer, admins []string, log logger.Logger) {
	log.Info("Seeding default authorization policies...")

	for _, p := range DefaultPolicies {
		if has, _ := e.HasPolicy(p); !has {
			if _, err := e.AddPolicy(p); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add policy %v", p))
			}
		}
	}

	if has, _ := e.HasRoleForUser("editor", "anonymous"); !has {
		if _, err := e.AddRoleForUser("editor", "anonymous"); err != nil {
			log.Error(err, "Failed to add role 'editor' -> 'anonymous'")
		}
	}

	for _, admin := range admins {
		if has, _ := e.HasRoleForUser(admin, "editor"); !has {
			if _, err := e.AddRoleForUser(admin, "editor"); err != nil {
				log.Error(err, fmt.Sprintf("Failed to grant editor role to %s", admin))
			}
		}
	}
	log.Info("Policy seeding complete.")
}
