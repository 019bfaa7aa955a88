package middleware

import (
	"net/http"
	"nomad-cms/internal/session"

	"github.com/casbin/casbin/v2"
)

// SubjectKey is the session key holding the logged-in user's subject.
const SubjectKey = "user_subject"

// Authorizer creates a new middleware for authorization.
// It checks the user's permissions using Casbin based on session data.
func Authorizer(e casbin.IEnforcer, sm session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := sm.GetString(r.Context(), SubjectKey)
			if subject == "" {
				subject = Anonymous
			}

			roles, _ := e.GetImplicitRolesForUser(subject)
			r = r.WithContext(SetUserInfo(r.Context(), &UserInfo{Subject: subject, Roles: roles}))

			allowed, err := e.Enforce(subject, r.URL.Path, r.Method)
			if err != nil {
				http.Error(w, "Authorization error", http.StatusInternalServerError)
				return
			}

			if !allowed {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
