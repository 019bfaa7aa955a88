package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"nomad-cms/internal/logger"
	"nomad-cms/internal/view"
)

// AppError represents a custom error type for the application.
type AppError struct {
	Error   error
	Message string
	Code    int
	// Details is sent to API clients alongside the message, e.g. the
	// validation issues of a refused publish.
	Details interface{}
}

// AppHandler is a custom handler function type that returns an AppError.
type AppHandler func(http.ResponseWriter, *http.Request) *AppError

// Error is a middleware that converts handler errors into user-friendly error pages.
func Error(log logger.Logger, v *view.View) func(AppHandler) http.Handler {
	return func(next AppHandler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error(panicError(rec), "Panic recovered")
					renderErrorPage(log, v, w, http.StatusInternalServerError, "Internal Server Error")
				}
			}()

			if err := next(w, r); err != nil {
				logAppError(log, r, err)
				renderErrorPage(log, v, w, err.Code, err.Message)
			}
		})
	}
}

// JSONError is the API counterpart of Error: handler errors are written as
// a JSON object {"error": message, "details": ...}.
func JSONError(log logger.Logger) func(AppHandler) http.Handler {
	return func(next AppHandler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error(panicError(rec), "Panic recovered")
					WriteJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "Internal Server Error"})
				}
			}()

			if err := next(w, r); err != nil {
				logAppError(log, r, err)
				body := map[string]interface{}{"error": err.Message}
				if err.Details != nil {
					body["details"] = err.Details
				}
				WriteJSON(w, err.Code, body)
			}
		})
	}
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func logAppError(log logger.Logger, r *http.Request, err *AppError) {
	l := log.With(map[string]interface{}{"method": r.Method, "path": r.URL.Path, "status": err.Code})
	if err.Code >= http.StatusInternalServerError {
		l.Error(err.Error, err.Message)
		return
	}
	l.Warn(fmt.Sprintf("%s: %v", err.Message, err.Error))
}

func renderErrorPage(log logger.Logger, v *view.View, w http.ResponseWriter, code int, text string) {
	data := map[string]interface{}{
		"StatusCode": code,
		"StatusText": text,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := v.Render(w, "error.html", data); err != nil {
		log.Error(err, "Failed to render error page")
	}
}

func panicError(rec interface{}) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return fmt.Errorf("%v", rec)
}
