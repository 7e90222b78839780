package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/AngelCh415/roi-insights/internal/apperr"
	"github.com/AngelCh415/roi-insights/internal/utils"
)

type errorBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Details    any    `json:"details,omitempty"`
	Stack      string `json:"stack,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}

// errorWriter renders every failure as the API error envelope. Anything that
// is not an *apperr.Error becomes a 500 with a generic message.
type errorWriter struct {
	log *slog.Logger
	dev bool
}

func (ew errorWriter) write(w http.ResponseWriter, r *http.Request, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		ae = apperr.Internal(err)
	}
	body := errorBody{
		Error:      ae.Name,
		Message:    ae.Message,
		StatusCode: ae.Status,
		Details:    ae.Details,
	}
	if ew.dev {
		body.Stack = err.Error() + "\n" + string(debug.Stack())
	}
	if ae.Status >= http.StatusInternalServerError {
		ew.log.Error("request failed",
			slog.String("rid", utils.RID(r.Context())),
			slog.String("route", r.URL.Path),
			slog.String("error", ae.Name),
			slog.String("err", err.Error()))
	}
	writeJSON(w, ae.Status, body)
}
