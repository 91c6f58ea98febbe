package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hailam/tablutplay/internal/rules"
)

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// statusFor maps an error kind to an HTTP status.
func statusFor(kind rules.Kind) int {
	switch kind {
	case rules.KindGameNotFound:
		return http.StatusNotFound
	case rules.KindVersionConflict, rules.KindConcurrentUpdate, rules.KindFirstSaveNotVersion0:
		return http.StatusConflict
	case rules.KindInvalidPayload:
		return http.StatusBadRequest
	case rules.KindEmptySource, rules.KindPieceNotOwned, rules.KindInvalidPath,
		rules.KindGameOver, rules.KindInvalidTurn, rules.KindIllegalMove,
		rules.KindMustBreakRepetition, rules.KindBotNotOnTurn, rules.KindBotNoLegalMoves:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError reports err with the status of its kind. Errors without a kind
// are logged and reported as internal_error without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := rules.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		loggerFrom(r, s.logger).Error().Err(err).Str("ev", "internal_error").Msg("request failed")
		writeJSON(w, status, errorResponse{Error: "internal_error"})
		return
	}
	resp := errorResponse{Error: string(kind)}
	var e *rules.Error
	if errors.As(err, &e) {
		resp.Detail = e.Detail
	}
	writeJSON(w, status, resp)
}
