package respond

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/NhaLeTruc/todo-sync/internal/model"
)

func JSON(w http.ResponseWriter, r *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

// Error writes the APIError envelope the clients decode.
func Error(w http.ResponseWriter, r *http.Request, code int, message string) {
	JSON(w, r, code, model.APIError{
		Timestamp: time.Now().UTC(),
		Status:    code,
		Error:     http.StatusText(code),
		Message:   message,
		Path:      r.URL.Path,
	})
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
