// The reference check-in backend. Serves the REST surface the mobile and
// CLI clients talk to; state lives in memory.
package main

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/kaimanfr/checkin/internal/api"
	"github.com/kaimanfr/checkin/internal/logging"
	"github.com/kaimanfr/checkin/internal/middleware"
	"github.com/kaimanfr/checkin/internal/utils"
)

func main() {
	_ = godotenv.Load()
	log := logging.New("server", os.Getenv("LOG_LEVEL"))

	addr := utils.SafeEnv("CHECKIN_ADDR", ":8080")

	mux := http.NewServeMux()
	api.NewRouter(log).Register(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "name": "checkin API"})
	})

	handler := middleware.WithAuth(mux)

	log.WithField("addr", addr).Info("checkin server listening")
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.WithError(err).Fatal("server error")
	}
}
