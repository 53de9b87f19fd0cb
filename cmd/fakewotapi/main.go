// Command fakewotapi serves canned World of Tanks API responses for running
// the notifier locally without an application id.
package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type server struct {
	clanID      int64
	errorStatus bool
	started     time.Time
	logger      zerolog.Logger
}

func main() {
	addr := flag.String("addr", ":8081", "Listen address")
	clanID := flag.Int64("clan", 1000000001, "Clan id the fake battles belong to")
	errorStatus := flag.Bool("error-status", false, "Answer every request with status \"error\"")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	s := &server{clanID: *clanID, errorStatus: *errorStatus, started: time.Now(), logger: logger}

	logger.Info().Str("addr", *addr).Msg("Fake WoT API listening")
	if err := http.ListenAndServe(*addr, s.router()); err != nil {
		logger.Fatal().Err(err).Msg("Server stopped")
	}
}

func (s *server) router() *mux.Router {
	router := mux.NewRouter()
	api := router.PathPrefix("/wot").Subrouter()
	api.Use(s.requireApplicationID)
	api.HandleFunc("/globalmap/clanbattles/", s.handleClanBattles).Methods("GET")
	api.HandleFunc("/globalmap/provinces/", s.handleProvinces).Methods("GET")
	api.HandleFunc("/globalmap/claninfo/", s.handleClanInfo).Methods("GET")
	api.HandleFunc("/stronghold/plannedbattles/", s.handlePlannedBattles).Methods("GET")
	return router
}

func (s *server) requireApplicationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Info().Str("path", r.URL.Path).Str("query", r.URL.RawQuery).Msg("Request")
		if s.errorStatus || r.URL.Query().Get("application_id") == "" {
			writeJSON(w, map[string]any{
				"status": "error",
				"error":  map[string]any{"code": 407, "message": "INVALID_APPLICATION_ID", "field": "application_id"},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ok(w http.ResponseWriter, count int, data any) {
	writeJSON(w, map[string]any{"status": "ok", "meta": map[string]int{"count": count}, "data": data})
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

// Battles start relative to the server start so a fresh notifier always
// sees two upcoming battles close enough to count as simultaneous.
func (s *server) handleClanBattles(w http.ResponseWriter, r *http.Request) {
	start := s.started.Add(30 * time.Minute).Unix()
	ok(w, 2, []map[string]any{
		{
			"time": start, "type": "attack", "attack_type": "tournament", "competitor_id": 1000012345,
			"province_id": "herzele", "province_name": "Herzele", "front_id": "season_bg", "arena_name": "Himmelsdorf",
		},
		{
			"time": start + 120, "type": "defence", "attack_type": "", "competitor_id": 1000054321,
			"province_id": "pasc", "province_name": "Pasc", "front_id": "season_bg", "arena_name": "Prokhorovka",
		},
	})
}

func (s *server) handleProvinces(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("province_id")
	ok(w, 1, []map[string]any{{
		"province_id": id, "province_name": id, "arena_name": "Himmelsdorf", "server": "NA1",
		"round_number": 2, "attackers": []int64{1, 2, 3, 4, 5}, "front_id": r.URL.Query().Get("front_id"),
	}})
}

func (s *server) handleClanInfo(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("clan_id")
	clanID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		ok(w, 0, map[string]any{})
		return
	}
	suffix := id
	if len(id) > 2 {
		suffix = id[len(id)-2:]
	}
	ok(w, 1, map[string]any{id: map[string]any{"clan_id": clanID, "tag": "FAKE" + suffix, "name": "Fake clan " + id}})
}

func (s *server) handlePlannedBattles(w http.ResponseWriter, r *http.Request) {
	id := strconv.FormatInt(s.clanID, 10)
	ok(w, 1, map[string]any{id: []map[string]any{{
		"battle_planned_date": s.started.Add(2 * time.Hour).Unix(),
		"battle_type":         "attack",
		"attacker_clan_tag":   "RDDT",
		"defender_clan_tag":   "FAKE",
	}}})
}
