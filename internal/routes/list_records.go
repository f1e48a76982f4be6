package routes

import (
	"fmt"
	"net/http"
	"screenshot-tests/internal/metadata"
	"screenshot-tests/internal/myhttp"
	"screenshot-tests/internal/storage"
)

func ListRecords(recorded storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := metadata.Load(r.Context(), recorded)
		if err != nil {
			myhttp.Logger(r.Context()).Error(fmt.Sprintf("failed to load records: %s", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		if group := r.URL.Query().Get("group"); group != "" {
			filtered := []metadata.Record{}
			for _, record := range records {
				if record.Group == group {
					filtered = append(filtered, record)
				}
			}
			records = filtered
		}

		writeJSON(w, r, records)
	}
}
