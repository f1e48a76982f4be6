package routes

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"screenshot-tests/internal/myhttp"
	"screenshot-tests/internal/storage"
	"strings"
)

type ArtifactsResponse struct {
	Expected   string `json:"expected,omitempty"`
	Actual     string `json:"actual,omitempty"`
	DiffRed    string `json:"diffRed,omitempty"`
	DiffBorder string `json:"diffBorder,omitempty"`
	DumpDiff   string `json:"dumpDiff,omitempty"`
}

var artifactSuffixes = []string{"_expected.png", "_actual.png", "_diff_red.png", "_diff_border.png", "_dump.diff"}

// ListArtifacts returns the keys that have failure artifacts.
func ListArtifacts(failures storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		objects, err := storage.List(r.Context(), failures)
		if err != nil {
			myhttp.Logger(r.Context()).Error(fmt.Sprintf("failed to list artifacts: %s", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		keys := []string{}
		seen := map[string]struct{}{}
		for _, object := range objects {
			for _, suffix := range artifactSuffixes {
				key, ok := strings.CutSuffix(object, suffix)
				if !ok {
					continue
				}
				if _, ok := seen[key]; !ok {
					seen[key] = struct{}{}
					keys = append(keys, key)
				}
				break
			}
		}

		writeJSON(w, r, keys)
	}
}

// GetArtifacts returns the artifacts of one key, base64 encoded.
func GetArtifacts(failures storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")

		var response ArtifactsResponse
		fields := []*string{&response.Expected, &response.Actual, &response.DiffRed, &response.DiffBorder, &response.DumpDiff}
		found := false
		for i, suffix := range artifactSuffixes {
			data, err := failures.Get(r.Context(), key+suffix)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					continue
				}
				myhttp.Logger(r.Context()).Error(fmt.Sprintf("failed to get artifact: %s", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			*fields[i] = base64.StdEncoding.EncodeToString(data)
			found = true
		}
		if !found {
			http.NotFound(w, r)
			return
		}

		writeJSON(w, r, response)
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		myhttp.Logger(r.Context()).Error(fmt.Sprintf("failed to marshal json: %s", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
