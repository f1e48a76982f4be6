package routes

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"screenshot-tests/internal/artifact"
	diffimage "screenshot-tests/internal/diff/image"
	"screenshot-tests/internal/myhttp"
	"strconv"
)

const maxUploadSize = 64 << 20

type CompareResponse struct {
	Method     string  `json:"method"`
	Difference float64 `json:"difference"`
	Mismatch   bool    `json:"mismatch"`
	DiffRed    string  `json:"diffRed,omitempty"`
	DiffBorder string  `json:"diffBorder,omitempty"`
}

// Compare scores the multipart "incoming" image against "reference". Form
// values method, maxDistance, hShift, vShift and tolerance override defaults.
func Compare(defaults diffimage.Method) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			http.Error(w, fmt.Sprintf("invalid multipart form: %s", err), http.StatusBadRequest)
			return
		}

		method, err := methodFromForm(r, defaults)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		reference, err := formImage(r, "reference")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		incoming, err := formImage(r, "incoming")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		difference := method.Compare(reference, incoming)
		response := CompareResponse{
			Method:     method.String(),
			Difference: difference,
			Mismatch:   method.Exceeds(difference),
		}

		if response.Mismatch && method.Kind != diffimage.KindExact {
			red, err := encodePNG(diffimage.RedHighlight(reference, incoming))
			if err != nil {
				myhttp.Logger(r.Context()).Error(fmt.Sprintf("failed to encode red highlight: %s", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			border, err := encodePNG(artifact.Border(reference, incoming))
			if err != nil {
				myhttp.Logger(r.Context()).Error(fmt.Sprintf("failed to encode border: %s", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			response.DiffRed = red
			response.DiffBorder = border
		}

		myhttp.Logger(r.Context()).Info("compared images", "method", response.Method, "difference", difference, "mismatch", response.Mismatch)
		writeJSON(w, r, response)
	}
}

func methodFromForm(r *http.Request, defaults diffimage.Method) (diffimage.Method, error) {
	m := defaults
	if v := r.FormValue("method"); v != "" {
		kind, err := diffimage.ParseKind(v)
		if err != nil {
			return m, err
		}
		if kind != m.Kind {
			switch kind {
			case diffimage.KindRMS:
				m = diffimage.RMS(0)
			case diffimage.KindExact:
				m = diffimage.Exact()
			default:
				m = diffimage.DefaultMethod()
			}
		}
	}

	floats := map[string]*float64{"maxDistance": &m.MaxDistance, "tolerance": &m.Tolerance}
	for name, target := range floats {
		if v := r.FormValue(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return m, fmt.Errorf("invalid %s: %w", name, err)
			}
			*target = f
		}
	}
	ints := map[string]*int{"hShift": &m.HShift, "vShift": &m.VShift}
	for name, target := range ints {
		if v := r.FormValue(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return m, fmt.Errorf("invalid %s: %w", name, err)
			}
			*target = n
		}
	}

	return m, m.Validate()
}

func formImage(r *http.Request, field string) (image.Image, error) {
	f, _, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("missing %s image: %w", field, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s image: %w", field, err)
	}
	return img, nil
}

func encodePNG(img image.Image) (string, error) {
	var buffer bytes.Buffer
	if err := png.Encode(&buffer, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buffer.Bytes()), nil
}
