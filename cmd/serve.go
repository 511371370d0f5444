package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	radarmosaicconfig "github.com/MeKo-Tech/radarmosaic/internal/config"
	"github.com/MeKo-Tech/radarmosaic/internal/region"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve mosaics on demand over HTTP",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().String("basemap-cache", "", "Path to a basemap cache database (defaults to a blank canvas)")
	serveCmd.Flags().Duration("render-timeout", 30*time.Second, "Timeout per render request")

	mustBind := func(key, flag string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("serve.addr", "addr")
	mustBind("serve.basemap_cache", "basemap-cache")
	mustBind("serve.render_timeout", "render-timeout")
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	addr := viper.GetString("serve.addr")
	basemapCache := viper.GetString("serve.basemap_cache")
	renderTimeout := viper.GetDuration("serve.render_timeout")

	bm, err := resolveBasemapSource(basemapCache)
	if err != nil {
		return fmt.Errorf("failed to open basemap cache: %w", err)
	}
	renderer := region.New(bm)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/mosaic", withCORS(mosaicHandler(renderer, renderTimeout)))

	logger.Info("mosaic server listening", "addr", addr, "basemap_cache", basemapCache)
	fmt.Printf("\n  -> http://%s/mosaic?bbox=105,-8,108,-5&width=1024&height=1024\n\n", addr)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return srv.ListenAndServe()
}

// mosaicHandler renders one mosaic per request from ?bbox=, ?width=, ?height=
// query parameters, returning a PNG on success or a JSON error otherwise.
func mosaicHandler(renderer *region.Renderer, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		reg, err := parseRegionBBox(q.Get("bbox"))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Errorf("invalid bbox: %w", err))
			return
		}

		width, err := parsePositiveIntOrDefault(q.Get("width"), 1024)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Errorf("invalid width: %w", err))
			return
		}
		height, err := parsePositiveIntOrDefault(q.Get("height"), 1024)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Errorf("invalid height: %w", err))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		cfg := radarmosaicconfig.New()
		result, report, err := renderer.Render(ctx, reg, width, height, cfg)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Errorf("render failed: %w", err))
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("X-Used-Radars", fmt.Sprintf("%v", report.UsedRadars))
		if err := png.Encode(w, result.Canvas); err != nil {
			logger.Error("failed to encode mosaic response", "error", err)
		}
	}
}

func parsePositiveIntOrDefault(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", v)
	}
	return v, nil
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
