package services

import "github.com/prometheus/client_golang/prometheus"

var (
	imageUploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "listing_image_uploads_total", Help: "Listing image uploads by result"},
		[]string{"result"},
	)
	imageCleanups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "listing_image_cleanups_total", Help: "Best-effort listing image deletions by result"},
		[]string{"result"},
	)
)

func init() { prometheus.MustRegister(imageUploads, imageCleanups) }

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
