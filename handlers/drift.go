package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"delay-risk-api/drift"

	"github.com/gin-gonic/gin"
)

type DriftHandler struct {
	reportsDir string
}

func NewDriftHandler(reportsDir string) *DriftHandler {
	return &DriftHandler{reportsDir: reportsDir}
}

// Latest serves the most recent drift report snapshot, with the advisory
// band attached per feature.
func (h *DriftHandler) Latest(c *gin.Context) {
	entries, err := os.ReadDir(h.reportsDir)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no drift reports available"})
		return
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "drift_report_") && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no drift reports available"})
		return
	}
	// Timestamped file names sort chronologically.
	sort.Strings(names)
	latest := names[len(names)-1]

	data, err := os.ReadFile(filepath.Join(h.reportsDir, latest))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read drift report"})
		return
	}

	var report drift.Report
	if err := json.Unmarshal(data, &report); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to parse drift report"})
		return
	}

	bands := make(map[string]string, len(report.PerFeature))
	for name, psi := range report.PerFeature {
		bands[name] = drift.Band(psi)
	}

	c.JSON(http.StatusOK, gin.H{"report": report, "bands": bands, "file": latest})
}
