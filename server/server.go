// Copyright 2026 The Itinera Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the clustering and dedupe core over HTTP for the
// itinerary builder frontends.
package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/feravila/itinera/cluster"
	"github.com/feravila/itinera/dedupe"
	"github.com/feravila/itinera/ingest"
	"github.com/feravila/itinera/poi"
	"github.com/feravila/itinera/spatial"
)

type Server struct {
	repo ingest.POIRepository
}

func NewServer(repo ingest.POIRepository) *Server {
	return &Server{repo: repo}
}

// Run starts the HTTP server on addr.
func (s *Server) Run(addr string) error {
	r := gin.Default()

	s.RegisterRoutes(r)

	return r.Run(addr)
}

// RegisterRoutes attaches the API handlers to the router.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.POST("/api/clusters/proximity", s.clusterByProximity)
	r.POST("/api/clusters/density", s.clusterByDensity)
	r.POST("/api/dedupe/key", s.dedupeKey)
	r.POST("/api/dedupe/check", s.dedupeCheck)
	r.GET("/api/pois", s.listPOIs)
	r.GET("/api/pois/duplicates", s.listDuplicates)
}

type proximityRequest struct {
	POIs           []poi.Record `json:"pois" binding:"required"`
	RadiusKM       float64      `json:"radius_km"`
	TargetClusters int          `json:"target_clusters"`
}

type densityRequest struct {
	POIs           []poi.Record `json:"pois" binding:"required"`
	MinClusterSize int          `json:"min_cluster_size"`
	MinSamples     int          `json:"min_samples"`
	MaxClusters    int          `json:"max_clusters"`
	AssignNoise    *bool        `json:"assign_noise"`
}

type clusterView struct {
	ClusterID int            `json:"cluster_id"`
	Size      int            `json:"size"`
	Center    *spatial.Point `json:"center,omitempty"`
	POIs      []poi.Record   `json:"pois"`
}

type assignmentView struct {
	Clusters  []clusterView `json:"clusters"`
	Unlocated []poi.Record  `json:"unlocated,omitempty"`
	Noise     []poi.Record  `json:"noise,omitempty"`
}

func viewOf(a cluster.Assignment) assignmentView {
	view := assignmentView{
		Clusters:  make([]clusterView, 0, len(a.Clusters)),
		Unlocated: a.Unlocated,
		Noise:     a.Noise,
	}

	for _, id := range a.IDs() {
		members := a.Clusters[id]

		cv := clusterView{
			ClusterID: id,
			Size:      len(members),
			POIs:      members,
		}

		if center, ok := cluster.Center(members); ok {
			cv.Center = &center
		}

		view.Clusters = append(view.Clusters, cv)
	}

	return view
}

func (s *Server) clusterByProximity(ctx *gin.Context) {
	var req proximityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if req.RadiusKM <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "radius_km must be positive"})

		return
	}

	assignment := cluster.ByProximity(req.POIs, req.RadiusKM, req.TargetClusters)

	ctx.JSON(http.StatusOK, viewOf(assignment))
}

func (s *Server) clusterByDensity(ctx *gin.Context) {
	var req densityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if req.MinClusterSize < 2 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "min_cluster_size must be at least 2"})

		return
	}

	assignNoise := true
	if req.AssignNoise != nil {
		assignNoise = *req.AssignNoise
	}

	assignment := cluster.ByDensity(
		req.POIs, req.MinClusterSize, req.MinSamples, req.MaxClusters, assignNoise,
	)

	ctx.JSON(http.StatusOK, viewOf(assignment))
}

type keyRequest struct {
	Name      string  `json:"name" binding:"required"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Precision int     `json:"precision"`
}

func (s *Server) dedupeKey(ctx *gin.Context) {
	var req keyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	point := spatial.Point{Lat: req.Latitude, Lng: req.Longitude}
	if !point.Valid() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"dedupe_key":      dedupe.Key(req.Name, req.Latitude, req.Longitude, req.Precision),
		"normalized_name": dedupe.NormalizeName(req.Name),
	})
}

type checkRequest struct {
	A poi.Record `json:"a" binding:"required"`
	B poi.Record `json:"b" binding:"required"`
}

func (s *Server) dedupeCheck(ctx *gin.Context) {
	var req checkRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"duplicates": dedupe.AreDuplicates(req.A, req.B),
	})
}

func (s *Server) listPOIs(ctx *gin.Context) {
	var source *string
	if v := ctx.Query("source"); v != "" {
		source = &v
	}

	limit, err := intQuery(ctx, "limit", 100)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	offset, err := intQuery(ctx, "offset", 0)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	pois, err := s.repo.ListPOIs(source, limit, offset)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	count, err := s.repo.CountPOIs()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if pois == nil {
		pois = []*ingest.POI{}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"pois":  pois,
		"total": count,
	})
}

type duplicatePair struct {
	A poi.Record `json:"a"`
	B poi.Record `json:"b"`
}

// listDuplicates does a full pairwise scan, which is fine at itinerary
// scale. Sources feeding tens of thousands of POIs would need the H3
// candidate index instead.
func (s *Server) listDuplicates(ctx *gin.Context) {
	stored, err := s.repo.GetAllSorted()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	records := make([]poi.Record, len(stored))
	for i, p := range stored {
		records[i] = p.Record()
	}

	pairs := []duplicatePair{}

	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			if dedupe.AreDuplicates(records[i], records[j]) {
				pairs = append(pairs, duplicatePair{A: records[i], B: records[j]})
			}
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"duplicates": pairs})
}

func intQuery(ctx *gin.Context, name string, fallback int) (int, error) {
	v := ctx.Query(name)
	if v == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}

	return n, nil
}
