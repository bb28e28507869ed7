package models

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// AuthenticationResponse is the result of authenticating one candidate note
type AuthenticationResponse struct {
	RequestID           string           `json:"request_id"`
	VerdictID           string           `json:"verdict_id"`
	Genuine             bool             `json:"genuine"`
	Denomination        null.String      `json:"denomination"`
	Score               float64          `json:"score"`
	GoodMatches         int              `json:"good_matches"`
	ClosestAttempt      bool             `json:"closest_attempt"`
	Reason              string           `json:"reason"`
	Message             string           `json:"message"`
	ScoringMode         string           `json:"scoring_mode"`
	AcceptanceThreshold float64          `json:"acceptance_threshold"`
	CandidateKeypoints  int              `json:"candidate_keypoints"`
	References          []ReferenceScore `json:"references,omitempty"`
	Quality             Quality          `json:"quality"`
	Warnings            []string         `json:"warnings,omitempty"`
	Timestamp           string           `json:"timestamp"`
	ProcessingTimeSec   float64          `json:"processing_time_sec"`
}

// ReferenceScore is the candidate's score against one reference image
type ReferenceScore struct {
	Denomination   string  `json:"denomination"`
	Source         string  `json:"source"`
	GoodMatches    int     `json:"good_matches"`
	TotalMatches   int     `json:"total_matches"`
	Score          float64 `json:"score"`
	MeanDistance   float64 `json:"mean_distance"`
	DistanceStdDev float64 `json:"distance_stddev"`
}

// Quality holds advisory candidate image measurements
type Quality struct {
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	LaplacianVariance float64 `json:"laplacian_variance"`
	Brightness        float64 `json:"brightness"`
	Contrast          float64 `json:"contrast"`
}

// ReferencesResponse describes the reference set currently in use
type ReferencesResponse struct {
	Source        string             `json:"source"`
	Fingerprint   string             `json:"fingerprint"`
	BuiltAt       time.Time          `json:"built_at"`
	Denominations []string           `json:"denominations"`
	References    []ReferenceSummary `json:"references"`
	Skipped       []SkippedReference `json:"skipped,omitempty"`
	FromSnapshot  bool               `json:"from_snapshot"`
}

// ReferenceSummary describes one usable reference image
type ReferenceSummary struct {
	Denomination string `json:"denomination"`
	Source       string `json:"source"`
	Features     int    `json:"features"`
}

// SkippedReference names a reference that could not be used
type SkippedReference struct {
	Denomination string `json:"denomination"`
	Source       string `json:"source"`
	Reason       string `json:"reason"`
}

// VerdictResponse is one stored verdict from the history
type VerdictResponse struct {
	ID                string      `json:"id"`
	RequestID         string      `json:"request_id"`
	CreatedAt         time.Time   `json:"created_at"`
	Source            string      `json:"source"`
	Genuine           bool        `json:"genuine"`
	Denomination      null.String `json:"denomination"`
	Score             float64     `json:"score"`
	GoodMatches       int         `json:"good_matches"`
	Reason            string      `json:"reason"`
	ScoringMode       string      `json:"scoring_mode"`
	CandidateFeatures int         `json:"candidate_features"`
	ProcessingTimeMs  int64       `json:"processing_time_ms"`
}

// VerdictListResponse is a page of the verdict history, newest first
type VerdictListResponse struct {
	Verdicts []VerdictResponse `json:"verdicts"`
	Count    int               `json:"count"`
}
