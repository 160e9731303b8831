// Package schema has models, constants and the clinical profile shared by all parts of pancstage.
package schema

import (
	"fmt"
	"strings"
	"time"
)

// LabPanel is the immutable set of laboratory measurements for one patient.
type LabPanel struct {
	CA199          float64 `json:"ca19_9"`          // Carbohydrate antigen 19-9 (U/mL)
	TotalBilirubin float64 `json:"total_bilirubin"` // Total bilirubin (mg/dL)
	ALP            float64 `json:"alp"`             // Alkaline phosphatase (U/L)
	Albumin        float64 `json:"albumin"`         // Serum albumin (g/dL)
	NLR            float64 `json:"nlr"`             // Neutrophil-to-lymphocyte ratio
	Age            int     `json:"age"`             // Age in years
}

// Features returns the panel as a classifier feature vector in FeatureNames order.
func (p LabPanel) Features() [NumFeatures]float64 {
	return [NumFeatures]float64{
		p.CA199,
		p.TotalBilirubin,
		p.ALP,
		p.Albumin,
		p.NLR,
		float64(p.Age),
	}
}

// Stage is a categorical disease-progression label.
type Stage string

// All stages the classifier can produce.
const (
	StageNormal Stage = "Normal"
	Stage1      Stage = "Stage 1"
	Stage2      Stage = "Stage 2"
	Stage3      Stage = "Stage 3"
)

// AllStages lists every recognized stage in progression order.
var AllStages = []Stage{StageNormal, Stage1, Stage2, Stage3}

// ParseStage converts a decoder label into a Stage. Surrounding whitespace is
// ignored but the label is otherwise matched exactly.
func ParseStage(label string) (Stage, error) {
	s := Stage(strings.TrimSpace(label))
	for _, known := range AllStages {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStage, label)
}

// HasDisease reports whether the stage denotes cancer.
func (s Stage) HasDisease() bool {
	return s != StageNormal
}

// RiskAssessment is the lab-based risk score and its signed per-term contributions.
type RiskAssessment struct {
	Score     float64                  `json:"score"`     // Clamped to [0,1]
	Breakdown map[BreakdownKey]float64 `json:"breakdown"` // weight * normalized value per term
}

// SurvivalEstimate is the personalized survival projection for a stage.
type SurvivalEstimate struct {
	Months *float64 `json:"months,omitempty"` // Adjusted months; nil when no cancer was detected
	Text   string   `json:"text"`
}

// Prediction is the full estimator output for one lab panel.
type Prediction struct {
	Panel           LabPanel         `json:"panel"`
	Stage           Stage            `json:"stage"`
	Risk            *RiskAssessment  `json:"risk,omitempty"` // nil for Normal
	Survival        SurvivalEstimate `json:"survival"`
	Recommendations []string         `json:"recommendations"`
}

// RecommendationBullet prefixes every line of a formatted recommendation block.
const RecommendationBullet = "✔ "

// FormatRecommendations joins recommendation lines into a single bullet block.
func FormatRecommendations(lines []string) string {
	var sb strings.Builder
	for i, line := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(RecommendationBullet)
		sb.WriteString(line)
	}
	return sb.String()
}

// Tuple returns the stage, survival text and recommendation block.
func (p Prediction) Tuple() (stage, survival, recommendations string) {
	return string(p.Stage), p.Survival.Text, FormatRecommendations(p.Recommendations)
}

// RiskScore returns the risk score, or zero when none was computed.
func (p Prediction) RiskScore() float64 {
	if p.Risk == nil {
		return 0
	}
	return p.Risk.Score
}

// BatchResult pairs a batch row with its prediction or error.
type BatchResult struct {
	Row        int         `json:"row"` // 1-based data row in the input file
	Prediction *Prediction `json:"prediction,omitempty"`
	Err        error       `json:"-"`
	Error      string      `json:"error,omitempty"`
}

// TumorMeasurement holds the descriptive numbers derived from a segmentation mask.
type TumorMeasurement struct {
	Dice          *float64   `json:"dice,omitempty"` // Absent when no ground truth was available
	VolumeMM3     float64    `json:"volume_mm3"`
	Shape         string     `json:"shape"`
	VoxelCount    int64      `json:"voxel_count"`
	Spacing       string     `json:"voxel_spacing_mm"`
	MiddleSlice   int        `json:"middle_slice_index"`
	SizeMM        [3]float64 `json:"size_mm"`
	MaxDiameterMM float64    `json:"max_diameter_mm"`
}

// VolumeML returns the tumor volume in millilitres.
func (m TumorMeasurement) VolumeML() float64 {
	return m.VolumeMM3 / 1000.0
}

// PredictionRunRecord represents a single estimation run in the history store.
type PredictionRunRecord struct {
	RunID            int64
	StartTime        time.Time
	EndTime          *time.Time
	RunDurationMs    *int32
	TotalPredictions int32
	ConfigParams     *string
}

// PredictionRecord represents one stored prediction.
type PredictionRecord struct {
	RunID           int64
	RowNumber       int32
	PredictionTime  time.Time
	CA199           float64
	TotalBilirubin  float64
	ALP             float64
	Albumin         float64
	NLR             float64
	Age             int32
	Stage           string
	RiskScore       *float64
	SurvivalMonths  *float64
	SurvivalText    string
	Recommendations string
}

// HistoryStatus represents the status of the prediction history store.
type HistoryStatus struct {
	Backend          string
	Connected        bool
	TotalRuns        int64
	TotalPredictions int64
	LastRunID        int64
	LastRunTime      time.Time
	OldestRunTime    time.Time
	TableSizes       map[string]int64
}
